// File: internal/engine/vars.go
// Brief: Variable bindings with {{name}} expansion and per-node scopes.

package engine

import (
	"strings"
	"sync"
)

// VarStore holds the shared name→value bindings for a run. Reads and writes
// are guarded so observers and the CLI can inspect it mid-run.
type VarStore struct {
	mu   sync.RWMutex
	base map[string]string
}

func NewVarStore(initial map[string]string) *VarStore {
	base := make(map[string]string, len(initial))
	for k, v := range initial {
		base[k] = v
	}
	return &VarStore{base: base}
}

func (v *VarStore) Get(name string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.base[name]
	return val, ok
}

func (v *VarStore) Set(name, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.base[name] = value
}

// Scope layers per-node bindings over the shared store. Each scheduled node
// gets its own Scope, so @each's transient "item" binding never races a
// concurrently executing sibling.
type Scope struct {
	store *VarStore
	local map[string]string
}

func (v *VarStore) NewScope() *Scope {
	return &Scope{store: v, local: map[string]string{}}
}

func (s *Scope) Get(name string) (string, bool) {
	if val, ok := s.local[name]; ok {
		return val, true
	}
	return s.store.Get(name)
}

// LocalGet looks up a binding in the node-local overlay only.
func (s *Scope) LocalGet(name string) (string, bool) {
	val, ok := s.local[name]
	return val, ok
}

func (s *Scope) Bind(name, value string) { s.local[name] = value }
func (s *Scope) Unbind(name string)      { delete(s.local, name) }
func (s *Scope) Restore(name, prev string, had bool) {
	if had {
		s.local[name] = prev
	} else {
		delete(s.local, name)
	}
}

// Expand replaces {{name}} references. Unresolved references are left
// verbatim so typos stay visible in command echoes.
func (s *Scope) Expand(line string) string {
	var b strings.Builder
	rest := line
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end += start
		name := strings.TrimSpace(rest[start+2 : end])
		b.WriteString(rest[:start])
		if val, ok := s.Get(name); ok {
			b.WriteString(val)
		} else {
			b.WriteString(rest[start : end+2])
		}
		rest = rest[end+2:]
	}
}
