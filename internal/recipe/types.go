// File: internal/recipe/types.go
// Brief: Recipe data model consumed by the execution engine.

package recipe

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Kind distinguishes how a recipe's completion is judged.
type Kind string

const (
	// KindTask always runs its body when scheduled.
	KindTask Kind = "task"
	// KindFile runs its body only when the declared output is stale
	// relative to the declared file dependencies.
	KindFile Kind = "file"
	// KindSimple is a task with no dependency fan-in of its own.
	KindSimple Kind = "simple"
)

// Directive identifies an @-prefixed control line inside a recipe body.
type Directive string

const (
	DirectiveNone    Directive = ""
	DirectiveIf      Directive = "if"
	DirectiveElif    Directive = "elif"
	DirectiveElse    Directive = "else"
	DirectiveEnd     Directive = "end"
	DirectiveEach    Directive = "each"
	DirectiveIgnore  Directive = "ignore"
	DirectiveNeeds   Directive = "needs"
	DirectiveConfirm Directive = "confirm"
	DirectiveCache   Directive = "cache"
	DirectiveWatch   Directive = "watch"
	DirectiveLaunch  Directive = "launch"
)

// Command is one line of a recipe body. For directive lines, Line holds
// the text after the directive word.
type Command struct {
	Line      string
	Directive Directive
}

// Param is a recipe parameter with an optional default value.
type Param struct {
	Name    string `yaml:"name"`
	Default string `yaml:"default,omitempty"`
}

// Hooks are shell lines run around a recipe body.
type Hooks struct {
	Before []string `yaml:"before,omitempty"`
	After  []string `yaml:"after,omitempty"`
}

// Recipe is a named unit of work. The engine never mutates a Recipe.
type Recipe struct {
	Name     string
	Kind     Kind
	Deps     []string
	Commands []Command
	Params   []Param
	Hooks    Hooks

	// Output and FileDeps drive staleness gating for KindFile recipes.
	Output   string
	FileDeps []string

	// OnlyOS restricts the recipe to the listed GOOS values. Empty means any.
	OnlyOS []string

	Quiet bool
}

// RunnableOn reports whether the recipe may run on the given GOOS.
func (r *Recipe) RunnableOn(goos string) bool {
	if len(r.OnlyOS) == 0 {
		return true
	}
	for _, os := range r.OnlyOS {
		if strings.EqualFold(strings.TrimSpace(os), goos) {
			return true
		}
	}
	return false
}

// Set is an immutable collection of recipes indexed by name.
type Set struct {
	byName map[string]*Recipe
	names  []string
}

// NewSet builds a Set, rejecting duplicate recipe names.
func NewSet(recipes []*Recipe) (*Set, error) {
	s := &Set{byName: map[string]*Recipe{}}
	for _, r := range recipes {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("recipe with empty name")
		}
		if _, ok := s.byName[name]; ok {
			return nil, fmt.Errorf("duplicate recipe %q", name)
		}
		s.byName[name] = r
		s.names = append(s.names, name)
	}
	return s, nil
}

// Lookup resolves a recipe by name. A recipe restricted to another OS is
// reported as not runnable rather than absent.
func (s *Set) Lookup(name string) (*Recipe, bool) {
	r, ok := s.byName[strings.TrimSpace(name)]
	return r, ok
}

// RunnableHere is Lookup plus an OS-restriction check for the current host.
func (s *Set) RunnableHere(name string) (*Recipe, error) {
	r, ok := s.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown recipe %q", name)
	}
	if !r.RunnableOn(runtime.GOOS) {
		return nil, fmt.Errorf("recipe %q is restricted to %s", name, strings.Join(r.OnlyOS, ", "))
	}
	return r, nil
}

// Names returns recipe names in declaration order.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// SortedNames returns recipe names sorted lexically, for listings.
func (s *Set) SortedNames() []string {
	out := s.Names()
	sort.Strings(out)
	return out
}

// Len reports the number of recipes in the set.
func (s *Set) Len() int { return len(s.names) }
