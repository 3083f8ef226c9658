// File: internal/engine/engine.go
// Brief: Engine construction and options.

package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	shellwords "github.com/mattn/go-shellwords"
	"go.uber.org/zap"

	"github.com/example/jake/internal/recipe"
)

// NodeExecutor runs one scheduled recipe. The default executor is the
// directive interpreter; tests substitute doubles. skipped reports a
// successful no-op (up-to-date file recipe or OS-restricted recipe).
type NodeExecutor interface {
	RunNode(ctx context.Context, rec *recipe.Recipe, scope *Scope) (skipped bool, err error)
}

// Options configure a run. The zero value is usable for tests.
type Options struct {
	// Jobs caps the worker pool. Values below 1 select the deterministic
	// sequential path.
	Jobs    int
	DryRun  bool
	Verbose bool
	Quiet   bool

	// Shell overrides the platform shell, e.g. "bash -eu -o pipefail -c".
	Shell   string
	WorkDir string

	Out    io.Writer
	ErrOut io.Writer
	Logger *zap.Logger

	Cache     Cache
	Cond      ConditionEvaluator
	Executor  NodeExecutor
	Observers []Observer
}

// Engine schedules and executes recipes from one immutable set. An Engine is
// short-lived: build one per invocation.
type Engine struct {
	set  *recipe.Set
	vars *VarStore
	opts Options

	shell []string
	cond  ConditionEvaluator
	log   *zap.Logger
	exec  NodeExecutor

	outMu  sync.Mutex
	out    io.Writer
	errOut io.Writer

	observers multiObserver
}

// New builds an Engine over set with the given initial variable bindings.
func New(set *recipe.Set, vars map[string]string, opts Options) (*Engine, error) {
	e := &Engine{
		set:  set,
		vars: NewVarStore(vars),
		opts: opts,
		cond: opts.Cond,
		log:  opts.Logger,
	}
	if e.cond == nil {
		e.cond = NewConditionEvaluator()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}

	if strings.TrimSpace(opts.Shell) != "" {
		words, err := shellwords.Parse(opts.Shell)
		if err != nil || len(words) == 0 {
			return nil, fmt.Errorf("bad shell override %q", opts.Shell)
		}
		e.shell = words
	} else {
		e.shell = defaultShell()
	}

	stdout := opts.Out
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.ErrOut
	if stderr == nil {
		stderr = os.Stderr
	}
	e.out = NewSyncWriter(&e.outMu, stdout)
	e.errOut = NewSyncWriter(&e.outMu, stderr)

	e.observers = multiObserver(opts.Observers)
	e.exec = opts.Executor
	if e.exec == nil {
		e.exec = &defaultExecutor{eng: e}
	}
	return e, nil
}

// OutputMutex exposes the console lock so callers can attach observers that
// share line-atomicity with command output.
func (e *Engine) OutputMutex() *sync.Mutex { return &e.outMu }

// AddObserver attaches a run event observer. Not safe to call once Execute
// has started.
func (e *Engine) AddObserver(obs Observer) {
	if obs != nil {
		e.observers = append(e.observers, obs)
	}
}

// Vars exposes the shared variable store.
func (e *Engine) Vars() *VarStore { return e.vars }

// GraphStats builds the target's graph and reports its parallelism shape
// without executing anything.
func (e *Engine) GraphStats(target string) (Stats, error) {
	g, err := buildGraph(e.set, target)
	if err != nil {
		return Stats{}, err
	}
	return g.stats(), nil
}

// GraphEdges returns the target's dependency edges for reporting.
func (e *Engine) GraphEdges(target string) ([][2]string, error) {
	g, err := buildGraph(e.set, target)
	if err != nil {
		return nil, err
	}
	return g.edges(), nil
}
