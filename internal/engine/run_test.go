package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/jake/internal/recipe"
)

// fakeExecutor stands in for the directive interpreter so scheduling can be
// observed without spawning shells.
type fakeExecutor struct {
	mu        sync.Mutex
	runs      map[string]int
	completed map[string]bool
	startDeps map[string][]string
	order     []string

	failWith map[string]error
	skip     map[string]bool
	delay    time.Duration
}

func (f *fakeExecutor) RunNode(ctx context.Context, rec *recipe.Recipe, scope *Scope) (bool, error) {
	f.mu.Lock()
	if f.runs == nil {
		f.runs = map[string]int{}
	}
	if f.completed == nil {
		f.completed = map[string]bool{}
	}
	if f.startDeps == nil {
		f.startDeps = map[string][]string{}
	}
	f.runs[rec.Name]++
	done := make([]string, 0, len(rec.Deps))
	for _, d := range rec.Deps {
		if f.completed[d] {
			done = append(done, d)
		}
	}
	f.startDeps[rec.Name] = done
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failWith[rec.Name]; ok {
		return false, err
	}
	f.completed[rec.Name] = true
	f.order = append(f.order, rec.Name)
	return f.skip[rec.Name], nil
}

func (f *fakeExecutor) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.runs {
		n += c
	}
	return n
}

func (f *fakeExecutor) runCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[name]
}

func newTestEngine(t *testing.T, set *recipe.Set, opts Options) *Engine {
	t.Helper()
	eng, err := New(set, nil, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng
}

func TestExecuteRunsEveryNodeExactlyOnce(t *testing.T) {
	set := mustSet(t,
		task("top", "left", "right"),
		task("left", "base"),
		task("right", "base"),
		task("base"),
	)
	fake := &fakeExecutor{delay: 2 * time.Millisecond}
	eng := newTestEngine(t, set, Options{Jobs: 4, Executor: fake})

	if err := eng.Execute(context.Background(), "top"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, name := range []string{"top", "left", "right", "base"} {
		if got := fake.runCount(name); got != 1 {
			t.Errorf("%s ran %d times, want 1", name, got)
		}
	}
}

func TestExecuteWaitsForAllDependencies(t *testing.T) {
	set := mustSet(t,
		task("top", "left", "right"),
		task("left", "base"),
		task("right", "base"),
		task("base"),
	)
	fake := &fakeExecutor{delay: 2 * time.Millisecond}
	eng := newTestEngine(t, set, Options{Jobs: 4, Executor: fake})

	if err := eng.Execute(context.Background(), "top"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	for name, deps := range map[string][]string{
		"top":   {"left", "right"},
		"left":  {"base"},
		"right": {"base"},
	} {
		if len(fake.startDeps[name]) != len(deps) {
			t.Errorf("%s started with deps %v completed, want %v", name, fake.startDeps[name], deps)
		}
	}
}

func TestExecuteFailFast(t *testing.T) {
	boom := fmt.Errorf("%w: exit status 1", ErrCommandFailed)
	set := mustSet(t, task("top", "broken"), task("broken"))
	fake := &fakeExecutor{failWith: map[string]error{"broken": boom}}
	eng := newTestEngine(t, set, Options{Jobs: 4, Executor: fake})

	err := eng.Execute(context.Background(), "top")
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("want ErrCommandFailed, got %v", err)
	}
	if fake.runCount("top") != 0 {
		t.Error("dependent of a failed node must not run")
	}
	if got := ExitCode(err); got != 1 {
		t.Errorf("ExitCode = %d, want 1", got)
	}
}

func TestExecuteReportsFirstErrorWithRecipeName(t *testing.T) {
	boom := errors.New("kaput")
	set := mustSet(t, task("solo"))
	fake := &fakeExecutor{failWith: map[string]error{"solo": boom}}
	eng := newTestEngine(t, set, Options{Jobs: 1, Executor: fake})

	err := eng.Execute(context.Background(), "solo")
	if !errors.Is(err, boom) {
		t.Fatalf("returned error should wrap the node error, got %v", err)
	}
	if want := "solo: kaput"; err.Error() != want {
		t.Errorf("err = %q, want %q", err, want)
	}
}

func TestExecuteMoreWorkersThanNodes(t *testing.T) {
	set := mustSet(t, task("only"))
	fake := &fakeExecutor{}
	eng := newTestEngine(t, set, Options{Jobs: 8, Executor: fake})

	if err := eng.Execute(context.Background(), "only"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := fake.runCount("only"); got != 1 {
		t.Fatalf("only ran %d times, want 1", got)
	}
}

func TestExecuteWideFanOut(t *testing.T) {
	recipes := []*recipe.Recipe{}
	deps := []string{}
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("leaf%02d", i)
		recipes = append(recipes, task(name))
		deps = append(deps, name)
	}
	recipes = append(recipes, task("all", deps...))
	set := mustSet(t, recipes...)

	fake := &fakeExecutor{delay: time.Millisecond}
	eng := newTestEngine(t, set, Options{Jobs: 6, Executor: fake})
	if err := eng.Execute(context.Background(), "all"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := fake.total(); got != 21 {
		t.Fatalf("ran %d nodes, want 21", got)
	}
}

func TestDryRunUsesDeterministicOrder(t *testing.T) {
	set := mustSet(t, task("root", "zeta", "alpha", "mid"), task("zeta"), task("alpha"), task("mid"))
	fake := &fakeExecutor{}
	eng := newTestEngine(t, set, Options{Jobs: 8, DryRun: true, Executor: fake})

	if err := eng.Execute(context.Background(), "root"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []string{"alpha", "mid", "zeta", "root"}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.order) != len(want) {
		t.Fatalf("order = %v, want %v", fake.order, want)
	}
	for i := range want {
		if fake.order[i] != want[i] {
			t.Fatalf("order = %v, want %v", fake.order, want)
		}
	}
}

func TestDryRunIdempotent(t *testing.T) {
	set := mustSet(t, task("root", "zeta", "alpha"), task("zeta", "alpha"), task("alpha"))

	runOnce := func() []string {
		fake := &fakeExecutor{}
		obs := &recordingObserver{}
		eng := newTestEngine(t, set, Options{Jobs: 4, DryRun: true, Executor: fake, Observers: []Observer{obs}})
		if err := eng.Execute(context.Background(), "root"); err != nil {
			t.Fatalf("Execute: %v", err)
		}
		obs.mu.Lock()
		defer obs.mu.Unlock()
		var names []string
		for _, ev := range obs.events {
			if ev.Type == EventWouldRun {
				names = append(names, ev.Recipe)
			}
		}
		return names
	}

	first := runOnce()
	second := runOnce()
	if len(first) != 3 || len(first) != len(second) {
		t.Fatalf("would-run lists %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("dry-run order not reproducible: %v vs %v", first, second)
		}
	}
}

func TestExecuteCanceledContext(t *testing.T) {
	set := mustSet(t, task("a"))
	fake := &fakeExecutor{}
	eng := newTestEngine(t, set, Options{Jobs: 1, Executor: fake})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := eng.Execute(ctx, "a")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if fake.total() != 0 {
		t.Error("no node should run under a canceled context")
	}
}

func TestExecuteEmitsLifecycleEvents(t *testing.T) {
	set := mustSet(t, task("a", "b"), task("b"))
	fake := &fakeExecutor{skip: map[string]bool{"b": true}}
	rec := &recordingObserver{}
	eng := newTestEngine(t, set, Options{Jobs: 1, Executor: fake, Observers: []Observer{rec}})

	if err := eng.Execute(context.Background(), "a"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := rec.count("b", EventUpToDate); got != 1 {
		t.Errorf("b UP_TO_DATE events = %d, want 1", got)
	}
	if got := rec.count("a", EventSucceeded); got != 1 {
		t.Errorf("a SUCCEEDED events = %d, want 1", got)
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingObserver) ObserveEvent(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingObserver) count(recipeName string, typ EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Recipe == recipeName && ev.Type == typ {
			n++
		}
	}
	return n
}
