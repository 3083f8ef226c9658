package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDetectCycleSimpleLoop(t *testing.T) {
	set := mustSet(t, task("a", "b"), task("b", "a"))
	g, err := buildGraph(set, "a")
	if err != nil {
		t.Fatalf("buildGraph: %v", err)
	}
	has, path := g.detectCycle()
	if !has {
		t.Fatal("cycle not detected")
	}
	if len(path) < 3 {
		t.Fatalf("cycle path too short: %v", path)
	}
	if path[0] != path[len(path)-1] {
		t.Fatalf("cycle path should close on itself: %v", path)
	}
}

func TestDetectCycleSelfLoop(t *testing.T) {
	set := mustSet(t, task("a", "a"))
	g, err := buildGraph(set, "a")
	if err != nil {
		t.Fatalf("buildGraph: %v", err)
	}
	if has, _ := g.detectCycle(); !has {
		t.Fatal("self loop not detected")
	}
}

func TestDetectCycleAcyclicDiamond(t *testing.T) {
	set := mustSet(t, task("top", "left", "right"), task("left", "base"), task("right", "base"), task("base"))
	g, err := buildGraph(set, "top")
	if err != nil {
		t.Fatalf("buildGraph: %v", err)
	}
	if has, path := g.detectCycle(); has {
		t.Fatalf("false positive cycle: %v", path)
	}
}

func TestExecuteRejectsCycleBeforeRunning(t *testing.T) {
	set := mustSet(t, task("a", "b"), task("b", "c"), task("c", "a"))
	fake := &fakeExecutor{}
	eng := newTestEngine(t, set, Options{Jobs: 4, Executor: fake})

	err := eng.Execute(context.Background(), "a")
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("want ErrCyclicDependency, got %v", err)
	}
	if !strings.Contains(err.Error(), "->") {
		t.Errorf("error should name the cycle path, got %q", err)
	}
	if fake.total() != 0 {
		t.Errorf("no node should run when the graph has a cycle, ran %d", fake.total())
	}
	if got := ExitCode(err); got != 3 {
		t.Errorf("ExitCode = %d, want 3", got)
	}
}
