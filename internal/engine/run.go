// File: internal/engine/run.go
// Brief: Target execution: sequential fallback and concurrent worker pool.

package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Execute builds the dependency graph for target, rejects cycles, and runs
// every reachable recipe exactly once. A node becomes eligible only after
// all its dependencies completed. The first recorded error is returned once
// all in-flight work has joined.
func (e *Engine) Execute(ctx context.Context, target string) error {
	g, err := buildGraph(e.set, target)
	if err != nil {
		return err
	}
	if len(g.nodes) == 0 {
		return nil
	}
	if has, path := g.detectCycle(); has {
		return fmt.Errorf("%w: %s", ErrCyclicDependency, joinCycle(path))
	}

	workers := e.opts.Jobs
	if workers > len(g.nodes) {
		workers = len(g.nodes)
	}
	if workers <= 1 || e.opts.DryRun {
		return e.runSequential(ctx, g)
	}
	return e.runConcurrent(ctx, g, workers)
}

// runSequential is the deterministic fallback: stable Kahn order (ready set
// sorted by recipe name) used for dry-run and low-parallelism runs.
func (e *Engine) runSequential(ctx context.Context, g *graph) error {
	done := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ready := g.readyIndices()
		if len(ready) == 0 {
			break
		}
		idx := ready[0]
		n := g.nodes[idx]
		n.state = stateRunning
		if err := e.runOne(ctx, n); err != nil {
			n.state = stateFailed
			return err
		}
		n.state = stateCompleted
		done++
		for _, depIdx := range n.dependents {
			d := g.nodes[depIdx]
			d.inDegree--
			if d.inDegree == 0 && d.state == statePending {
				d.state = stateReady
			}
		}
	}
	if done != len(g.nodes) {
		// Unreachable after cycle detection; kept as a guard.
		return fmt.Errorf("%w: graph not fully schedulable", ErrCyclicDependency)
	}
	return nil
}

func (e *Engine) runConcurrent(ctx context.Context, g *graph, workers int) error {
	s := newScheduler(g)
	e.log.Debug("starting workers", zap.Int("workers", workers), zap.Int("nodes", len(g.nodes)))

	var eg errgroup.Group
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			for idx := range s.dispatch {
				if err := ctx.Err(); err != nil {
					s.fail(err)
					continue
				}
				if !s.claim(idx) {
					continue
				}
				err := e.runOne(ctx, g.nodes[idx])
				s.finish(idx, err)
			}
			return nil
		})
	}
	_ = eg.Wait()
	return s.result()
}

// runOne executes a single node body (lock released) and emits its
// lifecycle events.
func (e *Engine) runOne(ctx context.Context, n *node) error {
	name := n.recipe.Name
	if e.opts.DryRun {
		e.observers.ObserveEvent(Event{Recipe: name, Type: EventWouldRun})
	} else {
		e.observers.ObserveEvent(Event{Recipe: name, Type: EventStarted})
	}
	e.log.Debug("recipe dispatched", zap.String("recipe", name))

	start := time.Now()
	skipped, err := e.exec.RunNode(ctx, n.recipe, e.vars.NewScope())
	elapsed := time.Since(start)

	switch {
	case err != nil:
		e.observers.ObserveEvent(Event{Recipe: name, Type: EventFailed, Duration: elapsed, Err: err})
		e.log.Debug("recipe failed", zap.String("recipe", name), zap.Duration("elapsed", elapsed), zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	case e.opts.DryRun:
	case skipped:
		e.observers.ObserveEvent(Event{Recipe: name, Type: EventUpToDate, Duration: elapsed})
	default:
		e.observers.ObserveEvent(Event{Recipe: name, Type: EventSucceeded, Duration: elapsed})
		e.log.Debug("recipe succeeded", zap.String("recipe", name), zap.Duration("elapsed", elapsed))
	}
	return nil
}

func joinCycle(path []string) string {
	out := ""
	for i, name := range path {
		if i > 0 {
			out += " -> "
		}
		out += name
	}
	return out
}
