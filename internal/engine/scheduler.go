// File: internal/engine/scheduler.go
// Brief: Shared scheduling state for the concurrent execution path.

package engine

import "sync"

// scheduler owns the dispatch queue and completion bookkeeping for one run.
// One mutex guards node states, in-degrees, counters and the fail flag; the
// buffered dispatch channel replaces a manual condvar for worker wakeup.
// Capacity equals the node count, so sends under the lock never block.
type scheduler struct {
	mu sync.Mutex
	g  *graph

	dispatch chan int

	running   int
	completed int
	failed    bool
	firstErr  error
	closed    bool
}

func newScheduler(g *graph) *scheduler {
	s := &scheduler{g: g, dispatch: make(chan int, len(g.nodes))}
	for _, idx := range g.readyIndices() {
		s.dispatch <- idx
	}
	return s
}

// claim transitions a dispatched node to running. It returns false once a
// failure is visible: queued-but-unclaimed work is never started after
// fail-fast, while already-claimed siblings run to completion.
func (s *scheduler) claim(idx int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return false
	}
	n := s.g.nodes[idx]
	if n.state != stateReady {
		return false
	}
	n.state = stateRunning
	s.running++
	return true
}

// finish records a node outcome. On success, dependents' in-degrees drop and
// newly ready nodes enter the dispatch queue; on failure the fail flag stops
// further claims. The queue closes when everything completed or when a
// failure has drained all in-flight work.
func (s *scheduler) finish(idx int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.g.nodes[idx]
	s.running--
	s.completed++
	if err != nil {
		n.state = stateFailed
		s.failed = true
		if s.firstErr == nil {
			s.firstErr = err
		}
	} else {
		n.state = stateCompleted
		for _, depIdx := range n.dependents {
			d := s.g.nodes[depIdx]
			d.inDegree--
			if d.inDegree == 0 && d.state == statePending {
				d.state = stateReady
				s.dispatch <- depIdx
			}
		}
	}
	s.maybeClose()
}

// fail records an external abort reason (e.g. context cancellation) without
// a node attached.
func (s *scheduler) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = true
	if s.firstErr == nil {
		s.firstErr = err
	}
	s.maybeClose()
}

func (s *scheduler) maybeClose() {
	if s.closed {
		return
	}
	if s.completed == len(s.g.nodes) || (s.failed && s.running == 0) {
		s.closed = true
		close(s.dispatch)
	}
}

// result returns the terminal error after all workers joined. A failure with
// no recorded cause degrades to CommandFailed.
func (s *scheduler) result() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.failed {
		return nil
	}
	if s.firstErr != nil {
		return s.firstErr
	}
	return ErrCommandFailed
}
