package gate

import (
	"fmt"
)

// Status is the engine's position in one gate's lifecycle.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusAborted Status = "aborted"
)

// Phase labels for a finished pipeline, alongside the three gate names.
const (
	PhaseDone    = "done"
	PhaseAborted = "aborted"
)

// State tracks one build's progress through the gates. It is owned by exactly
// one build invocation and never shared across builds.
//
// Current advances monotonically Smoke -> Contract -> Integration -> done and
// never regresses; the only permitted loop is bounded retry of the same gate.
type State struct {
	current  Gate
	status   Status
	done     bool
	aborted  bool
	attempts map[Gate]int
	history  []*Result
}

// NewState creates a fresh state positioned at the smoke gate.
func NewState() *State {
	return &State{
		current:  Smoke,
		status:   StatusIdle,
		attempts: make(map[Gate]int),
	}
}

// Current returns the gate being worked. Meaningless once the pipeline is
// done or aborted; check Phase first.
func (s *State) Current() Gate {
	return s.current
}

// Status returns the engine status for the current gate.
func (s *State) Status() Status {
	return s.status
}

// Phase reports the pipeline position: a gate name, "done", or "aborted".
func (s *State) Phase() string {
	switch {
	case s.aborted:
		return PhaseAborted
	case s.done:
		return PhaseDone
	default:
		return string(s.current)
	}
}

// Done reports whether all three gates passed.
func (s *State) Done() bool {
	return s.done
}

// Aborted reports whether the build hit a fatal gate abort.
func (s *State) Aborted() bool {
	return s.aborted
}

// Attempts returns how many attempts have been recorded for g.
func (s *State) Attempts(g Gate) int {
	return s.attempts[g]
}

// History returns the append-only sequence of all recorded results.
func (s *State) History() []*Result {
	return append([]*Result(nil), s.history...)
}

// HistoryFor returns the recorded results for one gate, in order.
func (s *State) HistoryFor(g Gate) []*Result {
	var out []*Result
	for _, r := range s.history {
		if r.Gate == g {
			out = append(out, r)
		}
	}
	return out
}

// GatePassed reports whether history contains a passing result for g.
func (s *State) GatePassed(g Gate) bool {
	for _, r := range s.history {
		if r.Gate == g && r.Passed() {
			return true
		}
	}
	return false
}

// record appends a result and bumps the gate's attempt counter.
func (s *State) record(r *Result) {
	s.attempts[r.Gate]++
	r.Attempt = s.attempts[r.Gate]
	s.history = append(s.history, r)
}

// advance moves past the current gate after a pass.
func (s *State) advance() {
	next, ok := s.current.Next()
	if !ok {
		s.done = true
		s.status = StatusPassed
		return
	}
	s.current = next
	s.status = StatusIdle
}

// abort marks the build fatally failed at the current gate.
func (s *State) abort() {
	s.aborted = true
	s.status = StatusAborted
}

// checkEntry validates that g may be run now: the pipeline is live, g is the
// current gate, and every earlier gate has a passing result in history.
func (s *State) checkEntry(g Gate) error {
	if !g.Valid() {
		return fmt.Errorf("%w: unknown gate %q", ErrGateOrder, g)
	}
	if s.aborted {
		return fmt.Errorf("%w: build aborted at %s", ErrGateOrder, s.current)
	}
	if s.done {
		return fmt.Errorf("%w: build already finished", ErrGateOrder)
	}
	if g != s.current {
		return fmt.Errorf("%w: gate %s requested while %s is unresolved", ErrGateOrder, g, s.current)
	}
	for _, earlier := range AllGates()[:g.Index()] {
		if !s.GatePassed(earlier) {
			return fmt.Errorf("%w: gate %s has no passing result", ErrGateOrder, earlier)
		}
	}
	return nil
}
