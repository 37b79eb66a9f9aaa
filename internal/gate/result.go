package gate

import (
	"strings"
	"time"
)

// Harness output prefixes. The generated test harness emits one line per
// assertion; matching is case-sensitive and all other output is ignored.
const (
	passPrefix = "  PASS: "
	failPrefix = "  FAIL: "
)

// Result is the structured outcome of one gate execution attempt.
type Result struct {
	Gate       Gate          `json:"gate"`
	Attempt    int           `json:"attempt"`
	PassCount  int           `json:"pass_count"`
	FailCount  int           `json:"fail_count"`
	TotalCount int           `json:"total_count"`
	ExitCode   int           `json:"exit_code"`
	TimedOut   bool          `json:"timed_out,omitempty"`
	RawOutput  string        `json:"raw_output,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// Passed reports whether this attempt clears the gate: a clean exit, no
// failed assertions, and at least one executed assertion. A run with zero
// assertions never passes; an empty or broken test file must not advance the
// pipeline. A timed-out run never passes either.
func (r *Result) Passed() bool {
	return !r.TimedOut && r.ExitCode == 0 && r.FailCount == 0 && r.TotalCount > 0
}

// Parse counts harness assertion lines in raw output and builds a Result.
// It trusts the harness's own bookkeeping and does not reinterpret assertion
// semantics.
func Parse(g Gate, raw string, exitCode int, timedOut bool) *Result {
	res := &Result{
		Gate:      g,
		ExitCode:  exitCode,
		TimedOut:  timedOut,
		RawOutput: raw,
	}

	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, passPrefix):
			res.PassCount++
		case strings.HasPrefix(line, failPrefix):
			res.FailCount++
		}
	}
	res.TotalCount = res.PassCount + res.FailCount

	return res
}
