package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/skillforge/internal/config"
	"github.com/fyrsmithlabs/skillforge/internal/runner"
)

// Engine errors.
var (
	// ErrGateOrder indicates a gate was invoked out of sequence.
	ErrGateOrder = errors.New("gate ordering violation")
)

// AbortedError is returned when a gate exhausts its retry ceiling. It carries
// the gate's full attempt history for diagnosis.
type AbortedError struct {
	Gate    Gate
	History []*Result
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("gate %s aborted after %d attempts", e.Gate, len(e.History))
}

// ScriptExecutor runs a test script. Satisfied by *runner.Runner.
type ScriptExecutor interface {
	Execute(ctx context.Context, scriptPath, stdin string, timeout time.Duration) (*runner.Result, error)
}

// ReviseFunc is invoked after a failed attempt, before the same gate is
// retried, so the caller can revise implementation content. attempt is the
// attempt that just failed. A ReviseFunc error is structural and aborts the
// build immediately.
type ReviseFunc func(ctx context.Context, attempt int, last *Result) error

// RunSpec describes one gate run.
type RunSpec struct {
	// Gate must be the state's current gate.
	Gate Gate

	// ScriptPath is the on-disk test script to execute.
	ScriptPath string

	// Stdin is piped to the script.
	Stdin string

	// Revise is called between failed attempts. Nil disables revision; the
	// gate is then rerun as-is.
	Revise ReviseFunc
}

// Engine runs gates against a state, enforcing ordering, bounded retry, and
// abort conditions. Gates are cumulative pass-once barriers: the only loop is
// revise-and-rerun of the same gate.
type Engine struct {
	exec ScriptExecutor
	cfg  config.GatesConfig
	log  *zap.Logger
}

// NewEngine creates an engine. cfg must already be validated.
func NewEngine(exec ScriptExecutor, cfg config.GatesConfig, log *zap.Logger) *Engine {
	return &Engine{exec: exec, cfg: cfg, log: log}
}

// Timeout returns the wall-clock bound for one run of g.
func (e *Engine) Timeout(g Gate) time.Duration {
	switch g {
	case Smoke:
		return config.SmokeTimeout
	case Contract:
		return e.cfg.ContractTimeout.Duration()
	default:
		return e.cfg.IntegrationTimeout.Duration()
	}
}

// Run drives one gate to resolution: execute, parse, and on failure hand
// control back through spec.Revise before retrying, up to the retry ceiling.
//
// Returns the passing Result, or an *AbortedError once the ceiling is hit.
// Any other error is structural and fatal to the build.
func (e *Engine) Run(ctx context.Context, st *State, spec RunSpec) (*Result, error) {
	if err := st.checkEntry(spec.Gate); err != nil {
		return nil, err
	}

	timeout := e.Timeout(spec.Gate)

	for {
		st.status = StatusRunning
		attempt := st.Attempts(spec.Gate) + 1
		e.log.Info("running gate",
			zap.String("gate", string(spec.Gate)),
			zap.Int("attempt", attempt),
			zap.Duration("timeout", timeout))

		outcome, err := e.exec.Execute(ctx, spec.ScriptPath, spec.Stdin, timeout)
		if err != nil {
			// Structural failure: the script could not be run at all.
			st.abort()
			return nil, fmt.Errorf("executing %s gate script: %w", spec.Gate, err)
		}

		res := Parse(spec.Gate, harnessOutput(outcome), outcome.ExitCode, outcome.TimedOut)
		res.Duration = outcome.Duration
		st.record(res)

		if res.Passed() {
			st.advance()
			e.log.Info("gate passed",
				zap.String("gate", string(spec.Gate)),
				zap.Int("attempt", res.Attempt),
				zap.Int("assertions", res.TotalCount))
			return res, nil
		}

		st.status = StatusFailed
		e.log.Warn("gate failed",
			zap.String("gate", string(spec.Gate)),
			zap.Int("attempt", res.Attempt),
			zap.Int("pass", res.PassCount),
			zap.Int("fail", res.FailCount),
			zap.Int("exit_code", res.ExitCode),
			zap.Bool("timed_out", res.TimedOut))

		if res.Attempt >= e.cfg.RetryCeiling {
			st.abort()
			return nil, &AbortedError{Gate: spec.Gate, History: st.HistoryFor(spec.Gate)}
		}

		if spec.Revise != nil {
			if err := spec.Revise(ctx, res.Attempt, res); err != nil {
				st.abort()
				return nil, fmt.Errorf("revising after %s gate attempt %d: %w", spec.Gate, res.Attempt, err)
			}
		}
		st.status = StatusIdle
	}
}

// harnessOutput joins stdout and stderr for parsing. The harness writes its
// assertion lines to stdout, but a generated script that mixes streams should
// still be counted.
func harnessOutput(o *runner.Result) string {
	if len(o.Stderr) == 0 {
		return string(o.Stdout)
	}
	var b strings.Builder
	b.Write(o.Stdout)
	if len(o.Stdout) > 0 && o.Stdout[len(o.Stdout)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.Write(o.Stderr)
	return b.String()
}
