// Package runner executes generated scripts as external processes with
// bounded wall-clock time and full output capture.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Result captures one script execution.
//
// TimedOut is a distinct outcome from a non-zero exit: a hang points at an
// infinite loop or a blocking read, not a handled error path.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	TimedOut bool
	Duration time.Duration
}

// Runner executes scripts from a working directory.
type Runner struct {
	workDir string
	log     *zap.Logger
}

// New creates a Runner. workDir is the directory scripts execute in; the
// logger may be zap.NewNop() for tests.
func New(workDir string, log *zap.Logger) *Runner {
	return &Runner{workDir: workDir, log: log}
}

// Execute runs scriptPath with stdin piped to the process, enforcing timeout.
//
// On timeout the whole process group is killed and a Result with TimedOut set
// is returned; the partial output captured up to that point is preserved. An
// error return means the script could not be run at all, which is a builder
// defect and fatal to the build.
func (r *Runner) Execute(ctx context.Context, scriptPath, stdin string, timeout time.Duration) (*Result, error) {
	if scriptPath == "" {
		return nil, fmt.Errorf("script path is required")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", timeout)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "bash", scriptPath)
	cmd.Dir = r.workDir
	cmd.Stdin = strings.NewReader(stdin)

	// Own process group so the entire tree dies on timeout, not just bash.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start script %s: %w", scriptPath, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case <-runCtx.Done():
		if cmd.Process != nil {
			// Negative PID targets the process group.
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done

		if ctx.Err() != nil && !errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			// Parent cancellation, not the script's timeout.
			return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
		}

		elapsed := time.Since(start)
		r.log.Warn("script timed out",
			zap.String("script", scriptPath),
			zap.Duration("timeout", timeout))
		return &Result{
			ExitCode: -1,
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
			TimedOut: true,
			Duration: elapsed,
		}, nil

	case waitErr = <-done:
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("failed to execute script %s: %w", scriptPath, waitErr)
		}
	}

	elapsed := time.Since(start)
	r.log.Debug("script finished",
		zap.String("script", scriptPath),
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", elapsed))

	return &Result{
		ExitCode: exitCode,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: elapsed,
	}, nil
}
