package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/skillforge/internal/gate"
)

// Generator is the externally supplied content-generation capability. The
// controller is the only component that calls it; everything it returns is
// treated as opaque text to be written into the artifact.
type Generator interface {
	// DeriveName turns a free-text prompt into a kebab-case skill name.
	DeriveName(ctx context.Context, prompt string) (string, error)

	// Generate returns replacement or append text for the named gate, given a
	// summary of the gate's requirements and the existing content being
	// revised (empty for fresh content).
	Generate(ctx context.Context, gateName gate.Gate, requirements, existing string) (string, error)
}

// genRequest is the document piped to the generator command's stdin.
type genRequest struct {
	Requirements string `yaml:"requirements"`
	Existing     string `yaml:"existing,omitempty"`
}

// CommandGenerator adapts an external executable to the Generator contract.
// The command is invoked with the gate name (or "name" for name derivation)
// as its sole argument, receives a YAML request on stdin, and writes the
// generated text to stdout.
type CommandGenerator struct {
	command string
	timeout time.Duration
}

// NewCommandGenerator creates a generator backed by the given executable.
func NewCommandGenerator(command string, timeout time.Duration) *CommandGenerator {
	return &CommandGenerator{command: command, timeout: timeout}
}

// DeriveName implements Generator.
func (g *CommandGenerator) DeriveName(ctx context.Context, prompt string) (string, error) {
	out, err := g.invoke(ctx, "name", genRequest{Requirements: prompt})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Generate implements Generator.
func (g *CommandGenerator) Generate(ctx context.Context, gateName gate.Gate, requirements, existing string) (string, error) {
	return g.invoke(ctx, string(gateName), genRequest{Requirements: requirements, Existing: existing})
}

func (g *CommandGenerator) invoke(ctx context.Context, arg string, req genRequest) (string, error) {
	if g.command == "" {
		return "", fmt.Errorf("generator command is not configured")
	}

	payload, err := yaml.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding generator request: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, g.command, arg)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("generator timed out after %s", g.timeout)
		}
		return "", fmt.Errorf("generator failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
