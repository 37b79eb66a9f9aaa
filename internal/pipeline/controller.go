// Package pipeline drives the phased, gate-validated skill build: name
// derivation, content generation, artifact writes, and the three gate runs,
// in a fixed order where each gate must pass before the next increment is
// authored.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/skillforge/internal/artifact"
	"github.com/fyrsmithlabs/skillforge/internal/config"
	"github.com/fyrsmithlabs/skillforge/internal/gate"
	"github.com/fyrsmithlabs/skillforge/internal/logging"
	"github.com/fyrsmithlabs/skillforge/internal/runner"
	"github.com/fyrsmithlabs/skillforge/internal/sanitize"
)

var tracer = otel.Tracer("skillforge.pipeline")

// ExecutorFactory builds the script executor for one build's scratch
// directory. Overridable in tests; defaults to the process runner.
type ExecutorFactory func(workDir string, log *zap.Logger) gate.ScriptExecutor

// Controller sequences one skill build end to end. A Controller is reusable;
// each Build call owns its own artifact store, pipeline state, and scratch
// directory, so independent builds may run concurrently.
type Controller struct {
	cfg         *config.Config
	gen         Generator
	log         *zap.Logger
	newExecutor ExecutorFactory
}

// BuildReport summarizes a finished build.
type BuildReport struct {
	BuildID   string
	Name      string
	Phase     string
	Attempts  map[gate.Gate]int
	History   []*gate.Result
	OutputDir string
	Artifact  *artifact.Artifact
}

// New creates a Controller.
func New(cfg *config.Config, gen Generator, log *zap.Logger) *Controller {
	return &Controller{
		cfg: cfg,
		gen: gen,
		log: log,
		newExecutor: func(workDir string, log *zap.Logger) gate.ScriptExecutor {
			return runner.New(workDir, log)
		},
	}
}

// Build runs the full twelve-step generation sequence for one prompt.
//
// Any outcome other than all three gates passing returns an error and exposes
// no artifact: the in-memory store is dropped and the scratch directory is
// removed. A gate abort error wraps *gate.AbortedError with the attempt
// history attached.
func (c *Controller) Build(ctx context.Context, prompt string) (*BuildReport, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Build")
	defer span.End()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	buildID := "build_" + uuid.New().String()

	// Step 1: derive the skill name from the prompt.
	name, err := c.gen.DeriveName(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("deriving skill name: %w", err)
	}
	name = strings.TrimSpace(name)
	if err := sanitize.ValidateSkillName(name); err != nil {
		return nil, fmt.Errorf("derived name rejected: %w", err)
	}

	log := logging.ForBuild(c.log, buildID, name)
	log.Info("starting build", zap.String("prompt", prompt))

	store := artifact.NewStore()
	state := gate.NewState()

	// Private scratch directory for script execution. Removed on every exit
	// path; only a fully passed build is persisted elsewhere.
	scratch, err := os.MkdirTemp(c.cfg.WorkDir, "skillforge-"+name+"-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	engine := gate.NewEngine(c.newExecutor(scratch, log), c.cfg.Gates, log)

	// Step 2: generate the initial implementation.
	if err := c.writeImplementation(ctx, store, gate.Smoke, implementationRequirements(name, prompt), ""); err != nil {
		return nil, err
	}

	// Step 3: write the test script: shared harness plus smoke assertions.
	smokeTests, err := c.gen.Generate(ctx, gate.Smoke, testRequirements(gate.Smoke, name, prompt), "")
	if err != nil {
		return nil, fmt.Errorf("generating smoke tests: %w", err)
	}
	if err := store.Write(sanitize.PathTestScript, []byte(harnessHeader+smokeTests)); err != nil {
		return nil, fmt.Errorf("writing test script: %w", err)
	}

	// Step 4: run the smoke gate.
	if err := c.runGate(ctx, engine, state, store, scratch, gate.Smoke, name, prompt); err != nil {
		return nil, err
	}

	// Step 5: append contract assertions to the test script.
	if err := c.appendTests(ctx, store, gate.Contract, name, prompt); err != nil {
		return nil, err
	}

	// Step 6: harden the implementation for the contract gate.
	if err := c.harden(ctx, store, gate.Contract, name, prompt); err != nil {
		return nil, err
	}

	// Step 7: run the contract gate.
	if err := c.runGate(ctx, engine, state, store, scratch, gate.Contract, name, prompt); err != nil {
		return nil, err
	}

	// Step 8: append integration assertions.
	if err := c.appendTests(ctx, store, gate.Integration, name, prompt); err != nil {
		return nil, err
	}

	// Step 9: harden the implementation for the integration gate.
	if err := c.harden(ctx, store, gate.Integration, name, prompt); err != nil {
		return nil, err
	}

	// Step 10: run the integration gate.
	if err := c.runGate(ctx, engine, state, store, scratch, gate.Integration, name, prompt); err != nil {
		return nil, err
	}

	// Step 11: author documentation, only now that all gates have passed.
	meta := artifact.Metadata{
		Name:        name,
		Description: prompt,
		Version:     c.cfg.Skill.Version,
		License:     c.cfg.Skill.License,
	}
	if err := c.writeDocs(ctx, store, meta, name, prompt); err != nil {
		return nil, err
	}

	// Step 12: persist the finished package.
	if !state.Done() {
		return nil, fmt.Errorf("pipeline ended in phase %s without completing", state.Phase())
	}
	if !store.Complete() {
		return nil, fmt.Errorf("artifact incomplete: %d of %d template files present",
			store.Len(), len(sanitize.CanonicalPaths()))
	}

	outDir := filepath.Join(c.cfg.OutputDir, name)
	if err := store.Persist(outDir); err != nil {
		return nil, fmt.Errorf("persisting artifact: %w", err)
	}

	log.Info("build complete",
		zap.String("output_dir", outDir),
		zap.Int("gate_results", len(state.History())))

	attempts := make(map[gate.Gate]int, len(gate.AllGates()))
	for _, g := range gate.AllGates() {
		attempts[g] = state.Attempts(g)
	}

	return &BuildReport{
		BuildID:   buildID,
		Name:      name,
		Phase:     state.Phase(),
		Attempts:  attempts,
		History:   state.History(),
		OutputDir: outDir,
		Artifact: &artifact.Artifact{
			ID:       buildID,
			Name:     name,
			Metadata: meta,
			Files:    store.Snapshot(),
		},
	}, nil
}

// writeImplementation generates run.sh content and writes it, enforcing the
// bash shebang the external interface requires.
func (c *Controller) writeImplementation(ctx context.Context, store *artifact.Store, g gate.Gate, requirements, existing string) error {
	impl, err := c.gen.Generate(ctx, g, requirements, existing)
	if err != nil {
		return fmt.Errorf("generating implementation: %w", err)
	}
	return store.Write(sanitize.PathRunScript, []byte(ensureShebang(impl)))
}

// appendTests generates the gate's assertions and appends them to the single
// test script. The ordering invariant that gate N-1 passed first is enforced
// by the engine's entry check plus the caller's sequencing.
func (c *Controller) appendTests(ctx context.Context, store *artifact.Store, g gate.Gate, name, prompt string) error {
	existing, err := store.Read(sanitize.PathTestScript)
	if err != nil {
		return fmt.Errorf("reading test script: %w", err)
	}
	assertions, err := c.gen.Generate(ctx, g, testRequirements(g, name, prompt), string(existing))
	if err != nil {
		return fmt.Errorf("generating %s tests: %w", g, err)
	}
	if !strings.HasSuffix(string(existing), "\n") {
		assertions = "\n" + assertions
	}
	return store.Append(sanitize.PathTestScript, []byte(assertions))
}

// harden regenerates run.sh against the next gate's requirements.
func (c *Controller) harden(ctx context.Context, store *artifact.Store, g gate.Gate, name, prompt string) error {
	existing, err := store.Read(sanitize.PathRunScript)
	if err != nil {
		return fmt.Errorf("reading implementation: %w", err)
	}
	return c.writeImplementation(ctx, store, g, hardenRequirements(g, name, prompt), string(existing))
}

// runGate syncs the store to the scratch directory and drives the gate to
// resolution. Between failed attempts the revise callback regenerates the
// implementation and re-syncs, so the rerun sees the new content.
func (c *Controller) runGate(ctx context.Context, engine *gate.Engine, state *gate.State, store *artifact.Store, scratch string, g gate.Gate, name, prompt string) error {
	ctx, span := tracer.Start(ctx, "pipeline.runGate."+string(g))
	defer span.End()

	if err := store.Persist(scratch); err != nil {
		return fmt.Errorf("staging scratch dir: %w", err)
	}

	spec := gate.RunSpec{
		Gate:       g,
		ScriptPath: filepath.Join(scratch, filepath.FromSlash(sanitize.PathTestScript)),
		Revise: func(ctx context.Context, attempt int, last *gate.Result) error {
			existing, err := store.Read(sanitize.PathRunScript)
			if err != nil {
				return err
			}
			if err := c.writeImplementation(ctx, store, g, reviseRequirements(g, name, last), string(existing)); err != nil {
				return err
			}
			return store.Persist(scratch)
		},
	}

	res, err := engine.Run(ctx, state, spec)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%s gate: %w", g, err)
	}
	span.AddEvent("gate passed", trace.WithAttributes(
		attribute.Int("attempt", res.Attempt),
		attribute.Int("assertions", res.TotalCount)))
	return nil
}

// writeDocs authors SKILL.md (frontmatter plus body) and the examples file.
func (c *Controller) writeDocs(ctx context.Context, store *artifact.Store, meta artifact.Metadata, name, prompt string) error {
	body, err := c.gen.Generate(ctx, gate.Integration, docRequirements(name, prompt), "")
	if err != nil {
		return fmt.Errorf("generating skill doc: %w", err)
	}

	doc, err := meta.Render(body)
	if err != nil {
		return err
	}
	// Round-trip the header so a frontmatter defect fails the build here, not
	// in a consumer.
	if _, err := artifact.ParseFrontmatter(doc); err != nil {
		return err
	}
	if err := store.Write(sanitize.PathSkillDoc, doc); err != nil {
		return fmt.Errorf("writing skill doc: %w", err)
	}

	examples, err := c.gen.Generate(ctx, gate.Integration, examplesRequirements(name, prompt), "")
	if err != nil {
		return fmt.Errorf("generating examples: %w", err)
	}
	if err := store.Write(sanitize.PathExamples, []byte(examples)); err != nil {
		return fmt.Errorf("writing examples: %w", err)
	}
	return nil
}

// bashShebang is the exact interpreter line the published run.sh must open
// with.
const bashShebang = "#!/usr/bin/env bash"

// ensureShebang guarantees run.sh opens with the required interpreter line.
// A foreign interpreter line (e.g. #!/bin/sh) is replaced, not kept: the
// runner always executes scripts under bash, so a wrong shebang would survive
// every gate and only break consumers of the published package.
func ensureShebang(script string) string {
	if script == bashShebang || strings.HasPrefix(script, bashShebang+"\n") {
		return script
	}
	if strings.HasPrefix(script, "#!") {
		if i := strings.IndexByte(script, '\n'); i >= 0 {
			return bashShebang + script[i:]
		}
		return bashShebang + "\n"
	}
	return bashShebang + "\n\n" + script
}

// SetExecutorFactory overrides how script executors are built. Test hook.
func (c *Controller) SetExecutorFactory(f ExecutorFactory) {
	c.newExecutor = f
}
