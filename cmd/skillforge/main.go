// Package main implements the skillforge CLI: a gate-validated builder that
// turns a free-text prompt into a small, self-contained skill package.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/skillforge/internal/config"
	"github.com/fyrsmithlabs/skillforge/internal/gate"
	"github.com/fyrsmithlabs/skillforge/internal/logging"
	"github.com/fyrsmithlabs/skillforge/internal/pipeline"
)

var (
	// flag values
	configPath   string
	generatorCmd string
	outputDir    string

	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "skillforge",
	Short: "Gate-validated skill package builder",
	Long: `skillforge builds a self-contained skill package from a free-text prompt,
forcing the generated implementation through three ordered validation gates
(smoke, contract, integration) before any documentation is authored or the
package is published.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build <prompt>",
	Short: "Build a skill package from a prompt",
	Long: `Build a skill package from a free-text prompt.

The external generator command receives the gate name as its argument and a
YAML request on stdin, and must write the generated text to stdout.

Examples:
  # Build with a generator command
  skillforge build --generator ./gen.sh "summarize csv files from stdin"

  # Override the output directory
  skillforge build --generator ./gen.sh --output ./skills "count words"`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&generatorCmd, "generator", "", "content generator command (required)")
	buildCmd.Flags().StringVar(&outputDir, "output", "", "directory for the finished package (default from config)")
	_ = buildCmd.MarkFlagRequired("generator")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	cfg.Generator.Command = generatorCmd

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	gen := pipeline.NewCommandGenerator(cfg.Generator.Command, cfg.Generator.Timeout.Duration())
	controller := pipeline.New(cfg, gen, log)

	report, err := controller.Build(cmd.Context(), args[0])
	if err != nil {
		var aborted *gate.AbortedError
		if errors.As(err, &aborted) {
			fmt.Fprintf(cmd.ErrOrStderr(), "build aborted at %s gate after %d attempts:\n", aborted.Gate, len(aborted.History))
			for _, res := range aborted.History {
				fmt.Fprintf(cmd.ErrOrStderr(), "  attempt %d: %d/%d assertions failed (exit %d, timed out: %v)\n",
					res.Attempt, res.FailCount, res.TotalCount, res.ExitCode, res.TimedOut)
			}
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "built %s -> %s\n", report.Name, report.OutputDir)
	for _, g := range gate.AllGates() {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s gate: passed (attempts: %d)\n", g, report.Attempts[g])
	}
	return nil
}
