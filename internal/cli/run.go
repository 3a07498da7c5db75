package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/irqtools/handoff/internal/harness"
	"github.com/irqtools/handoff/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// Tokens allows overriding the run token generator (for testing).
	// If nil, defaults to UUIDv7Tokens.
	Tokens store.TokenGenerator
}

// ScenarioResult summarizes one executed scenario.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Events int      `json:"events"`
	RunID  string   `json:"run_id,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// RunSummary is the run command's output payload.
type RunSummary struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Total     int              `json:"total"`
	Failed    int              `json:"failed"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run conformance scenarios on the simulated core",
		Long: `Run one or more scenario files against the handoff primitive on a
simulated single core.

Each scenario constructs a fresh cell bound to its stated context, executes
the step sequence, and validates expect clauses and assertions. With --db,
every run's trace is recorded for later inspection and replay.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing files, database not accessible, etc.)

Examples:
  handoff run scenarios/roundtrip.yaml
  handoff run --db ./runs.db scenarios/*.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for recording runs")

	return cmd
}

func runScenarios(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	var st *store.Store
	if opts.Database != "" {
		logger.Debug("opening database", "path", opts.Database)
		var err error
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	tokens := opts.Tokens
	if tokens == nil {
		tokens = store.UUIDv7Tokens{}
	}

	summary := RunSummary{}
	for _, path := range paths {
		sc, err := harness.LoadScenario(path)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", path), err)
		}

		logger.Debug("running scenario", "name", sc.Name, "steps", len(sc.Steps))
		result, err := harness.Run(sc)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("scenario %s failed to run", sc.Name), err)
		}

		sr := ScenarioResult{
			Name:   sc.Name,
			Pass:   result.Pass,
			Events: len(result.Trace),
			Errors: result.Errors,
		}
		if st != nil {
			runID, err := st.WriteRun(cmd.Context(), sc.Name, result.Pass, result.Trace, tokens)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to record run", err)
			}
			sr.RunID = runID
			logger.Debug("run recorded", "run_id", runID)
		}

		summary.Scenarios = append(summary.Scenarios, sr)
		summary.Total++
		if !result.Pass {
			summary.Failed++
		}
	}

	if err := outputSummary(opts.RootOptions, cmd, summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("%d of %d scenario(s) failed", summary.Failed, summary.Total))
	}
	return nil
}

func outputSummary(opts *RootOptions, cmd *cobra.Command, summary RunSummary) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if opts.Format == "json" {
		return formatter.Success(summary)
	}

	out := cmd.OutOrStdout()
	for _, sr := range summary.Scenarios {
		status := "PASS"
		if !sr.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(out, "%s  %s (%d events)", status, sr.Name, sr.Events)
		if sr.RunID != "" {
			fmt.Fprintf(out, "  run=%s", sr.RunID)
		}
		fmt.Fprintln(out)
		for _, msg := range sr.Errors {
			fmt.Fprintf(out, "      %s\n", msg)
		}
	}
	fmt.Fprintf(out, "%d scenario(s), %d failed\n", summary.Total, summary.Failed)
	return nil
}
