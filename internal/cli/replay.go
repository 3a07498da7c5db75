package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irqtools/handoff/internal/harness"
	"github.com/irqtools/handoff/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <run-id> <scenario.yaml>",
		Short: "Re-run a scenario and verify it matches a recorded trace",
		Long: `Re-execute a scenario and compare the fresh trace event-by-event
against a recorded run.

A clean replay proves the recorded trace is reproducible from the scenario
alone. A divergence means the scenario file changed since the run was
recorded, or the database was modified.

Exit codes:
  0 - Replay is deterministic
  1 - Divergence detected
  2 - Command error (run not found, database not accessible, etc.)

Examples:
  handoff replay --db ./runs.db 0190cbb7-... scenarios/roundtrip.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, runID, scenarioPath string, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	sc, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", scenarioPath), err)
	}

	result, err := st.Replay(cmd.Context(), runID, sc)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("run %s not found", runID), err)
		}
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		if result.Deterministic {
			fmt.Fprintf(out, "replay ok: run %s matches %s (%d events)\n",
				result.RunID, result.Scenario, result.Events)
		} else {
			fmt.Fprintf(out, "replay DIVERGED: run %s vs %s\n", result.RunID, result.Scenario)
			for _, d := range result.Diffs {
				fmt.Fprintf(out, "  %s\n", d)
			}
		}
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "replay diverged from recorded trace")
	}
	return nil
}
