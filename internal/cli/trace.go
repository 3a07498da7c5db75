package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irqtools/handoff/internal/store"
	"github.com/irqtools/handoff/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// TraceOutput is the trace command's JSON payload for a single run.
type TraceOutput struct {
	Run    store.RunRecord `json:"run"`
	Events []trace.Event   `json:"events"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "List recorded runs or dump one run's trace",
		Long: `Inspect runs recorded by "handoff run --db".

Without a run id, lists all recorded runs, newest first. With a run id,
dumps that run's full trace in seq order.

Examples:
  handoff trace --db ./runs.db
  handoff trace --db ./runs.db 0190cbb7-... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, args []string, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if len(args) == 0 {
		return listRuns(st, formatter, cmd)
	}
	return dumpRun(st, formatter, cmd, args[0])
}

func listRuns(st *store.Store, formatter *OutputFormatter, cmd *cobra.Command) error {
	runs, err := st.ListRuns(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no recorded runs")
		return nil
	}
	for _, rec := range runs {
		status := "PASS"
		if !rec.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(out, "%s  %s  %s  %s\n", rec.ID, status, rec.Scenario, rec.CreatedAt)
	}
	return nil
}

func dumpRun(st *store.Store, formatter *OutputFormatter, cmd *cobra.Command, runID string) error {
	rec, events, err := st.ReadRun(cmd.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("run %s not found", runID), err)
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(TraceOutput{Run: rec, Events: events})
	}

	out := cmd.OutOrStdout()
	status := "PASS"
	if !rec.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(out, "run %s  %s  scenario=%s  recorded=%s\n", rec.ID, status, rec.Scenario, rec.CreatedAt)
	for _, ev := range events {
		fmt.Fprintf(out, "  [%d] %s %s -> %s", ev.Seq, ev.Ctx, ev.Op, ev.Outcome)
		if ev.Value != nil {
			fmt.Fprintf(out, " value=%d", *ev.Value)
		}
		if ev.Prev != nil {
			fmt.Fprintf(out, " prev=%d", *ev.Prev)
		}
		fmt.Fprintf(out, " (%s)\n", ev.StateAfter)
	}
	return nil
}
