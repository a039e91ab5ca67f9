package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fxdispatch/internal/harness"
	"github.com/roach88/fxdispatch/internal/ir"
	"github.com/roach88/fxdispatch/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Origin   string
	Scene    string
	Outcome  string
	Limit    int
}

// TraceEntry is one logged dispatch with its placements.
type TraceEntry struct {
	Dispatch   ir.DispatchRecord `json:"dispatch"`
	Placements []ir.PlacementRow `json:"placements"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Entries []TraceEntry `json:"entries"`
	Stats   TraceStats   `json:"stats"`
}

// TraceStats counts dispatches by outcome.
type TraceStats struct {
	Total      int `json:"total"`
	Success    int `json:"success"`
	NoMatch    int `json:"no_match"`
	Suppressed int `json:"suppressed"`
	Placements int `json:"placements"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show what the dispatch log recorded",
		Long: `Show logged dispatches and the placements each one produced.

Dispatches are listed in the order they happened. Filter by origin to see
every dispatch of one item use, including suppressed and deferred ones.

Examples:
  fxdispatch trace --db ./fx.db
  fxdispatch trace --db ./fx.db --origin Actor.abc.Item.def
  fxdispatch trace --db ./fx.db --outcome no_match --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Origin, "origin", "", "filter to one origin")
	cmd.Flags().StringVar(&opts.Scene, "scene", "", "filter to one scene")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "filter by outcome (success|no_match|suppressed)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of dispatches")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	// store.Open creates missing files; a trace of a nonexistent log is a
	// typo, not an empty log.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	dispatches, err := st.ReadDispatches(ctx, store.Filter{
		Origin:  opts.Origin,
		SceneID: opts.Scene,
		Outcome: ir.Outcome(opts.Outcome),
		Limit:   opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read dispatches", err)
	}

	result := TraceResult{Entries: make([]TraceEntry, 0, len(dispatches))}
	for _, d := range dispatches {
		rows, err := st.ReadPlacements(ctx, d.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read placements", err)
		}
		result.Entries = append(result.Entries, TraceEntry{Dispatch: d, Placements: rows})
		result.Stats.count(d.Outcome, len(rows))
	}

	if opts.Format == "json" {
		return (&OutputFormatter{Writer: cmd.OutOrStdout()}).JSON(CLIResponse{Status: "ok", Data: result})
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

func (s *TraceStats) count(o ir.Outcome, placements int) {
	s.Total++
	s.Placements += placements
	switch o {
	case ir.OutcomeSuccess:
		s.Success++
	case ir.OutcomeNoMatch:
		s.NoMatch++
	case ir.OutcomeSuppressed:
		s.Suppressed++
	}
}

func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "No dispatches found.")
		return nil
	}

	for _, e := range result.Entries {
		d := e.Dispatch
		fmt.Fprintf(w, "[%d] %s %s %s (%s)", d.Seq, d.ID, d.Outcome, d.Origin, d.ItemName)
		if d.DefinitionID != "" {
			fmt.Fprintf(w, " -> %s via %s", d.DefinitionID, d.Rule)
		}
		if d.Deferred {
			fmt.Fprint(w, " deferred")
		}
		if d.Reason != "" {
			fmt.Fprintf(w, " reason=%q", d.Reason)
		}
		fmt.Fprintln(w)

		for _, row := range e.Placements {
			fmt.Fprintf(w, "    %d: %s", row.Index, harness.FormatPlacement(&row.Placement))
			if verbose {
				fmt.Fprintf(w, " digest=%s", row.Digest)
			}
			fmt.Fprintln(w)
		}
	}

	s := result.Stats
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d dispatch(es): %d success, %d no match, %d suppressed; %d placement(s)\n",
		s.Total, s.Success, s.NoMatch, s.Suppressed, s.Placements)
	return nil
}
