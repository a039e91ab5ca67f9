package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fxdispatch/internal/engine"
	"github.com/roach88/fxdispatch/internal/harness"
	"github.com/roach88/fxdispatch/internal/render"
)

// DispatchOptions holds flags for the dispatch command.
type DispatchOptions struct {
	*RootOptions
	EngineFlags
	Action string

	// IDs overrides the dispatch id generator (for testing).
	IDs engine.IDGenerator
}

// DispatchOutput is the outcome of one action event.
type DispatchOutput struct {
	Event      int      `json:"event"`
	Dispatched bool     `json:"dispatched"`
	DispatchID string   `json:"dispatch_id,omitempty"`
	Outcome    string   `json:"outcome,omitempty"`
	Rule       string   `json:"rule,omitempty"`
	Definition string   `json:"definition,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Deferred   bool     `json:"deferred,omitempty"`
	Error      string   `json:"error,omitempty"`
	Summary    string   `json:"-"`
	Lines      []string `json:"-"`
}

// DispatchResult is the dispatch command's output.
type DispatchResult struct {
	Dispatches []DispatchOutput `json:"dispatches"`
	Batches    []render.Batch   `json:"batches"`
	Sounds     []render.Sound   `json:"sounds"`
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	return newDispatchCommand(&DispatchOptions{RootOptions: rootOpts})
}

func newDispatchCommand(opts *DispatchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch <catalog>",
		Short: "Dispatch host action events against a catalog",
		Long: `Dispatch one or more host action events against a catalog and print the
placements that would play.

The catalog is a CUE directory or a JSON file written by compile. The
action file holds one event or a list of events in the host's native shape.
Delays are not waited for: delayed batches play immediately.

Example:
  fxdispatch dispatch ./catalog --scene scene.yaml --action attack.yaml
  fxdispatch dispatch catalog.json --scene scene.yaml --action attack.yaml --db fx.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(opts, args[0], cmd)
		},
	}

	opts.EngineFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Action, "action", "", "path to action event YAML (required)")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}

func runDispatch(opts *DispatchOptions, catalogPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := opts.snapshot(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	events, err := loadEvents(opts.Action)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load actions", err)
	}

	recorder := render.NewRecorder()
	engineOpts := []engine.EngineOption{engine.WithScheduler(engine.ImmediateScheduler{})}
	if opts.IDs != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(opts.IDs))
	}
	rt, err := newRuntime(ctx, catalogPath, cfg, &opts.EngineFlags, recorder, engineOpts...)
	if err != nil {
		return err
	}
	defer rt.Close()

	result := DispatchResult{}
	seen := 0
	for i, ev := range events {
		res, dispatched, err := rt.engine.HandleAction(ctx, ev)
		rt.engine.Flush(ctx)

		out := DispatchOutput{Event: i, Dispatched: dispatched}
		if dispatched {
			out.DispatchID = res.DispatchID
			out.Outcome = string(res.Outcome)
			out.Rule = res.Rule
			out.Definition = res.Definition
			out.Reason = res.Reason
			out.Deferred = res.Deferred
			out.Summary = describeResult(res)
		}
		if err != nil {
			out.Error = err.Error()
		}

		batches := recorder.Batches()
		for _, b := range batches[seen:] {
			for _, p := range b.Placements {
				out.Lines = append(out.Lines, harness.FormatPlacement(&p))
			}
		}
		seen = len(batches)
		result.Dispatches = append(result.Dispatches, out)
	}
	result.Batches = recorder.Batches()
	result.Sounds = recorder.Sounds()

	if opts.Format == "json" {
		return (&OutputFormatter{Writer: cmd.OutOrStdout()}).JSON(CLIResponse{Status: "ok", Data: result})
	}

	w := cmd.OutOrStdout()
	for _, out := range result.Dispatches {
		switch {
		case !out.Dispatched:
			fmt.Fprintf(w, "event %d: not dispatched\n", out.Event)
		default:
			fmt.Fprintf(w, "event %d: %s\n", out.Event, out.Summary)
		}
		if out.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", out.Error)
		}
		for _, line := range out.Lines {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	for _, s := range result.Sounds {
		fmt.Fprintf(w, "sound %s origin=%s\n", s.Cue.File, s.Origin)
	}
	return nil
}
