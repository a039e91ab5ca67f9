package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/fxdispatch/internal/engine"
	"github.com/roach88/fxdispatch/internal/ir"
	"github.com/roach88/fxdispatch/internal/render"
	"github.com/roach88/fxdispatch/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, line := range strings.Split(strings.TrimRight(FormatTrace(e.Trace), "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// AssertionContext provides the final state assertions read.
type AssertionContext struct {
	Ctx      context.Context
	Store    *store.Store
	Engine   *engine.Engine
	Recorder *render.Recorder
	SceneID  string
}

// EvaluateAssertions evaluates all assertions against the final state.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertBatchCount:
			err = assertCount(result.Trace, assertion, len(actx.Recorder.Batches()))
		case AssertSoundCount:
			err = assertCount(result.Trace, assertion, len(actx.Recorder.Sounds()))
		case AssertGuardState:
			err = assertGuardState(result.Trace, assertion, actx)
		case AssertPending:
			err = assertPending(result.Trace, assertion, actx.Engine)
		case AssertDispatchLog:
			err = assertDispatchLog(result.Trace, assertion, actx)
		case AssertPlacement:
			err = assertPlacement(result.Trace, assertion, actx.Recorder.Batches())
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertCount(trace []TraceEvent, a Assertion, got int) error {
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d", a.Count),
		Actual:   fmt.Sprintf("%d", got),
		Trace:    trace,
	}
}

func assertGuardState(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	got := actx.Engine.Guard().State(a.Origin, actx.SceneID)
	if string(got) == a.State {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("origin %s %s", a.Origin, a.State),
		Actual:   string(got),
		Trace:    trace,
	}
}

func assertPending(trace []TraceEvent, a Assertion, e *engine.Engine) error {
	deferred, scheduled := e.Pending()
	if deferred == a.Deferred && scheduled == a.Scheduled {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("deferred=%d scheduled=%d", a.Deferred, a.Scheduled),
		Actual:   fmt.Sprintf("deferred=%d scheduled=%d", deferred, scheduled),
		Trace:    trace,
	}
}

// assertDispatchLog counts logged dispatches, filtered by outcome when set.
func assertDispatchLog(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	rows, err := actx.Store.ReadDispatches(actx.Ctx, store.Filter{Outcome: ir.Outcome(a.Outcome)})
	if err != nil {
		return fmt.Errorf("dispatch_log: %w", err)
	}
	if len(rows) == a.Count {
		return nil
	}
	what := "dispatches"
	if a.Outcome != "" {
		what = a.Outcome + " dispatches"
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d %s", a.Count, what),
		Actual:   fmt.Sprintf("%d", len(rows)),
		Trace:    trace,
	}
}

func assertPlacement(trace []TraceEvent, a Assertion, batches []render.Batch) error {
	if a.Batch >= len(batches) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("batch %d", a.Batch),
			Actual:   fmt.Sprintf("%d batches", len(batches)),
			Trace:    trace,
		}
	}
	ps := batches[a.Batch].Placements
	if a.Index >= len(ps) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("placement %d of batch %d", a.Index, a.Batch),
			Actual:   fmt.Sprintf("%d placements", len(ps)),
			Trace:    trace,
		}
	}

	p := ps[a.Index]
	var diffs []string
	if a.Phase != "" && a.Phase != string(p.Phase) {
		diffs = append(diffs, fmt.Sprintf("phase %s != %s", p.Phase, a.Phase))
	}
	if a.File != "" && a.File != p.File {
		diffs = append(diffs, fmt.Sprintf("file %s != %s", p.File, a.File))
	}
	if a.Location != "" && a.Location != FormatLocation(p.Location) {
		diffs = append(diffs, fmt.Sprintf("location %s != %s", FormatLocation(p.Location), a.Location))
	}
	if len(diffs) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("batch %d placement %d: phase=%s file=%s location=%s", a.Batch, a.Index, a.Phase, a.File, a.Location),
		Actual:   strings.Join(diffs, "; "),
		Trace:    trace,
	}
}
