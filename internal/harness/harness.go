package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/fxdispatch/internal/catalog"
	"github.com/roach88/fxdispatch/internal/config"
	"github.com/roach88/fxdispatch/internal/engine"
	"github.com/roach88/fxdispatch/internal/host"
	"github.com/roach88/fxdispatch/internal/ir"
	"github.com/roach88/fxdispatch/internal/render"
	"github.com/roach88/fxdispatch/internal/store"
	"github.com/roach88/fxdispatch/internal/testutil"
)

// Harness is the scenario execution environment.
// It runs scenarios against a real engine with deterministic ids, time and
// randomness.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	sched    *testutil.ManualScheduler
	recorder *render.Recorder
	stage    *host.Stage
	notices  *host.NoticeRecorder
	logger   *slog.Logger

	// seen counts the batches and sounds already written to the trace.
	seenBatches int
	seenSounds  int
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Load the CUE catalog and the scene fixture
//  2. Apply config overrides to the default snapshot
//  3. Execute steps, checking expect clauses
//  4. Evaluate assertions against the final state
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	loaded, errs := catalog.LoadDir(scenario.Catalog, catalog.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load catalog: %w", errs[0])
	}

	scene, err := host.LoadScene(scenario.Scene)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene: %w", err)
	}

	cfg := config.Default()
	if scenario.Config.Kind != 0 {
		if err := scenario.Config.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to apply config overrides: %w", err)
		}
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:    st,
		sched:    testutil.NewManualScheduler(),
		recorder: render.NewRecorder(),
		stage:    host.NewStage(scene),
		notices:  &host.NoticeRecorder{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	registry := catalog.NewRegistry(loaded.Catalog, catalog.WithNotifier(h.notices))
	h.engine = engine.New(registry, h.stage,
		render.SceneMirror{Next: h.recorder, Scenes: render.StageScenes{Stage: h.stage}},
		engine.WithConfig(cfg),
		engine.WithStore(st),
		engine.WithNotifier(h.notices),
		engine.WithIDGenerator(testutil.NewSequentialIDs("d")),
		engine.WithScheduler(h.sched),
		engine.WithRand(testutil.FixedRand(0.5)),
	)

	result := NewResult()
	for i := range scenario.Steps {
		h.executeStep(ctx, i, &scenario.Steps[i], result)
	}

	actx := &AssertionContext{
		Ctx:      ctx,
		Store:    st,
		Engine:   h.engine,
		Recorder: h.recorder,
		SceneID:  scene.ID(),
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// executeStep runs one step and records what the renderer received.
func (h *Harness) executeStep(ctx context.Context, i int, step *Step, result *Result) {
	switch step.kind() {
	case StepAction:
		res, dispatched, err := h.engine.HandleAction(ctx, *step.Action)
		h.traceDispatch(i, res, dispatched, err, result)
		h.checkDispatch(i, step.Expect, res, dispatched, err, result)

	case StepTemplate:
		res, dispatched, err := h.engine.HandleTemplate(ctx, *step.Template)
		h.traceDispatch(i, res, dispatched, err, result)
		h.checkDispatch(i, step.Expect, res, dispatched, err, result)

	case StepRemoval:
		r := *step.Removal
		if s, ok := h.stage.Memory(r.SceneID); ok {
			s.RemoveEffects(r.Origin, r.Target)
		}
		h.engine.HandleRemoval(r)
		result.add(i, "removal", "origin=%s target=%s", r.Origin, r.Target)

	case StepSceneUnloaded:
		h.engine.HandleSceneUnload(step.SceneUnloaded)
		h.stage.Unload(step.SceneUnloaded)
		result.add(i, "unload", "scene=%s", step.SceneUnloaded)

	case StepMessageDeleted:
		n := h.engine.HandleRetraction(step.MessageDeleted)
		result.add(i, "retract", "message=%s cancelled=%d", step.MessageDeleted, n)
		if step.Expect != nil && step.Expect.Cancelled != nil && *step.Expect.Cancelled != n {
			result.AddError(fmt.Sprintf("steps[%d]: expected %d cancelled continuations, got %d", i, *step.Expect.Cancelled, n))
		}

	case StepAdvance:
		fired := h.sched.Advance(step.Advance)
		h.engine.Flush(ctx)
		result.add(i, "advance", "%s fired=%d", step.Advance, fired)
	}

	h.traceRenderer(i, result)

	h.logger.Info("step completed", "step", i, "kind", step.kind())
}

func (h *Harness) traceDispatch(i int, res engine.Result, dispatched bool, err error, result *Result) {
	if !dispatched {
		result.add(i, "skip", "not dispatched")
		return
	}
	detail := fmt.Sprintf("%s %s", res.DispatchID, res.Outcome)
	if res.Rule != "" {
		detail += " rule=" + res.Rule
	}
	if res.Definition != "" {
		detail += " definition=" + res.Definition
	}
	if res.Reason != "" {
		detail += fmt.Sprintf(" reason=%q", res.Reason)
	}
	if res.Delayed {
		detail += " delayed"
	}
	if err != nil {
		detail += fmt.Sprintf(" error=%q", err.Error())
	}
	result.add(i, "dispatch", "%s", detail)
}

// traceRenderer appends the batches and sounds received since the last call.
func (h *Harness) traceRenderer(i int, result *Result) {
	batches := h.recorder.Batches()
	for _, b := range batches[h.seenBatches:] {
		result.add(i, "batch", "%s origin=%s placements=%d", b.DispatchID, b.Origin, len(b.Placements))
		for j := range b.Placements {
			result.add(i, "placement", "%s", FormatPlacement(&b.Placements[j]))
		}
	}
	h.seenBatches = len(batches)

	sounds := h.recorder.Sounds()
	for _, s := range sounds[h.seenSounds:] {
		result.add(i, "sound", "%s origin=%s", s.Cue.File, s.Origin)
	}
	h.seenSounds = len(sounds)
}

// checkDispatch compares a dispatch against the step's expect clause.
func (h *Harness) checkDispatch(i int, exp *Expect, res engine.Result, dispatched bool, err error, result *Result) {
	if exp == nil {
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", i, err))
		}
		return
	}

	fail := func(field string, want, got any) {
		result.AddError(fmt.Sprintf("steps[%d]: expected %s %v, got %v", i, field, want, got))
	}

	wantDispatched := exp.Dispatched == nil || *exp.Dispatched
	if dispatched != wantDispatched {
		fail("dispatched", wantDispatched, dispatched)
		return
	}
	if !dispatched {
		return
	}

	switch {
	case exp.Error == "" && err != nil:
		result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", i, err))
	case exp.Error != "" && err == nil:
		fail("error", exp.Error, "none")
	case exp.Error != "" && !strings.Contains(err.Error(), exp.Error):
		fail("error", exp.Error, err.Error())
	}

	if exp.Outcome != "" && ir.Outcome(exp.Outcome) != res.Outcome {
		fail("outcome", exp.Outcome, res.Outcome)
	}
	if exp.Rule != "" && exp.Rule != res.Rule {
		fail("rule", exp.Rule, res.Rule)
	}
	if exp.Definition != "" && exp.Definition != res.Definition {
		fail("definition", exp.Definition, res.Definition)
	}
	if exp.Reason != "" && exp.Reason != res.Reason {
		fail("reason", exp.Reason, res.Reason)
	}
	if exp.Deferred != nil && *exp.Deferred != res.Deferred {
		fail("deferred", *exp.Deferred, res.Deferred)
	}
	if exp.Delayed != nil && *exp.Delayed != res.Delayed {
		fail("delayed", *exp.Delayed, res.Delayed)
	}
	if exp.Phases != nil {
		got := make([]string, len(res.Placements))
		for j, p := range res.Placements {
			got[j] = string(p.Phase)
		}
		if strings.Join(got, ",") != strings.Join(exp.Phases, ",") {
			fail("phases", exp.Phases, got)
		}
	}
}
