package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/fxdispatch/internal/config"
	"github.com/roach88/fxdispatch/internal/geometry"
	"github.com/roach88/fxdispatch/internal/guard"
	"github.com/roach88/fxdispatch/internal/host"
	"github.com/roach88/fxdispatch/internal/ir"
	"github.com/roach88/fxdispatch/internal/matcher"
	"github.com/roach88/fxdispatch/internal/normalize"
	"github.com/roach88/fxdispatch/internal/render"
	"github.com/roach88/fxdispatch/internal/sequence"
	"github.com/roach88/fxdispatch/internal/store"
	"github.com/roach88/fxdispatch/internal/telemetry"
)

// Catalog is the definition registry the engine matches against.
// *catalog.Registry implements it.
type Catalog interface {
	matcher.Definitions
	Hash() string
}

// Result is the outcome of one dispatch.
type Result struct {
	DispatchID string
	Seq        int64
	Outcome    ir.Outcome
	Rule       string
	Definition string
	Reason     string

	// Deferred is set when a template animation waits for its template.
	Deferred bool

	// Delayed is set when the batch was held back by the global delay.
	Delayed bool

	// Placements is the compiled list handed (or due) to the renderer.
	Placements []ir.Placement
}

// Engine is the dispatch pipeline plus its single-writer event loop.
//
// Thread-safety model:
//   - Dispatch and the Handle* methods: safe from any goroutine; the guard
//     checks and records played targets in one step, so concurrent
//     dispatches of one origin never both emit a target
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//
// Deferred templates and scheduled continuations are engine-owned; the
// guard is shared with nothing outside the pipeline.
type Engine struct {
	catalog    Catalog
	matcher    *matcher.Matcher
	scenes     host.Scenes
	renderer   render.Renderer
	notifier   host.Notifier
	normalizer *normalize.Normalizer
	guard      *guard.Guard
	store      *store.Store
	clock      *Clock
	ids        IDGenerator
	sched      Scheduler
	tracer     trace.Tracer
	rand       geometry.Rand
	queue      *eventQueue

	cfg atomic.Pointer[config.Snapshot]

	mu               sync.Mutex
	deferred         map[string]deferral
	deferSeq         uint64
	tasks            map[uint64]*task
	nextTask         uint64
	disabledNotified bool
}

type deferral struct {
	seq uint64
	cfg config.Snapshot
	rec ir.ActionRecord
}

type task struct {
	messageID string
	origin    string
	sceneID   string
	stop      func() bool
	run       func(ctx context.Context) error

	// releaseOnCancel returns the origin to idle when a held-back batch is
	// dropped before it reached the renderer.
	releaseOnCancel bool
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithStore logs every dispatch to s.
func WithStore(s *store.Store) EngineOption {
	return func(e *Engine) { e.store = s }
}

// WithNotifier sets where user notifications go. Default: the log.
func WithNotifier(n host.Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

// WithNormalizer replaces the normalizer built from the initial config.
func WithNormalizer(n *normalize.Normalizer) EngineOption {
	return func(e *Engine) { e.normalizer = n }
}

// WithMatcher replaces the default rule order.
func WithMatcher(m *matcher.Matcher) EngineOption {
	return func(e *Engine) { e.matcher = m }
}

// WithIDGenerator sets how dispatch ids are minted.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) { e.ids = g }
}

// WithScheduler sets the continuation scheduler. Default: wall clock.
func WithScheduler(s Scheduler) EngineOption {
	return func(e *Engine) { e.sched = s }
}

// WithTracer sets the dispatch tracer. Default: the global provider.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

// WithRand sets the randomness behind fake-source points.
func WithRand(r geometry.Rand) EngineOption {
	return func(e *Engine) { e.rand = r }
}

// WithClock resumes the logical clock, e.g. from store.LastSeq.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithGuard shares a playback guard.
func WithGuard(g *guard.Guard) EngineOption {
	return func(e *Engine) { e.guard = g }
}

// WithConfig sets the initial configuration snapshot.
func WithConfig(cfg config.Snapshot) EngineOption {
	return func(e *Engine) { e.cfg.Store(&cfg) }
}

// New creates an Engine over a catalog, the host scenes and a renderer.
//
// The normalizer's local user is read from the initial configuration.
func New(cat Catalog, scenes host.Scenes, r render.Renderer, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:  cat,
		matcher:  matcher.New(),
		scenes:   scenes,
		renderer: r,
		notifier: host.LogNotifier{},
		guard:    guard.New(),
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		sched:    WallScheduler{},
		tracer:   telemetry.Tracer(),
		rand:     wallRand{},
		queue:    newEventQueue(),
		deferred: make(map[string]deferral),
		tasks:    make(map[uint64]*task),
	}
	def := config.Default()
	e.cfg.Store(&def)

	for _, opt := range opts {
		opt(e)
	}

	if e.normalizer == nil {
		e.normalizer = normalize.New(e.Config().LocalUserID)
	}
	return e
}

// Config returns the snapshot used for loop events.
func (e *Engine) Config() config.Snapshot {
	return *e.cfg.Load()
}

// SetConfig replaces the snapshot used for loop events. Dispatches already
// in flight keep the snapshot they started with.
func (e *Engine) SetConfig(cfg config.Snapshot) {
	e.cfg.Store(&cfg)
}

// Guard returns the playback guard.
func (e *Engine) Guard() *guard.Guard {
	return e.guard
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Dispatch runs rec through the pipeline under cfg.
//
// The error is non-nil only for an unusable snapshot, a renderer failure or
// a dispatch log failure; the Result is meaningful either way. No match and
// suppression are outcomes, not errors.
func (e *Engine) Dispatch(ctx context.Context, cfg config.Snapshot, rec ir.ActionRecord) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "fxdispatch.dispatch", trace.WithAttributes(
		attribute.String("fxdispatch.origin", rec.Origin),
		attribute.String("fxdispatch.item", rec.NormalizedName),
		attribute.String("fxdispatch.system", rec.SystemID),
		attribute.String("fxdispatch.scene", rec.SceneID),
	))
	defer span.End()

	res, err := e.dispatch(ctx, cfg, &rec)

	span.SetAttributes(
		attribute.String("fxdispatch.outcome", string(res.Outcome)),
		attribute.String("fxdispatch.rule", res.Rule),
		attribute.Int("fxdispatch.placements", len(res.Placements)),
		attribute.Bool("fxdispatch.deferred", res.Deferred),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (e *Engine) dispatch(ctx context.Context, cfg config.Snapshot, rec *ir.ActionRecord) (Result, error) {
	if err := checkConfig(cfg); err != nil {
		slog.Warn("dispatch refused", "origin", rec.Origin, "error", err)
		return Result{Outcome: ir.OutcomeSuppressed, Reason: "invalid configuration"}, err
	}

	res := Result{DispatchID: e.ids.Generate()}

	if !cfg.Enabled {
		e.notifyDisabled()
		return e.finish(ctx, rec, suppressed(res, "disabled"))
	}

	if rec.Kill || cfg.IsExcluded(rec.NormalizedName) {
		e.guard.Arm(rec.Origin, rec.SceneID)
		reason := "excluded"
		if rec.Kill {
			reason = "kill switch"
		}
		return e.finish(ctx, rec, suppressed(res, reason))
	}

	m, ok := e.matcher.Match(rec, e.catalog)
	if !ok {
		res.Outcome = ir.OutcomeNoMatch
		if len(m.Skipped) > 0 {
			res.Reason = "unusable: " + strings.Join(m.Skipped, ", ")
		}
		return e.finish(ctx, rec, res)
	}
	def := m.Definition
	res.Rule = m.Rule
	res.Definition = def.ID

	if def.IsTemplateAnimation() && rec.Template == nil {
		e.deferTemplate(cfg, *rec)
		res.Outcome = ir.OutcomeSuccess
		res.Deferred = true
		res.Reason = "waiting for template"
		return e.finish(ctx, rec, res)
	}

	var scene host.Scene
	if s, ok := e.scenes.Scene(rec.SceneID); ok {
		scene = s
	}
	geo := geometry.Resolve(scene, rec, def, geometry.Options{
		EdgeDistance: cfg.UsesEdgeDistance(rec.SystemID),
		Rand:         e.rand,
	})

	placements := sequence.Compile(sequence.Input{
		Record:     rec,
		Definition: def,
		Geometry:   geo,
		Played:     e.guard.PlayedTargets(rec.Origin, rec.SceneID, rec.MessageID),
		PlayOnMiss: cfg.PlayOnMiss,
		Overlays:   sequence.Overlays{Critical: cfg.CriticalFile, Fumble: cfg.FumbleFile},
	})
	placements = e.guard.Claim(rec.Origin, rec.SceneID, rec.MessageID, placements)
	if len(placements) == 0 {
		return e.finish(ctx, rec, suppressed(res, "nothing left to play"))
	}

	res.Outcome = ir.OutcomeSuccess
	res.Placements = placements

	batch := render.Batch{
		DispatchID: res.DispatchID,
		ModuleName: cfg.ModuleName,
		SoftFail:   cfg.SoftFail(),
		SceneID:    rec.SceneID,
		Origin:     rec.Origin,
		Placements: placements,
	}

	var renderErr error
	if cfg.GlobalDelay > 0 {
		res.Delayed = true
		e.schedule(rec, cfg.GlobalDelay, true, func(ctx context.Context) error {
			return e.render(ctx, batch, def.ID)
		})
	} else {
		renderErr = e.render(ctx, batch, def.ID)
	}

	if rec.Sound != nil && renderErr == nil {
		sound := render.Sound{SceneID: rec.SceneID, Origin: rec.Origin, Cue: *rec.Sound}
		delay := cfg.GlobalDelay + time.Duration(rec.Sound.DelayMs)*time.Millisecond
		e.schedule(rec, delay, false, func(ctx context.Context) error {
			if err := e.renderer.PlaySound(ctx, sound); err != nil {
				slog.Error("item sound failed", "origin", sound.Origin, "file", sound.Cue.File, "error", err)
				return newRenderError(sound.Origin, def.ID, err)
			}
			return nil
		})
	}

	res, err := e.finish(ctx, rec, res)
	if renderErr != nil {
		return res, renderErr
	}
	return res, err
}

func suppressed(res Result, reason string) Result {
	res.Outcome = ir.OutcomeSuppressed
	res.Reason = reason
	return res
}

// checkConfig rejects snapshots no dispatch can run under.
func checkConfig(cfg config.Snapshot) error {
	if cfg.ModuleName == "" {
		return newConfigError("module name is required")
	}
	if cfg.GlobalDelay < 0 {
		return newConfigError("global delay must not be negative, got %s", cfg.GlobalDelay)
	}
	return nil
}

// render hands a batch to the renderer. A rejected batch releases the
// origin so a retry can play.
func (e *Engine) render(ctx context.Context, b render.Batch, definition string) error {
	if err := e.renderer.Render(ctx, b); err != nil {
		slog.Error("renderer rejected batch",
			"dispatch_id", b.DispatchID,
			"origin", b.Origin,
			"definition", definition,
			"placements", len(b.Placements),
			"error", err,
		)
		e.guard.Release(b.Origin, b.SceneID, "")
		return newRenderError(b.Origin, definition, err)
	}
	return nil
}

// finish stamps, logs and records a dispatch.
func (e *Engine) finish(ctx context.Context, rec *ir.ActionRecord, res Result) (Result, error) {
	res.Seq = e.clock.Next()

	level := slog.LevelInfo
	if res.Outcome == ir.OutcomeNoMatch {
		level = slog.LevelDebug
	}
	slog.Log(ctx, level, "dispatch",
		"dispatch_id", res.DispatchID,
		"seq", res.Seq,
		"origin", rec.Origin,
		"item", rec.NormalizedName,
		"outcome", res.Outcome,
		"rule", res.Rule,
		"definition", res.Definition,
		"reason", res.Reason,
		"placements", len(res.Placements),
	)

	if e.store == nil {
		return res, nil
	}
	d := ir.DispatchRecord{
		ID:             res.DispatchID,
		Seq:            res.Seq,
		Origin:         rec.Origin,
		SceneID:        rec.SceneID,
		MessageID:      rec.MessageID,
		SystemID:       rec.SystemID,
		ItemName:       rec.ItemName,
		NormalizedName: rec.NormalizedName,
		Outcome:        res.Outcome,
		Rule:           res.Rule,
		DefinitionID:   res.Definition,
		Reason:         res.Reason,
		Deferred:       res.Deferred,
		CatalogHash:    e.catalog.Hash(),
		EngineVersion:  ir.EngineVersion,
	}
	if _, err := e.store.WriteDispatch(ctx, d, res.Placements); err != nil {
		slog.Error("dispatch log write failed", "dispatch_id", res.DispatchID, "error", err)
		return res, newStoreError(rec.Origin, err)
	}
	return res, nil
}

func (e *Engine) notifyDisabled() {
	e.mu.Lock()
	first := !e.disabledNotified
	e.disabledNotified = true
	e.mu.Unlock()

	if first {
		e.notifier.Notify(host.LevelInfo, "animations are disabled")
	}
}

func (e *Engine) deferTemplate(cfg config.Snapshot, rec ir.ActionRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deferSeq++
	e.deferred[rec.Origin] = deferral{seq: e.deferSeq, cfg: cfg, rec: rec}
}

// takeDeferral finds the dispatch waiting for tc: by origin when the
// notification names one, else the latest wait of the same user.
func (e *Engine) takeDeferral(tc TemplateCreated) (deferral, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if tc.Origin != "" {
		d, ok := e.deferred[tc.Origin]
		if !ok || (tc.UserID != "" && d.rec.UserID != tc.UserID) {
			return deferral{}, false
		}
		delete(e.deferred, tc.Origin)
		return d, true
	}

	var (
		best  deferral
		found bool
	)
	for _, d := range e.deferred {
		if d.rec.UserID != tc.UserID {
			continue
		}
		if !found || d.seq > best.seq {
			best, found = d, true
		}
	}
	if found {
		delete(e.deferred, best.rec.Origin)
	}
	return best, found
}

// Pending returns the number of deferred dispatches and scheduled
// continuations. Used for testing and introspection.
func (e *Engine) Pending() (deferred, scheduled int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.deferred), len(e.tasks)
}

// schedule registers run as a continuation of rec, due after d.
func (e *Engine) schedule(rec *ir.ActionRecord, d time.Duration, releaseOnCancel bool, run func(context.Context) error) {
	e.mu.Lock()
	e.nextTask++
	id := e.nextTask
	t := &task{
		messageID:       rec.MessageID,
		origin:          rec.Origin,
		sceneID:         rec.SceneID,
		run:             run,
		releaseOnCancel: releaseOnCancel,
	}
	e.tasks[id] = t
	e.mu.Unlock()

	stop := e.sched.AfterFunc(d, func() {
		e.queue.Enqueue(Event{Type: eventTypeContinuation, task: id})
	})

	e.mu.Lock()
	t.stop = stop
	e.mu.Unlock()
}

// resume runs a fired continuation unless it was cancelled meanwhile.
func (e *Engine) resume(ctx context.Context, id uint64) error {
	e.mu.Lock()
	t, ok := e.tasks[id]
	delete(e.tasks, id)
	e.mu.Unlock()

	if !ok {
		return nil
	}
	return t.run(ctx)
}

// HandleAction normalizes and routes a rule-system event, then dispatches
// it under the current snapshot. dispatched is false for events that are
// not applicable or belong to another step of the action.
func (e *Engine) HandleAction(ctx context.Context, ev normalize.Event) (res Result, dispatched bool, err error) {
	cfg := e.Config()

	rec, err := e.normalizer.Normalize(ev)
	if err != nil {
		slog.Debug("event not applicable", "system", ev.System, "message_id", ev.MessageID, "reason", err)
		return Result{}, false, nil
	}
	if !normalize.Routes(rec, cfg.PlayOnDamage) {
		slog.Debug("event not routed",
			"origin", rec.Origin,
			"item", rec.NormalizedName,
			"roll_phase", rec.RollPhase,
			"workflow", normalize.WorkflowOf(rec),
		)
		return Result{}, false, nil
	}

	res, err = e.Dispatch(ctx, cfg, rec)
	return res, true, err
}

// HandleTemplate resumes the dispatch waiting for this template.
// dispatched is false when nothing was waiting.
func (e *Engine) HandleTemplate(ctx context.Context, tc TemplateCreated) (res Result, dispatched bool, err error) {
	d, ok := e.takeDeferral(tc)
	if !ok {
		slog.Debug("template without waiting dispatch", "user_id", tc.UserID, "origin", tc.Origin, "template", tc.Template.ID)
		return Result{}, false, nil
	}

	rec := d.rec
	tpl := tc.Template
	rec.Template = &tpl
	res, err = e.Dispatch(ctx, d.cfg, rec)
	return res, true, err
}

// HandleRemoval releases the guard for a confirmed effect removal.
func (e *Engine) HandleRemoval(r EffectRemoved) {
	e.guard.Release(r.Origin, r.SceneID, r.Target)
	slog.Debug("effect removed", "origin", r.Origin, "scene_id", r.SceneID, "target", r.Target)
}

// HandleSceneUnload forgets everything tied to a scene: guard entries,
// waiting templates and pending continuations.
func (e *Engine) HandleSceneUnload(sceneID string) {
	released := e.guard.ReleaseScene(sceneID)

	e.mu.Lock()
	var dropped []*task
	for id, t := range e.tasks {
		if t.sceneID == sceneID {
			delete(e.tasks, id)
			dropped = append(dropped, t)
		}
	}
	for origin, d := range e.deferred {
		if d.rec.SceneID == sceneID {
			delete(e.deferred, origin)
		}
	}
	e.mu.Unlock()

	stopAll(dropped)
	slog.Info("scene unloaded", "scene_id", sceneID, "released", released, "cancelled", len(dropped))
}

// HandleRetraction drops every continuation and template wait of a
// retracted message. Returns the number of continuations cancelled.
// Placements already rendered are left to finish.
func (e *Engine) HandleRetraction(messageID string) int {
	if messageID == "" {
		return 0
	}

	e.mu.Lock()
	var dropped []*task
	for id, t := range e.tasks {
		if t.messageID == messageID {
			delete(e.tasks, id)
			dropped = append(dropped, t)
		}
	}
	for origin, d := range e.deferred {
		if d.rec.MessageID == messageID {
			delete(e.deferred, origin)
		}
	}
	e.mu.Unlock()

	stopAll(dropped)
	for _, t := range dropped {
		if t.releaseOnCancel {
			e.guard.Release(t.origin, t.sceneID, "")
		}
	}
	if len(dropped) > 0 {
		slog.Info("message retracted", "message_id", messageID, "cancelled", len(dropped))
	}
	return len(dropped)
}

func stopAll(tasks []*task) {
	for _, t := range tasks {
		if t.stop != nil {
			t.stop()
		}
	}
}

// Enqueue submits an event for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// QueueLen returns the current number of pending events.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run starts the single-writer event loop.
// Blocks until context is cancelled or Stop() is called.
//
// ERROR HANDLING: a failing event is logged with its context and the loop
// continues. One broken dispatch never holds up another origin.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting")

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			if err := e.processEvent(ctx, event); err != nil {
				logEventError(event, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes with the queue.
			if e.queue.Len() == 0 && e.stopped() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

func (e *Engine) stopped() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

// Flush processes queued events until the queue is empty and returns how
// many were processed. One-shot tools and tests use it instead of Run.
func (e *Engine) Flush(ctx context.Context) int {
	n := 0
	for {
		event, ok := e.queue.TryDequeue()
		if !ok {
			return n
		}
		if err := e.processEvent(ctx, event); err != nil {
			logEventError(event, err)
		}
		n++
	}
}

// Stop gracefully shuts down the engine.
// Closes the event queue, which will cause Run() to return.
func (e *Engine) Stop() {
	e.queue.Close()
}

// processEvent routes an event to the appropriate handler.
func (e *Engine) processEvent(ctx context.Context, event Event) error {
	switch event.Type {
	case EventTypeAction:
		if event.Action == nil {
			return invalidEvent(event)
		}
		_, _, err := e.HandleAction(ctx, *event.Action)
		return err

	case EventTypeTemplateCreated:
		if event.Template == nil {
			return invalidEvent(event)
		}
		_, _, err := e.HandleTemplate(ctx, *event.Template)
		return err

	case EventTypeEffectRemoved:
		if event.Removal == nil {
			return invalidEvent(event)
		}
		e.HandleRemoval(*event.Removal)
		return nil

	case EventTypeSceneUnloaded:
		e.HandleSceneUnload(event.SceneID)
		return nil

	case EventTypeMessageDeleted:
		e.HandleRetraction(event.MessageID)
		return nil

	case eventTypeContinuation:
		return e.resume(ctx, event.task)

	default:
		return invalidEvent(event)
	}
}

func invalidEvent(event Event) error {
	return &DispatchError{
		Code:    ErrCodeInvalidEvent,
		Message: fmt.Sprintf("%s event missing data", event.Type),
	}
}

// logEventError logs an event processing failure with full context.
func logEventError(event Event, err error) {
	attrs := []any{"error", err, "event_type", event.Type.String()}
	switch {
	case event.Action != nil:
		attrs = append(attrs, "system", event.Action.System, "message_id", event.Action.MessageID)
	case event.Template != nil:
		attrs = append(attrs, "user_id", event.Template.UserID, "template", event.Template.Template.ID)
	case event.Removal != nil:
		attrs = append(attrs, "origin", event.Removal.Origin, "scene_id", event.Removal.SceneID)
	}
	slog.Error("event processing failed", attrs...)
}

// wallRand draws from the process-wide source.
type wallRand struct{}

func (wallRand) Float64() float64 { return rand.Float64() }
