package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fxdispatch/internal/config"
	"github.com/roach88/fxdispatch/internal/engine"
	"github.com/roach88/fxdispatch/internal/normalize"
	"github.com/roach88/fxdispatch/internal/render/wsrender"
	"github.com/roach88/fxdispatch/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	EngineFlags
	Addr string
}

// Host event types accepted on POST /events.
const (
	HostEventAction         = "action"
	HostEventTemplate       = "template_created"
	HostEventRemoval        = "effect_removed"
	HostEventSceneUnloaded  = "scene_unloaded"
	HostEventMessageDeleted = "message_deleted"
)

// HostEvent is the JSON body of POST /events.
type HostEvent struct {
	Type      string                  `json:"type"`
	Action    *normalize.Event        `json:"action,omitempty"`
	Template  *engine.TemplateCreated `json:"template,omitempty"`
	Removal   *engine.EffectRemoved   `json:"removal,omitempty"`
	SceneID   string                  `json:"scene_id,omitempty"`
	MessageID string                  `json:"message_id,omitempty"`
}

// toEvent converts the body into a loop event.
func (h HostEvent) toEvent() (engine.Event, error) {
	switch h.Type {
	case HostEventAction:
		if h.Action == nil {
			return engine.Event{}, errors.New("action event without action")
		}
		return engine.ActionEvent(*h.Action), nil
	case HostEventTemplate:
		if h.Template == nil {
			return engine.Event{}, errors.New("template_created event without template")
		}
		return engine.TemplateCreatedEvent(*h.Template), nil
	case HostEventRemoval:
		if h.Removal == nil {
			return engine.Event{}, errors.New("effect_removed event without removal")
		}
		return engine.EffectRemovedEvent(*h.Removal), nil
	case HostEventSceneUnloaded:
		if h.SceneID == "" {
			return engine.Event{}, errors.New("scene_unloaded event without scene_id")
		}
		return engine.SceneUnloadedEvent(h.SceneID), nil
	case HostEventMessageDeleted:
		if h.MessageID == "" {
			return engine.Event{}, errors.New("message_deleted event without message_id")
		}
		return engine.MessageDeletedEvent(h.MessageID), nil
	default:
		return engine.Event{}, fmt.Errorf("unknown event type %q", h.Type)
	}
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve <catalog>",
		Short: "Run the engine behind HTTP and WebSocket endpoints",
		Long: `Run the dispatch engine for a live scene.

The host posts its events as JSON to /events. Renderer clients connect to
/ws and receive every batch and sound; they report removed persistent
effects back on the same connection. Traces are exported over OTLP when
FXD_OTEL_ENDPOINT is set.

Example:
  fxdispatch serve ./catalog --scene scene.yaml --addr :8080 --db fx.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, args[0], cmd)
		},
	}

	opts.EngineFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")

	return cmd
}

func runServe(opts *ServeOptions, catalogPath string, cmd *cobra.Command) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	cfg, err := opts.snapshot(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	telCfg, err := config.LoadTelemetry()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid telemetry configuration", err)
	}
	shutdownTracing, err := telemetry.Setup(ctx, telCfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Error("error flushing traces", "error", err)
		}
	}()

	var rt *runtime
	hub := wsrender.NewHub(wsrender.WithRemovalHandler(func(r wsrender.Removal) {
		rt.removeEffects(r)
	}))

	rt, err = newRuntime(ctx, catalogPath, cfg, &opts.EngineFlags, hub)
	if err != nil {
		return err
	}
	defer rt.Close()

	server := &http.Server{
		Addr:              opts.Addr,
		Handler:           newServeMux(rt, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- rt.engine.Run(ctx)
	}()

	serverDone := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", opts.Addr, "scene", rt.scene.ID())
		serverDone <- server.ListenAndServe()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving scene %s on %s. Press Ctrl-C to stop.\n", rt.scene.ID(), opts.Addr)

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-serverDone:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
		cancel()
	}

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err := server.Shutdown(sctx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	_ = hub.Close()
	rt.engine.Stop()

	if err := <-engineDone; err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	if serveErr != nil {
		return WrapExitError(ExitCommandError, "server error", serveErr)
	}

	slog.Info("engine stopped gracefully")
	return nil
}

// removeEffects applies a renderer's removal report to the scene and
// queues the guard release.
func (r *runtime) removeEffects(rm wsrender.Removal) {
	if m, ok := r.stage.Memory(rm.SceneID); ok {
		m.RemoveEffects(rm.Origin, rm.Target)
	}
	r.engine.Enqueue(engine.EffectRemovedEvent(engine.EffectRemoved{
		SceneID: rm.SceneID,
		Origin:  rm.Origin,
		Target:  rm.Target,
	}))
}

func newServeMux(rt *runtime, hub *wsrender.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", hub)
	mux.HandleFunc("POST /events", func(w http.ResponseWriter, r *http.Request) {
		var body HostEvent
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("invalid event: %v", err), http.StatusBadRequest)
			return
		}
		ev, err := body.toEvent()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if body.Type == HostEventRemoval {
			if m, ok := rt.stage.Memory(body.Removal.SceneID); ok {
				m.RemoveEffects(body.Removal.Origin, body.Removal.Target)
			}
		}
		if !rt.engine.Enqueue(ev) {
			http.Error(w, "engine stopped", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"scene":   rt.scene.ID(),
			"clients": hub.Clients(),
			"queue":   rt.engine.QueueLen(),
		})
	})
	return mux
}
