package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/fxdispatch/internal/catalog"
	"github.com/roach88/fxdispatch/internal/config"
	"github.com/roach88/fxdispatch/internal/engine"
	"github.com/roach88/fxdispatch/internal/host"
	"github.com/roach88/fxdispatch/internal/render"
	"github.com/roach88/fxdispatch/internal/store"
)

// EngineFlags are the settings shared by commands that run the engine.
// Flags left unset keep the value from the FXD_* environment.
type EngineFlags struct {
	Scene        string
	Database     string
	PlayOnDamage bool
	Debug        bool
	LocalUser    string
}

func (f *EngineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Scene, "scene", "", "path to scene YAML (required)")
	_ = cmd.MarkFlagRequired("scene")
	cmd.Flags().StringVar(&f.Database, "db", "", "path to SQLite dispatch log")
	cmd.Flags().BoolVar(&f.PlayOnDamage, "play-on-damage", false, "dispatch on the damage step instead of the attack step")
	cmd.Flags().BoolVar(&f.Debug, "debug", false, "surface renderer errors instead of failing soft")
	cmd.Flags().StringVar(&f.LocalUser, "local-user", "", "only dispatch actions from this user")
}

// snapshot loads the environment configuration and applies the flags the
// user set explicitly.
func (f *EngineFlags) snapshot(cmd *cobra.Command) (config.Snapshot, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Snapshot{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("play-on-damage") {
		cfg.PlayOnDamage = f.PlayOnDamage
	}
	if flags.Changed("debug") {
		cfg.Debug = f.Debug
	}
	if flags.Changed("local-user") {
		cfg.LocalUserID = f.LocalUser
	}
	return cfg, nil
}

// runtime is a wired engine with the resources it owns.
type runtime struct {
	engine *engine.Engine
	stage  *host.Stage
	scene  *host.MemoryScene
	store  *store.Store
}

func (r *runtime) Close() {
	if r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// newRuntime loads the catalog and scene, opens the dispatch log when one
// is configured, and builds an engine rendering through next.
func newRuntime(ctx context.Context, catalogPath string, cfg config.Snapshot, flags *EngineFlags, next render.Renderer, opts ...engine.EngineOption) (*runtime, error) {
	cat, err := loadCatalog(catalogPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	scene, err := host.LoadScene(flags.Scene)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load scene", err)
	}
	stage := host.NewStage(scene)

	notifier := host.LogNotifier{}
	registry := catalog.NewRegistry(cat, catalog.WithNotifier(notifier))
	slog.Info("catalog loaded", "definitions", len(cat.Definitions), "categories", len(cat.Categories), "hash", registry.Hash())

	rt := &runtime{stage: stage, scene: scene}

	engineOpts := []engine.EngineOption{
		engine.WithConfig(cfg),
		engine.WithNotifier(notifier),
	}
	if flags.Database != "" {
		st, err := store.Open(flags.Database)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		seq, err := st.LastSeq(ctx)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to read dispatch log", err)
		}
		rt.store = st
		engineOpts = append(engineOpts, engine.WithStore(st), engine.WithClock(engine.NewClockAt(seq)))
		slog.Info("dispatch log ready", "path", flags.Database, "last_seq", seq)
	}
	engineOpts = append(engineOpts, opts...)

	renderer := render.SceneMirror{Next: next, Scenes: render.StageScenes{Stage: stage}}
	rt.engine = engine.New(registry, stage, renderer, engineOpts...)
	return rt, nil
}

func describeResult(res engine.Result) string {
	s := fmt.Sprintf("%s %s", res.DispatchID, res.Outcome)
	if res.Rule != "" {
		s += " rule=" + res.Rule
	}
	if res.Definition != "" {
		s += " definition=" + res.Definition
	}
	if res.Reason != "" {
		s += fmt.Sprintf(" reason=%q", res.Reason)
	}
	return s
}
