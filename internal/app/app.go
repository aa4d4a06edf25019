// Package app wires the session core together: storage, catalog, registry,
// recovery, and the transport-facing operations a gateway calls.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	apperrors "github.com/louisbranch/musterpoint/internal/errors"
	"github.com/louisbranch/musterpoint/internal/muster/catalog"
	"github.com/louisbranch/musterpoint/internal/muster/confirm"
	"github.com/louisbranch/musterpoint/internal/muster/option"
	"github.com/louisbranch/musterpoint/internal/muster/recovery"
	"github.com/louisbranch/musterpoint/internal/muster/registry"
	"github.com/louisbranch/musterpoint/internal/muster/session"
	"github.com/louisbranch/musterpoint/internal/platform/config"
	"github.com/louisbranch/musterpoint/internal/storage"
	"github.com/louisbranch/musterpoint/internal/storage/sqlite"
	"github.com/louisbranch/musterpoint/internal/telemetry"
)

// Config holds the process configuration.
type Config struct {
	DBPath          string        `env:"MUSTERPOINT_DB_PATH" envDefault:"musterpoint.db"`
	ReactionWindow  time.Duration `env:"MUSTERPOINT_REACTION_WINDOW" envDefault:"6h"`
	StaffWindow     time.Duration `env:"MUSTERPOINT_STAFF_WINDOW" envDefault:"10m"`
	RefreshInterval time.Duration `env:"MUSTERPOINT_REFRESH_INTERVAL" envDefault:"30s"`
}

// ParseConfig loads the process configuration from the environment.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Adapters are the transport-provided collaborators the core calls out to.
type Adapters struct {
	Resolver   session.EnvironmentResolver
	Authorizer session.Authorizer
	Renderer   session.Renderer
	Handoff    session.Handoff
	Prompter   confirm.Prompter
}

// App is the assembled session service.
type App struct {
	cfg      Config
	store    *sqlite.Store
	catalog  *catalog.Catalog
	registry *registry.Registry
	emitter  *telemetry.Emitter
	adapters Adapters
}

// New opens storage, loads the built-in catalog, and assembles the service.
func New(cfg Config, adapters Adapters) (*App, error) {
	if adapters.Resolver == nil || adapters.Renderer == nil || adapters.Prompter == nil {
		return nil, fmt.Errorf("resolver, renderer, and prompter adapters are required")
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	cat, err := catalog.Builtin()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load builtin catalog: %w", err)
	}
	return &App{
		cfg:      cfg,
		store:    store,
		catalog:  cat,
		registry: registry.New(),
		emitter:  telemetry.NewEmitter(store),
		adapters: adapters,
	}, nil
}

// Catalog returns the loaded modifier catalog.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// Store exposes the snapshot store, mainly for tests and tooling.
func (a *App) Store() storage.SnapshotStore {
	return a.store
}

func (a *App) sessionDeps() session.Deps {
	return session.Deps{
		Store:                 a.store,
		Telemetry:             a.emitter,
		Resolver:              a.adapters.Resolver,
		Authorizer:            a.adapters.Authorizer,
		Renderer:              a.adapters.Renderer,
		Handoff:               a.adapters.Handoff,
		Prompter:              a.adapters.Prompter,
		Catalog:               a.catalog,
		RefreshInterval:       a.cfg.RefreshInterval,
		StaffWindow:           a.cfg.StaffWindow,
		DefaultReactionWindow: a.cfg.ReactionWindow,
		OnTerminal:            a.registry.Unregister,
	}
}

// Recover rehydrates persisted sessions into the registry. Call once at
// startup, before the transport starts delivering events.
func (a *App) Recover(ctx context.Context) (int, error) {
	return recovery.RecoverAll(ctx, a.store, a.adapters.Resolver, a.registry, a.sessionDeps())
}

// CreateSession creates and starts a new session and registers it for event
// routing.
func (a *App) CreateSession(ctx context.Context, initiatorID string, scope session.Scope, definition option.Definition) (*session.Instance, error) {
	inst, err := session.New(initiatorID, scope, definition, a.sessionDeps())
	if err != nil {
		return nil, err
	}
	if err := inst.Start(ctx); err != nil {
		return nil, err
	}
	if err := a.registry.Register(inst); err != nil {
		inst.Shutdown()
		return nil, err
	}
	return inst, nil
}

// SubmitClaim routes a participant claim to the owning session.
func (a *App) SubmitClaim(ctx context.Context, sessionID, participantID, optionKey string) (confirm.Outcome, error) {
	inst, ok := a.registry.Get(sessionID)
	if !ok {
		return confirm.OutcomeUnspecified, apperrors.New(apperrors.CodeNotFound, "unknown session")
	}
	return inst.SubmitClaim(ctx, participantID, optionKey)
}

// Respond routes a confirmation answer to the owning session.
func (a *App) Respond(sessionID, participantID string, response confirm.Response) bool {
	inst, ok := a.registry.Get(sessionID)
	if !ok {
		return false
	}
	return inst.Respond(participantID, response)
}

// DispatchControlAction routes an operator action to the owning session.
func (a *App) DispatchControlAction(ctx context.Context, sessionID, operatorID string, action session.Action) error {
	inst, ok := a.registry.Get(sessionID)
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "unknown session")
	}
	return inst.DispatchControlAction(ctx, operatorID, action)
}

// RenderSnapshot returns the current projection of a session.
func (a *App) RenderSnapshot(sessionID string) (session.View, error) {
	inst, ok := a.registry.Get(sessionID)
	if !ok {
		return session.View{}, apperrors.New(apperrors.CodeNotFound, "unknown session")
	}
	return inst.RenderSnapshot(), nil
}

// Run blocks until the context is cancelled, then shuts the service down.
func (a *App) Run(ctx context.Context) error {
	recovered, err := a.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover sessions: %w", err)
	}
	log.Printf("service ready sessions=%d db=%s", recovered, a.cfg.DBPath)

	<-ctx.Done()
	a.Close()
	return nil
}

// Close stops every live session's timers and closes storage. Sessions are
// not transitioned; their snapshots stay behind for the next recovery.
func (a *App) Close() {
	for _, inst := range a.registry.All() {
		inst.Shutdown()
	}
	if err := a.store.Close(); err != nil {
		log.Printf("close snapshot store error=%v", err)
	}
}
