package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/louisbranch/musterpoint/internal/errors"
	"github.com/louisbranch/musterpoint/internal/gateway/local"
	"github.com/louisbranch/musterpoint/internal/muster/confirm"
	"github.com/louisbranch/musterpoint/internal/muster/option"
	"github.com/louisbranch/musterpoint/internal/muster/session"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		DBPath:          filepath.Join(t.TempDir(), "muster.db"),
		ReactionWindow:  time.Hour,
		StaffWindow:     time.Hour,
		RefreshInterval: time.Hour,
	}
}

func testAdapters() Adapters {
	gateway := local.New(local.Config{
		TargetChannelID:   "target",
		ControlChannelID:  "control",
		EligibilityRoleID: "role",
		GroupID:           "group",
	})
	return Adapters{
		Resolver:   gateway,
		Authorizer: gateway,
		Renderer:   gateway,
		Handoff:    gateway,
		Prompter:   gateway,
	}
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	service, err := New(cfg, testAdapters())
	if err != nil {
		t.Fatalf("assemble app: %v", err)
	}
	return service
}

func TestCreateSessionAndSubmitClaim(t *testing.T) {
	service := newTestApp(t, testConfig(t))
	defer service.Close()
	ctx := context.Background()

	inst, err := service.CreateSession(ctx, "operator-1", session.Scope{SectionID: "s1", ActivityID: "a1"}, option.Definition{BuiltIn: "guild-dungeon"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if inst.Status() != session.StatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", inst.Status())
	}

	outcome, err := service.SubmitClaim(ctx, inst.ID(), "p1", "interested")
	if err != nil {
		t.Fatalf("submit claim: %v", err)
	}
	if outcome != confirm.OutcomeConfirmed {
		t.Fatalf("outcome = %s, want CONFIRMED", outcome)
	}

	view, err := service.RenderSnapshot(inst.ID())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if view.InterestCount != 1 {
		t.Fatalf("interest count = %d, want 1", view.InterestCount)
	}
}

func TestUnknownSessionRouting(t *testing.T) {
	service := newTestApp(t, testConfig(t))
	defer service.Close()
	ctx := context.Background()

	wantNotFound := apperrors.New(apperrors.CodeNotFound, "")
	if _, err := service.SubmitClaim(ctx, "nope", "p1", "interested"); !errors.Is(err, wantNotFound) {
		t.Fatalf("submit error = %v, want not found", err)
	}
	if err := service.DispatchControlAction(ctx, "nope", "operator-1", session.ActionEnd); !errors.Is(err, wantNotFound) {
		t.Fatalf("control error = %v, want not found", err)
	}
	if service.Respond("nope", "p1", confirm.BinaryChoice{Confirmed: true}) {
		t.Fatal("respond to unknown session must report false")
	}
}

func TestControlActionEndsSession(t *testing.T) {
	service := newTestApp(t, testConfig(t))
	defer service.Close()
	ctx := context.Background()

	inst, err := service.CreateSession(ctx, "operator-1", session.Scope{}, option.Definition{BuiltIn: "weekly-raid"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := service.DispatchControlAction(ctx, inst.ID(), "operator-1", session.ActionEnd); err != nil {
		t.Fatalf("end: %v", err)
	}
	if inst.Status() != session.StatusFinished {
		t.Fatalf("status = %s, want FINISHED", inst.Status())
	}
}

func TestRecoveryAcrossRestart(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	service := newTestApp(t, cfg)
	inst, err := service.CreateSession(ctx, "operator-1", session.Scope{SectionID: "s1"}, option.Definition{BuiltIn: "guild-dungeon"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := service.SubmitClaim(ctx, inst.ID(), "p1", "interested"); err != nil {
		t.Fatalf("submit claim: %v", err)
	}
	sessionID := inst.ID()
	service.Close()

	restarted := newTestApp(t, cfg)
	defer restarted.Close()
	recovered, err := restarted.Recover(ctx)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("recovered = %d, want 1", recovered)
	}
	view, err := restarted.RenderSnapshot(sessionID)
	if err != nil {
		t.Fatalf("snapshot after recovery: %v", err)
	}
	if view.Status != session.StatusInProgress {
		t.Fatalf("recovered status = %s, want IN_PROGRESS", view.Status)
	}
	if view.InterestCount != 1 {
		t.Fatalf("recovered interest count = %d, want 1", view.InterestCount)
	}
}

func TestTerminalSessionLeavesRegistry(t *testing.T) {
	service := newTestApp(t, testConfig(t))
	defer service.Close()
	ctx := context.Background()

	inst, err := service.CreateSession(ctx, "operator-1", session.Scope{}, option.Definition{BuiltIn: "guild-dungeon"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := service.DispatchControlAction(ctx, inst.ID(), "operator-1", session.ActionAbort); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if _, err := service.RenderSnapshot(inst.ID()); err == nil {
		t.Fatal("terminal session must be unregistered")
	}
}
