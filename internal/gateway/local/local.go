// Package local provides a loopback gateway: an in-process implementation of
// the session core's transport adapters. It resolves every scope to a fixed
// environment, renders views to the process log, and leaves prompts
// unanswered. It backs the standalone binary and development setups that run
// the core without a chat transport.
package local

import (
	"context"
	"log"
	"sync"

	"github.com/louisbranch/musterpoint/internal/muster/catalog"
	"github.com/louisbranch/musterpoint/internal/muster/ledger"
	"github.com/louisbranch/musterpoint/internal/muster/session"
	"github.com/louisbranch/musterpoint/internal/platform/config"
	"github.com/louisbranch/musterpoint/internal/platform/id"
)

// Config holds the fixed environment the loopback gateway resolves to.
type Config struct {
	TargetChannelID   string `env:"MUSTERPOINT_TARGET_CHANNEL" envDefault:"local-target"`
	ControlChannelID  string `env:"MUSTERPOINT_CONTROL_CHANNEL" envDefault:"local-control"`
	EligibilityRoleID string `env:"MUSTERPOINT_ELIGIBILITY_ROLE" envDefault:"local-role"`
	GroupID           string `env:"MUSTERPOINT_GROUP" envDefault:"local-group"`
}

// ParseConfig loads the gateway configuration from the environment.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Gateway is the loopback adapter set.
type Gateway struct {
	cfg Config

	mu        sync.Mutex
	artifacts map[string]string // session id -> control artifact id
}

// New creates a loopback gateway.
func New(cfg Config) *Gateway {
	return &Gateway{cfg: cfg, artifacts: make(map[string]string)}
}

// Resolve returns the fixed environment for every scope.
func (g *Gateway) Resolve(_ context.Context, _ session.Scope) (session.Environment, error) {
	return session.Environment{
		TargetChannelID:   g.cfg.TargetChannelID,
		ControlChannelID:  g.cfg.ControlChannelID,
		EligibilityRoleID: g.cfg.EligibilityRoleID,
		TargetGroupID:     g.cfg.GroupID,
		ControlGroupID:    g.cfg.GroupID,
	}, nil
}

// CheckControlAuthorization allows every operator; the loopback gateway has no
// role model.
func (g *Gateway) CheckControlAuthorization(context.Context, string, session.Scope) (bool, error) {
	return true, nil
}

// Render logs the announcement view. The first render of a session mints a
// fresh artifact id; later renders reuse it.
func (g *Gateway) Render(_ context.Context, view session.View) (string, error) {
	artifactID := view.ID
	if artifactID == "" {
		var err error
		if artifactID, err = id.NewID(); err != nil {
			return "", err
		}
	}
	log.Printf("render announcement artifact=%s status=%s options=%d interest=%d",
		artifactID, view.Status, len(view.Options), view.InterestCount)
	return artifactID, nil
}

// RenderControlView logs the control view, minting one artifact id per session.
func (g *Gateway) RenderControlView(_ context.Context, view session.View) (string, error) {
	g.mu.Lock()
	artifactID, ok := g.artifacts[view.ID]
	g.mu.Unlock()
	if !ok {
		var err error
		if artifactID, err = id.NewID(); err != nil {
			return "", err
		}
		g.mu.Lock()
		g.artifacts[view.ID] = artifactID
		g.mu.Unlock()
	}
	log.Printf("render control view artifact=%s session_id=%s status=%s",
		artifactID, view.ID, view.Status)
	return artifactID, nil
}

// HandoffToLiveRun logs the finalized claims.
func (g *Gateway) HandoffToLiveRun(_ context.Context, scope session.Scope, claims []ledger.OptionClaim) error {
	log.Printf("handoff to live run section=%s activity=%s claims=%d",
		scope.SectionID, scope.ActivityID, len(claims))
	return nil
}

// PromptQualifiers logs the prompt; the loopback gateway never answers, so
// flows resolve by timeout.
func (g *Gateway) PromptQualifiers(_ context.Context, participantID, optionKey string, candidates []catalog.Modifier) error {
	log.Printf("prompt qualifiers participant=%s option=%s candidates=%d", participantID, optionKey, len(candidates))
	return nil
}

// PromptLevel logs the prompt.
func (g *Gateway) PromptLevel(_ context.Context, participantID, optionKey string, modifier catalog.Modifier) error {
	log.Printf("prompt level participant=%s option=%s modifier=%s", participantID, optionKey, modifier.ID)
	return nil
}

// PromptBinary logs the prompt.
func (g *Gateway) PromptBinary(_ context.Context, participantID, optionKey string) error {
	log.Printf("prompt binary participant=%s option=%s", participantID, optionKey)
	return nil
}
