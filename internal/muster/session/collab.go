package session

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/louisbranch/musterpoint/internal/errors"
	"github.com/louisbranch/musterpoint/internal/muster/ledger"
)

// Scope identifies which community section and target activity a session is
// about. It is immutable after creation.
type Scope struct {
	SectionID      string
	ActivityID     string
	ReactionWindow time.Duration // claim-collection window; zero uses the configured default
}

// Environment holds the live handles a session needs, resolved from its scope.
type Environment struct {
	TargetChannelID   string
	ControlChannelID  string
	EligibilityRoleID string
	TargetGroupID     string
	ControlGroupID    string
}

var (
	// ErrEnvironmentUnavailable indicates scope resolution failed or the
	// resolved channels do not share a parent grouping.
	ErrEnvironmentUnavailable = apperrors.New(apperrors.CodeEnvironmentUnavailable, "session environment unavailable")
	// ErrInvalidForState indicates an operation does not apply to the current status.
	ErrInvalidForState = apperrors.New(apperrors.CodeInvalidForState, "operation not valid for session state")
	// ErrNotAuthorized indicates the operator lacks control authorization.
	ErrNotAuthorized = apperrors.New(apperrors.CodeControlNotAuthorized, "operator lacks control authorization")
	// ErrParticipantBusy indicates the participant already has a confirmation in flight.
	ErrParticipantBusy = apperrors.New(apperrors.CodeClaimParticipantBusy, "participant has a confirmation in flight")

	// ErrArtifactMissing marks a render failure caused by the target artifact
	// being deleted underneath a running session. Renderers wrap it to signal
	// a session-fatal condition; any other render error is transient.
	ErrArtifactMissing = errors.New("rendered artifact missing")
)

// EnvironmentResolver resolves a scope to its live environment handles.
type EnvironmentResolver interface {
	Resolve(ctx context.Context, scope Scope) (Environment, error)
}

// Authorizer checks whether an operator may drive a session's lifecycle.
type Authorizer interface {
	CheckControlAuthorization(ctx context.Context, operatorID string, scope Scope) (bool, error)
}

// Renderer is the presentation sink. The core only keeps the returned artifact
// handle for routing; it never inspects rendered content.
type Renderer interface {
	Render(ctx context.Context, view View) (string, error)
	RenderControlView(ctx context.Context, view View) (string, error)
}

// Handoff receives a converted session's scope and finalized claims.
type Handoff interface {
	HandoffToLiveRun(ctx context.Context, scope Scope, claims []ledger.OptionClaim) error
}
