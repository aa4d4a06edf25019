// Package session implements the group-formation session state machine.
//
// An Instance owns its option set and claim ledger and serializes every
// mutation behind one mutex: participant reactions and operator control
// actions arrive from independent event sources and are linearized here.
// Timers (claim-collection window, staff-response window, render refresh)
// each run as their own lightweight task and funnel back through the same
// mutex.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	apperrors "github.com/louisbranch/musterpoint/internal/errors"
	"github.com/louisbranch/musterpoint/internal/muster/catalog"
	"github.com/louisbranch/musterpoint/internal/muster/confirm"
	"github.com/louisbranch/musterpoint/internal/muster/ledger"
	"github.com/louisbranch/musterpoint/internal/muster/option"
	"github.com/louisbranch/musterpoint/internal/platform/timeouts"
	"github.com/louisbranch/musterpoint/internal/storage"
	"github.com/louisbranch/musterpoint/internal/telemetry"
)

const (
	defaultReactionWindow  = 6 * time.Hour
	defaultRefreshInterval = 30 * time.Second
)

// Deps groups the collaborators and tunables a session instance needs.
type Deps struct {
	Store      storage.SnapshotStore
	Telemetry  *telemetry.Emitter
	Resolver   EnvironmentResolver
	Authorizer Authorizer
	Renderer   Renderer
	Handoff    Handoff
	Prompter   confirm.Prompter
	Catalog    *catalog.Catalog

	Clock                 func() time.Time
	Windows               confirm.Windows
	RefreshInterval       time.Duration
	StaffWindow           time.Duration
	DefaultReactionWindow time.Duration

	// OnTerminal is invoked once after terminal cleanup with the session id;
	// the registry hooks it to drop its entry.
	OnTerminal func(sessionID string)
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.RefreshInterval <= 0 {
		d.RefreshInterval = defaultRefreshInterval
	}
	if d.StaffWindow <= 0 {
		d.StaffWindow = timeouts.StaffResponse
	}
	if d.DefaultReactionWindow <= 0 {
		d.DefaultReactionWindow = defaultReactionWindow
	}
	return d
}

// Instance is one live group-formation session.
type Instance struct {
	mu sync.Mutex

	id                string
	initiator         string
	scope             Scope
	env               Environment
	status            Status
	options           option.Set
	ledger            *ledger.Ledger
	guard             *confirm.Guard
	flows             map[string]*confirm.Flow
	deps              Deps
	controlArtifactID string

	createdAt        time.Time
	lastTransitionAt time.Time
	reactionWindow   time.Duration
	reactionDeadline time.Time

	reactionTimer *time.Timer
	staffTimer    *time.Timer
	refreshStop   chan struct{}
}

// New creates a session in the pre-start state. The option set definition is
// resolved once here and is immutable afterwards.
func New(initiator string, scope Scope, definition option.Definition, deps Deps) (*Instance, error) {
	deps = deps.withDefaults()
	set, err := definition.Resolve(deps.Catalog)
	if err != nil {
		return nil, err
	}
	return &Instance{
		initiator: initiator,
		scope:     scope,
		status:    StatusNothing,
		options:   set,
		ledger:    ledger.New(set.Keys()),
		guard:     confirm.NewGuard(),
		flows:     make(map[string]*confirm.Flow),
		deps:      deps,
	}, nil
}

// ID returns the session identifier. Empty until Start succeeds.
func (a *Instance) ID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id
}

// Status returns the current lifecycle status.
func (a *Instance) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Initiator returns the operator who created the session.
func (a *Instance) Initiator() string {
	return a.initiator
}

// Scope returns the session scope.
func (a *Instance) Scope() Scope {
	return a.scope
}

// Start resolves the session environment, posts the initial renders, persists
// the initial snapshot, and transitions NOTHING -> IN_PROGRESS. The snapshot
// append is mandatory: a session that cannot be persisted does not start.
func (a *Instance) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != StatusNothing {
		return ErrInvalidForState
	}

	env, err := a.deps.Resolver.Resolve(ctx, a.scope)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeEnvironmentUnavailable, "resolve session environment", err)
	}
	if env.TargetChannelID == "" || env.ControlChannelID == "" || env.EligibilityRoleID == "" ||
		env.TargetGroupID != env.ControlGroupID {
		return ErrEnvironmentUnavailable
	}
	a.env = env

	now := a.deps.Clock().UTC()
	a.createdAt = now
	a.lastTransitionAt = now
	a.reactionWindow = a.scope.ReactionWindow
	if a.reactionWindow <= 0 {
		a.reactionWindow = a.deps.DefaultReactionWindow
	}
	a.reactionDeadline = now.Add(a.reactionWindow)

	// The announcement artifact id becomes the session id.
	artifactID, err := a.deps.Renderer.Render(ctx, a.viewLocked())
	if err != nil {
		return apperrors.Wrap(apperrors.CodeEnvironmentUnavailable, "render session announcement", err)
	}
	a.id = artifactID

	controlArtifactID, err := a.deps.Renderer.RenderControlView(ctx, a.viewLocked())
	if err != nil {
		a.id = ""
		return apperrors.Wrap(apperrors.CodeEnvironmentUnavailable, "render control view", err)
	}
	a.controlArtifactID = controlArtifactID

	a.status = StatusInProgress
	if err := a.deps.Store.AppendSession(ctx, a.recordLocked()); err != nil {
		a.status = StatusNothing
		a.id = ""
		a.controlArtifactID = ""
		return apperrors.Wrap(apperrors.CodePersistenceFailure, "persist initial session snapshot", err)
	}

	a.armInProgressLocked(a.reactionWindow)
	a.emit(ctx, a.id, "session.started", telemetry.SeverityInfo, a.initiator, "session started")
	return nil
}

// SubmitClaim records a participant's claim on an option. Resource-claim
// options run the interactive confirmation flow; the returned outcome is the
// flow's terminal outcome (a Cancelled or TimedOut flow is a normal non-claim
// result, not an error).
func (a *Instance) SubmitClaim(ctx context.Context, participantID, optionKey string) (confirm.Outcome, error) {
	a.mu.Lock()
	if a.status != StatusInProgress {
		a.mu.Unlock()
		return confirm.OutcomeUnspecified, ErrInvalidForState
	}
	opt, ok := a.options.Get(optionKey)
	if !ok {
		a.mu.Unlock()
		return confirm.OutcomeUnspecified, ledger.ErrUnknownOption
	}
	if a.ledger.Has(optionKey, participantID) {
		a.mu.Unlock()
		return confirm.OutcomeUnspecified, ledger.ErrDuplicateClaim
	}
	if !a.guard.TryAcquire(participantID) {
		a.mu.Unlock()
		return confirm.OutcomeUnspecified, ErrParticipantBusy
	}

	if opt.Kind != option.KindResourceClaim {
		err := a.ledger.Add(optionKey, ledger.Claim{ParticipantID: participantID})
		a.guard.Release(participantID)
		record := a.recordLocked()
		a.mu.Unlock()
		if err != nil {
			return confirm.OutcomeUnspecified, err
		}
		a.persistUpdate(ctx, record)
		a.emit(ctx, record.ID, "claim.recorded", telemetry.SeverityInfo, participantID, "claim recorded for "+optionKey)
		return confirm.OutcomeConfirmed, nil
	}

	flow := confirm.NewFlow(participantID, optionKey, a.candidatesLocked(opt), a.deps.Prompter, a.deps.Windows)
	a.flows[participantID] = flow
	a.mu.Unlock()

	result := flow.Run(ctx)

	a.mu.Lock()
	delete(a.flows, participantID)
	a.guard.Release(participantID)

	if result.Outcome != confirm.OutcomeConfirmed {
		a.mu.Unlock()
		return result.Outcome, nil
	}
	// The session may have moved on while the participant was confirming; a
	// late confirmation records nothing.
	if a.status != StatusInProgress {
		a.mu.Unlock()
		return confirm.OutcomeUnspecified, ErrInvalidForState
	}
	if err := a.ledger.Add(optionKey, ledger.Claim{
		ParticipantID: participantID,
		Qualifiers:    result.Qualifiers,
		Corrections:   result.Corrections,
	}); err != nil {
		a.mu.Unlock()
		return confirm.OutcomeUnspecified, err
	}
	record := a.recordLocked()
	a.mu.Unlock()

	a.persistUpdate(ctx, record)
	a.emit(ctx, record.ID, "claim.recorded", telemetry.SeverityInfo, participantID, "claim recorded for "+optionKey)
	return confirm.OutcomeConfirmed, nil
}

// Respond routes a participant's confirmation answer to their in-flight flow.
// It reports false when the participant has no flow in flight.
func (a *Instance) Respond(participantID string, response confirm.Response) bool {
	a.mu.Lock()
	flow := a.flows[participantID]
	a.mu.Unlock()
	if flow == nil {
		return false
	}
	return flow.Respond(response)
}

// DispatchControlAction routes an operator action through the state machine.
func (a *Instance) DispatchControlAction(ctx context.Context, operatorID string, action Action) error {
	if a.deps.Authorizer != nil {
		ok, err := a.deps.Authorizer.CheckControlAuthorization(ctx, operatorID, a.scope)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeControlNotAuthorized, "check control authorization", err)
		}
		if !ok {
			return ErrNotAuthorized
		}
	}

	switch action {
	case ActionEnd:
		return a.end(ctx, operatorID)
	case ActionAbort:
		return a.abort(ctx, operatorID, true)
	case ActionConvert:
		return a.convert(ctx, operatorID)
	case ActionDelete:
		return a.abort(ctx, operatorID, false)
	default:
		return ErrInvalidForState
	}
}

// RenderSnapshot returns a consistent point-in-time projection of the session.
// It is safe to call concurrently with mutation.
func (a *Instance) RenderSnapshot() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewLocked()
}

// Shutdown stops the session's timers and refresh tasks without transitioning
// state. Used on process shutdown; the persisted snapshot stays for recovery.
func (a *Instance) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopAllLocked()
}

// end transitions IN_PROGRESS -> FINISHED and arms the staff-response window.
func (a *Instance) end(ctx context.Context, actorID string) error {
	a.mu.Lock()
	if a.status != StatusInProgress {
		a.mu.Unlock()
		return ErrInvalidForState
	}
	a.status = StatusFinished
	a.lastTransitionAt = a.deps.Clock().UTC()
	a.stopReactionLocked()
	a.stopRefreshLocked()
	a.staffTimer = time.AfterFunc(a.deps.StaffWindow, a.expireStaffWindow)
	record := a.recordLocked()
	a.mu.Unlock()

	a.persistUpdate(ctx, record)
	a.renderBothViews(ctx)
	a.emit(ctx, record.ID, "session.finished", telemetry.SeverityInfo, actorID, "claim collection ended")
	return nil
}

// abort transitions IN_PROGRESS/FINISHED -> ABORTED and runs terminal cleanup.
func (a *Instance) abort(ctx context.Context, actorID string, renderFinal bool) error {
	a.mu.Lock()
	if a.status != StatusInProgress && a.status != StatusFinished {
		a.mu.Unlock()
		return ErrInvalidForState
	}
	a.status = StatusAborted
	a.lastTransitionAt = a.deps.Clock().UTC()
	a.stopAllLocked()
	id := a.id
	a.mu.Unlock()

	if renderFinal {
		a.renderBothViews(ctx)
	}
	if err := a.deps.Store.RemoveSession(ctx, id); err != nil {
		log.Printf("remove session snapshot failed session_id=%s error=%v", id, err)
	}
	a.emit(ctx, id, "session.aborted", telemetry.SeverityInfo, actorID, "session aborted")
	if a.deps.OnTerminal != nil {
		a.deps.OnTerminal(id)
	}
	return nil
}

// convert transitions FINISHED -> CONVERTED, hands the finalized claims to the
// live-run collaborator, and runs terminal cleanup.
func (a *Instance) convert(ctx context.Context, actorID string) error {
	a.mu.Lock()
	if a.status != StatusFinished {
		a.mu.Unlock()
		return ErrInvalidForState
	}
	a.status = StatusConverted
	a.lastTransitionAt = a.deps.Clock().UTC()
	a.stopAllLocked()
	id := a.id
	claims := a.ledger.AllClaims()
	a.mu.Unlock()

	a.renderBothViews(ctx)
	if a.deps.Handoff != nil {
		// Fire-and-forget from the session's perspective.
		if err := a.deps.Handoff.HandoffToLiveRun(ctx, a.scope, claims); err != nil {
			log.Printf("live run handoff failed session_id=%s error=%v", id, err)
		}
	}
	if err := a.deps.Store.RemoveSession(ctx, id); err != nil {
		log.Printf("remove session snapshot failed session_id=%s error=%v", id, err)
	}
	a.emit(ctx, id, "session.converted", telemetry.SeverityInfo, actorID, "session converted to live run")
	if a.deps.OnTerminal != nil {
		a.deps.OnTerminal(id)
	}
	return nil
}

// expireReactionWindow auto-ends claim collection when the window elapses.
func (a *Instance) expireReactionWindow() {
	if err := a.end(context.Background(), ""); err != nil && !errors.Is(err, ErrInvalidForState) {
		log.Printf("auto end failed session_id=%s error=%v", a.ID(), err)
	}
}

// expireStaffWindow auto-aborts a finished session no operator acted on.
func (a *Instance) expireStaffWindow() {
	if err := a.abort(context.Background(), "", true); err != nil && !errors.Is(err, ErrInvalidForState) {
		log.Printf("auto abort failed session_id=%s error=%v", a.ID(), err)
	}
}

// armInProgressLocked starts the reaction timer and both refresh tasks.
func (a *Instance) armInProgressLocked(window time.Duration) {
	a.reactionTimer = time.AfterFunc(window, a.expireReactionWindow)
	a.startRefreshLocked()
}

// startRefreshLocked launches the participant-view and control-view refresh
// tasks. Each runs until the session leaves IN_PROGRESS.
func (a *Instance) startRefreshLocked() {
	if a.deps.Renderer == nil {
		return
	}
	stop := make(chan struct{})
	a.refreshStop = stop
	go a.refreshLoop(stop, "announcement", a.deps.Renderer.Render)
	go a.refreshLoop(stop, "control", a.deps.Renderer.RenderControlView)
}

// refreshLoop periodically re-renders one surface. A render error wrapping
// ErrArtifactMissing is session-fatal and triggers the abort cleanup path;
// any other error is transient and only logged.
func (a *Instance) refreshLoop(stop <-chan struct{}, surface string, render func(context.Context, View) (string, error)) {
	ticker := time.NewTicker(a.deps.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := render(context.Background(), a.RenderSnapshot()); err != nil {
				if errors.Is(err, ErrArtifactMissing) {
					log.Printf("render target gone session_id=%s surface=%s", a.ID(), surface)
					if abortErr := a.abort(context.Background(), "", false); abortErr != nil && !errors.Is(abortErr, ErrInvalidForState) {
						log.Printf("fatal abort failed session_id=%s error=%v", a.ID(), abortErr)
					}
					return
				}
				log.Printf("refresh render failed session_id=%s surface=%s error=%v", a.ID(), surface, err)
			}
		}
	}
}

func (a *Instance) stopReactionLocked() {
	if a.reactionTimer != nil {
		a.reactionTimer.Stop()
		a.reactionTimer = nil
	}
}

func (a *Instance) stopRefreshLocked() {
	if a.refreshStop != nil {
		close(a.refreshStop)
		a.refreshStop = nil
	}
}

func (a *Instance) stopAllLocked() {
	a.stopReactionLocked()
	a.stopRefreshLocked()
	if a.staffTimer != nil {
		a.staffTimer.Stop()
		a.staffTimer = nil
	}
}

// candidatesLocked resolves an option's qualifier candidate ids against the
// catalog, preserving candidate order.
func (a *Instance) candidatesLocked(opt option.Option) []catalog.Modifier {
	var candidates []catalog.Modifier
	for _, id := range opt.QualifierCandidates {
		if modifier, ok := a.deps.Catalog.Get(id); ok {
			candidates = append(candidates, modifier)
		}
	}
	return candidates
}

// recordLocked flattens the session into its persisted snapshot form.
func (a *Instance) recordLocked() storage.SessionRecord {
	record := storage.SessionRecord{
		ID:                a.id,
		SectionID:         a.scope.SectionID,
		ActivityID:        a.scope.ActivityID,
		InitiatorID:       a.initiator,
		Status:            a.status.String(),
		TargetChannelID:   a.env.TargetChannelID,
		ControlChannelID:  a.env.ControlChannelID,
		EligibilityRoleID: a.env.EligibilityRoleID,
		ControlArtifactID: a.controlArtifactID,
		ReactionWindow:    a.reactionWindow,
		CreatedAt:         a.createdAt,
		LastTransitionAt:  a.lastTransitionAt,
	}
	for _, opt := range a.options.All() {
		record.Options = append(record.Options, storage.OptionRecord{
			Key:                 opt.Key,
			Kind:                opt.Kind.String(),
			Name:                opt.Display.Name,
			Emoji:               opt.Display.Emoji,
			QualifierCandidates: opt.QualifierCandidates,
		})
	}
	for _, entry := range a.ledger.AllClaims() {
		claimRecord := storage.ClaimRecord{
			OptionKey:     entry.OptionKey,
			ParticipantID: entry.Claim.ParticipantID,
			Corrections:   entry.Claim.Corrections,
		}
		for _, qualifier := range entry.Claim.Qualifiers {
			claimRecord.Qualifiers = append(claimRecord.Qualifiers, storage.QualifierRecord{
				Name:  qualifier.Name,
				Level: qualifier.Level,
			})
		}
		record.Claims = append(record.Claims, claimRecord)
	}
	return record
}

// persistUpdate writes an update-class snapshot. Failures degrade recovery
// fidelity but never block live operation: the in-memory session remains the
// source of truth.
func (a *Instance) persistUpdate(ctx context.Context, record storage.SessionRecord) {
	if err := a.deps.Store.UpdateSession(ctx, record); err != nil {
		log.Printf("update session snapshot failed session_id=%s error=%v", record.ID, err)
		a.emit(ctx, record.ID, "snapshot.update_failed", telemetry.SeverityWarn, "", err.Error())
	}
}

// renderBothViews pushes a fresh projection to both surfaces, best effort.
func (a *Instance) renderBothViews(ctx context.Context) {
	view := a.RenderSnapshot()
	if _, err := a.deps.Renderer.Render(ctx, view); err != nil {
		log.Printf("render announcement failed session_id=%s error=%v", view.ID, err)
	}
	if _, err := a.deps.Renderer.RenderControlView(ctx, view); err != nil {
		log.Printf("render control view failed session_id=%s error=%v", view.ID, err)
	}
}

func (a *Instance) emit(ctx context.Context, sessionID, eventName string, severity telemetry.Severity, actorID, message string) {
	if err := a.deps.Telemetry.Emit(ctx, storage.TelemetryEvent{
		EventName: eventName,
		Severity:  string(severity),
		SessionID: sessionID,
		ActorID:   actorID,
		Message:   message,
	}); err != nil {
		log.Printf("emit telemetry failed event=%s error=%v", eventName, err)
	}
}
