package session

import (
	"fmt"
	"time"

	"github.com/louisbranch/musterpoint/internal/muster/confirm"
	"github.com/louisbranch/musterpoint/internal/muster/ledger"
	"github.com/louisbranch/musterpoint/internal/muster/option"
	"github.com/louisbranch/musterpoint/internal/storage"
)

// Rehydrate rebuilds a session instance from a persisted snapshot and a
// freshly resolved environment. The returned instance holds its recovered
// status but has no timers armed; call Resume to bring it back to life.
func Rehydrate(record storage.SessionRecord, env Environment, deps Deps) (*Instance, error) {
	deps = deps.withDefaults()

	status, err := ParseStatus(record.Status)
	if err != nil {
		return nil, fmt.Errorf("rehydrate session %s: %w", record.ID, err)
	}
	if status != StatusInProgress && status != StatusFinished {
		return nil, fmt.Errorf("rehydrate session %s: status %s is not recoverable", record.ID, status)
	}

	options := make([]option.Option, 0, len(record.Options))
	for _, opt := range record.Options {
		options = append(options, option.Option{
			Key:                 opt.Key,
			Kind:                option.ParseKind(opt.Kind),
			Display:             option.DisplayMeta{Name: opt.Name, Emoji: opt.Emoji},
			QualifierCandidates: opt.QualifierCandidates,
		})
	}
	set, err := option.Definition{Custom: options}.Resolve(deps.Catalog)
	if err != nil {
		return nil, fmt.Errorf("rehydrate session %s: %w", record.ID, err)
	}

	// Replay claims in their recorded order so the rebuilt ledger flattens
	// identically to the pre-crash one.
	replayed := ledger.New(set.Keys())
	for _, claim := range record.Claims {
		entry := ledger.Claim{
			ParticipantID: claim.ParticipantID,
			Corrections:   claim.Corrections,
		}
		for _, qualifier := range claim.Qualifiers {
			entry.Qualifiers = append(entry.Qualifiers, ledger.Qualifier{
				Name:  qualifier.Name,
				Level: qualifier.Level,
			})
		}
		if err := replayed.Add(claim.OptionKey, entry); err != nil {
			return nil, fmt.Errorf("rehydrate session %s: replay claim for %s: %w", record.ID, claim.OptionKey, err)
		}
	}

	return &Instance{
		id:                record.ID,
		initiator:         record.InitiatorID,
		scope:             Scope{SectionID: record.SectionID, ActivityID: record.ActivityID, ReactionWindow: record.ReactionWindow},
		env:               env,
		status:            status,
		options:           set,
		ledger:            replayed,
		guard:             confirm.NewGuard(),
		flows:             make(map[string]*confirm.Flow),
		deps:              deps,
		controlArtifactID: record.ControlArtifactID,
		createdAt:         record.CreatedAt,
		lastTransitionAt:  record.LastTransitionAt,
		reactionWindow:    record.ReactionWindow,
		reactionDeadline:  record.CreatedAt.Add(record.ReactionWindow),
	}, nil
}

// Resume re-arms the timers a recovered session needs. A window that elapsed
// while the process was down fires almost immediately, so the session takes
// the auto-transition it missed instead of lingering.
func (a *Instance) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.deps.Clock().UTC()
	switch a.status {
	case StatusInProgress:
		remaining := a.reactionDeadline.Sub(now)
		if remaining <= 0 {
			remaining = time.Millisecond
		}
		a.armInProgressLocked(remaining)
	case StatusFinished:
		remaining := a.lastTransitionAt.Add(a.deps.StaffWindow).Sub(now)
		if remaining <= 0 {
			remaining = time.Millisecond
		}
		a.staffTimer = time.AfterFunc(remaining, a.expireStaffWindow)
	}
}
