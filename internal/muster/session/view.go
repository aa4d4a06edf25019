package session

import (
	"time"

	"github.com/louisbranch/musterpoint/internal/muster/option"
)

// ClaimView is the renderable projection of one recorded claim.
type ClaimView struct {
	ParticipantID string
	Qualifiers    []string
	Corrections   int
}

// OptionView is the renderable projection of one option and its claims.
type OptionView struct {
	Key    string
	Name   string
	Emoji  string
	Kind   option.Kind
	Count  int
	Claims []ClaimView
}

// View is a consistent point-in-time projection of a session for the
// presentation sink. It shares no memory with live session state.
type View struct {
	ID               string
	Status           Status
	SectionID        string
	ActivityID       string
	Options          []OptionView
	InterestCount    int
	CreatedAt        time.Time
	LastTransitionAt time.Time
	ReactionDeadline time.Time
}

// viewLocked builds the projection. Callers must hold the session mutex.
func (a *Instance) viewLocked() View {
	view := View{
		ID:               a.id,
		Status:           a.status,
		SectionID:        a.scope.SectionID,
		ActivityID:       a.scope.ActivityID,
		CreatedAt:        a.createdAt,
		LastTransitionAt: a.lastTransitionAt,
		ReactionDeadline: a.reactionDeadline,
	}
	for _, opt := range a.options.All() {
		optionView := OptionView{
			Key:   opt.Key,
			Name:  opt.Display.Name,
			Emoji: opt.Display.Emoji,
			Kind:  opt.Kind,
			Count: a.ledger.CountFor(opt.Key),
		}
		for _, claim := range a.ledger.ClaimsFor(opt.Key) {
			claimView := ClaimView{
				ParticipantID: claim.ParticipantID,
				Corrections:   claim.Corrections,
			}
			for _, qualifier := range claim.Qualifiers {
				claimView.Qualifiers = append(claimView.Qualifiers, qualifier.Label())
			}
			optionView.Claims = append(optionView.Claims, claimView)
		}
		if opt.Kind == option.KindPureInterest {
			view.InterestCount += optionView.Count
		}
		view.Options = append(view.Options, optionView)
	}
	return view
}
