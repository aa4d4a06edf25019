// Package ledger tracks participant claims per option for one session.
//
// The ledger is a pure in-memory structure with no I/O. It preserves claim
// insertion order per option so that persistence flattening and recovery
// replay reproduce the exact same claim list, and it enforces at most one
// claim per participant per option. Callers serialize access through the
// owning session.
package ledger

import (
	"strconv"

	apperrors "github.com/louisbranch/musterpoint/internal/errors"
)

var (
	// ErrUnknownOption indicates the option key is not part of the session.
	ErrUnknownOption = apperrors.New(apperrors.CodeClaimUnknownOption, "unknown option")
	// ErrDuplicateClaim indicates the participant already claimed the option.
	ErrDuplicateClaim = apperrors.New(apperrors.CodeClaimDuplicate, "participant already claimed this option")
)

// Qualifier is one chosen qualifier tag, optionally with a level.
type Qualifier struct {
	Name  string
	Level int
}

// Label renders the qualifier for display and persistence flattening.
func (q Qualifier) Label() string {
	if q.Level > 0 {
		return q.Name + " " + strconv.Itoa(q.Level)
	}
	return q.Name
}

// Claim is one participant's recorded claim on an option.
type Claim struct {
	ParticipantID string
	Qualifiers    []Qualifier
	Corrections   int
}

// OptionClaim pairs a claim with the option it was recorded against.
type OptionClaim struct {
	OptionKey string
	Claim     Claim
}

// Ledger holds the ordered claims for every option of one session.
type Ledger struct {
	optionOrder []string
	claims      map[string][]Claim
}

// New creates an empty ledger for the provided option keys. The key order
// fixes the flattening order used by AllClaims.
func New(optionKeys []string) *Ledger {
	l := &Ledger{claims: make(map[string][]Claim, len(optionKeys))}
	l.optionOrder = append(l.optionOrder, optionKeys...)
	for _, key := range optionKeys {
		l.claims[key] = nil
	}
	return l
}

// Add appends a claim for an option, rejecting unknown options and duplicate
// claims by the same participant.
func (l *Ledger) Add(optionKey string, claim Claim) error {
	existing, ok := l.claims[optionKey]
	if !ok {
		return ErrUnknownOption
	}
	for _, recorded := range existing {
		if recorded.ParticipantID == claim.ParticipantID {
			return ErrDuplicateClaim
		}
	}
	l.claims[optionKey] = append(existing, claim)
	return nil
}

// Has reports whether the participant already has a claim on the option.
func (l *Ledger) Has(optionKey, participantID string) bool {
	for _, recorded := range l.claims[optionKey] {
		if recorded.ParticipantID == participantID {
			return true
		}
	}
	return false
}

// CountFor returns the number of claims recorded for an option.
func (l *Ledger) CountFor(optionKey string) int {
	return len(l.claims[optionKey])
}

// ClaimsFor returns a copy of the claims for an option in insertion order.
func (l *Ledger) ClaimsFor(optionKey string) []Claim {
	recorded := l.claims[optionKey]
	if len(recorded) == 0 {
		return nil
	}
	out := make([]Claim, len(recorded))
	copy(out, recorded)
	return out
}

// AllClaims flattens the ledger in option order, then claim insertion order.
// The result is deterministic for identical histories, which recovery relies
// on when replaying a persisted snapshot.
func (l *Ledger) AllClaims() []OptionClaim {
	var out []OptionClaim
	for _, key := range l.optionOrder {
		for _, claim := range l.claims[key] {
			out = append(out, OptionClaim{OptionKey: key, Claim: claim})
		}
	}
	return out
}
