// Package confirm implements the interactive qualifier confirmation that runs
// between a raw claim attempt and a recorded claim.
//
// Each claim attempt on a resource-claim option gets its own Flow: a small
// state machine driven by a single response queue. The transport presents
// prompts through the Prompter and feeds the participant's answers back with
// Respond; the flow owns every timeout window and always resolves to a
// terminal Outcome, never an error.
package confirm

import (
	"context"
	"time"

	"github.com/louisbranch/musterpoint/internal/muster/catalog"
	"github.com/louisbranch/musterpoint/internal/muster/ledger"
	"github.com/louisbranch/musterpoint/internal/platform/timeouts"
)

// Outcome is the terminal result of a confirmation flow.
type Outcome int

const (
	// OutcomeUnspecified represents an invalid outcome value.
	OutcomeUnspecified Outcome = iota
	// OutcomeConfirmed indicates the participant finalized a qualifier set.
	OutcomeConfirmed
	// OutcomeCancelled indicates the participant declined or abandoned the attempt.
	OutcomeCancelled
	// OutcomeTimedOut indicates a response window expired.
	OutcomeTimedOut
)

// String returns a stable label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "CONFIRMED"
	case OutcomeCancelled:
		return "CANCELLED"
	case OutcomeTimedOut:
		return "TIMED_OUT"
	default:
		return "UNSPECIFIED"
	}
}

// UnspecifiedQualifier is the sentinel recorded when a participant reports
// qualifiers the option does not list.
func UnspecifiedQualifier() ledger.Qualifier {
	return ledger.Qualifier{Name: "unspecified"}
}

// Result carries the outcome of one confirmation flow. Qualifiers is only
// meaningful when Outcome is OutcomeConfirmed.
type Result struct {
	Outcome     Outcome
	Qualifiers  []ledger.Qualifier
	Corrections int
}

// Response is one participant answer fed into a flow's queue.
type Response interface {
	isResponse()
}

// QualifierChoice answers the qualifier multi-select prompt.
type QualifierChoice struct {
	Selected  []string // modifier ids, in selection order
	None      bool     // "no qualifiers"
	NotListed bool     // "qualifiers not listed"
}

func (QualifierChoice) isResponse() {}

// LevelChoice answers a per-qualifier level prompt.
type LevelChoice struct {
	ModifierID string // modifier the answer refers to; stale answers are ignored
	Level      int
	Cancel     bool // abandon the whole attempt
	Mistake    bool // remove just this qualifier, keep going
}

func (LevelChoice) isResponse() {}

// BinaryChoice answers the yes/no confirmation used when an option has no
// qualifier candidates.
type BinaryChoice struct {
	Confirmed     bool
	HasQualifiers bool
}

func (BinaryChoice) isResponse() {}

// Prompter presents confirmation prompts to a single participant. Prompt
// errors abort the attempt as a cancellation; they never propagate.
type Prompter interface {
	PromptQualifiers(ctx context.Context, participantID, optionKey string, candidates []catalog.Modifier) error
	PromptLevel(ctx context.Context, participantID, optionKey string, modifier catalog.Modifier) error
	PromptBinary(ctx context.Context, participantID, optionKey string) error
}

// Windows configures the response deadlines of a flow. Zero values fall back
// to the shared defaults; tests shrink them.
type Windows struct {
	Qualifier time.Duration
	Level     time.Duration
	Binary    time.Duration
}

func (w Windows) withDefaults() Windows {
	if w.Qualifier <= 0 {
		w.Qualifier = timeouts.QualifierSelect
	}
	if w.Level <= 0 {
		w.Level = timeouts.LevelSelect
	}
	if w.Binary <= 0 {
		w.Binary = timeouts.BinaryConfirm
	}
	return w
}

// Flow is one in-flight confirmation attempt.
type Flow struct {
	participantID string
	optionKey     string
	candidates    []catalog.Modifier
	prompter      Prompter
	windows       Windows
	responses     chan Response
}

// NewFlow creates a confirmation flow for one claim attempt.
func NewFlow(participantID, optionKey string, candidates []catalog.Modifier, prompter Prompter, windows Windows) *Flow {
	return &Flow{
		participantID: participantID,
		optionKey:     optionKey,
		candidates:    candidates,
		prompter:      prompter,
		windows:       windows.withDefaults(),
		responses:     make(chan Response, 4),
	}
}

// Respond feeds a participant answer into the flow. It never blocks; answers
// arriving when the queue is full are dropped and reported as false.
func (f *Flow) Respond(response Response) bool {
	select {
	case f.responses <- response:
		return true
	default:
		return false
	}
}

// Run drives the flow to a terminal outcome. A cancelled context resolves to
// OutcomeCancelled.
func (f *Flow) Run(ctx context.Context) Result {
	if len(f.candidates) == 0 {
		return f.runBinaryConfirm(ctx)
	}
	return f.runQualifierSelect(ctx)
}

// runBinaryConfirm handles options without qualifier candidates. Silence is
// treated identically to an explicit decline.
func (f *Flow) runBinaryConfirm(ctx context.Context) Result {
	if err := f.prompter.PromptBinary(ctx, f.participantID, f.optionKey); err != nil {
		return Result{Outcome: OutcomeCancelled}
	}

	deadline := time.NewTimer(f.windows.Binary)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return Result{Outcome: OutcomeCancelled}
		case <-deadline.C:
			return Result{Outcome: OutcomeCancelled}
		case response := <-f.responses:
			choice, ok := response.(BinaryChoice)
			if !ok {
				continue
			}
			if !choice.Confirmed {
				return Result{Outcome: OutcomeCancelled}
			}
			if choice.HasQualifiers {
				return Result{Outcome: OutcomeConfirmed, Qualifiers: []ledger.Qualifier{UnspecifiedQualifier()}}
			}
			return Result{Outcome: OutcomeConfirmed}
		}
	}
}

// runQualifierSelect handles options with qualifier candidates: one
// multi-select prompt, then one level prompt per selected qualifier whose
// catalog entry carries levels.
func (f *Flow) runQualifierSelect(ctx context.Context) Result {
	if err := f.prompter.PromptQualifiers(ctx, f.participantID, f.optionKey, f.candidates); err != nil {
		return Result{Outcome: OutcomeCancelled}
	}

	selected, result, done := f.awaitQualifierChoice(ctx)
	if done {
		return result
	}

	var qualifiers []ledger.Qualifier
	corrections := 0
	for _, modifier := range selected {
		if modifier.MaxLevel == 1 {
			qualifiers = append(qualifiers, ledger.Qualifier{Name: modifier.Name})
			continue
		}

		level, levelResult, levelDone := f.awaitLevelChoice(ctx, modifier)
		if levelDone {
			// Timeout or cancel discards all partial progress.
			return levelResult
		}
		if level == 0 {
			// Qualifier was selected by mistake; drop it and keep going.
			corrections++
			continue
		}
		qualifiers = append(qualifiers, ledger.Qualifier{Name: modifier.Name, Level: level})
	}

	return Result{Outcome: OutcomeConfirmed, Qualifiers: qualifiers, Corrections: corrections}
}

// awaitQualifierChoice waits for the multi-select answer. When done is true
// the flow is over and result is terminal; otherwise selected holds the
// modifiers to finalize, in selection order.
func (f *Flow) awaitQualifierChoice(ctx context.Context) (selected []catalog.Modifier, result Result, done bool) {
	deadline := time.NewTimer(f.windows.Qualifier)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, Result{Outcome: OutcomeCancelled}, true
		case <-deadline.C:
			return nil, Result{Outcome: OutcomeTimedOut}, true
		case response := <-f.responses:
			choice, ok := response.(QualifierChoice)
			if !ok {
				continue
			}
			if choice.None {
				return nil, Result{Outcome: OutcomeConfirmed}, true
			}
			if choice.NotListed {
				return nil, Result{
					Outcome:    OutcomeConfirmed,
					Qualifiers: []ledger.Qualifier{UnspecifiedQualifier()},
				}, true
			}
			selected = f.filterKnown(choice.Selected)
			if len(selected) == 0 {
				// Selection contained nothing the option offers.
				return nil, Result{Outcome: OutcomeConfirmed}, true
			}
			return selected, Result{}, false
		}
	}
}

// awaitLevelChoice waits for the level answer for one modifier. When done is
// true the whole attempt is over; otherwise level is 1..MaxLevel, or 0 when
// the qualifier was retracted as a mistake.
func (f *Flow) awaitLevelChoice(ctx context.Context, modifier catalog.Modifier) (level int, result Result, done bool) {
	if err := f.prompter.PromptLevel(ctx, f.participantID, f.optionKey, modifier); err != nil {
		return 0, Result{Outcome: OutcomeCancelled}, true
	}

	deadline := time.NewTimer(f.windows.Level)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0, Result{Outcome: OutcomeCancelled}, true
		case <-deadline.C:
			return 0, Result{Outcome: OutcomeTimedOut}, true
		case response := <-f.responses:
			choice, ok := response.(LevelChoice)
			if !ok {
				continue
			}
			if choice.ModifierID != "" && choice.ModifierID != modifier.ID {
				continue
			}
			if choice.Cancel {
				return 0, Result{Outcome: OutcomeCancelled}, true
			}
			if choice.Mistake {
				return 0, Result{}, false
			}
			if choice.Level < 1 || choice.Level > modifier.MaxLevel {
				continue
			}
			return choice.Level, Result{}, false
		}
	}
}

// filterKnown keeps only ids that are actual candidates, preserving selection
// order and dropping repeats.
func (f *Flow) filterKnown(ids []string) []catalog.Modifier {
	byID := make(map[string]catalog.Modifier, len(f.candidates))
	for _, candidate := range f.candidates {
		byID[candidate.ID] = candidate
	}
	var selected []catalog.Modifier
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if modifier, ok := byID[id]; ok {
			selected = append(selected, modifier)
		}
	}
	return selected
}
