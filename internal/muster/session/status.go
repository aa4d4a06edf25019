package session

import (
	"fmt"
	"strings"
)

// Status describes the lifecycle state of a session.
type Status int

const (
	// StatusNothing is the pre-start placeholder. It is never externally
	// observable once Start succeeds.
	StatusNothing Status = iota
	// StatusInProgress indicates the session is collecting claims.
	StatusInProgress
	// StatusFinished indicates claim collection ended and the session awaits
	// an operator decision.
	StatusFinished
	// StatusAborted is terminal: the session was cancelled.
	StatusAborted
	// StatusConverted is terminal: the session was handed off to a live run.
	StatusConverted
)

// String returns the stable storage label for a status.
func (s Status) String() string {
	switch s {
	case StatusNothing:
		return "NOTHING"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusFinished:
		return "FINISHED"
	case StatusAborted:
		return "ABORTED"
	case StatusConverted:
		return "CONVERTED"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus maps a stable storage label back to a status.
func ParseStatus(value string) (Status, error) {
	switch strings.TrimSpace(value) {
	case "NOTHING":
		return StatusNothing, nil
	case "IN_PROGRESS":
		return StatusInProgress, nil
	case "FINISHED":
		return StatusFinished, nil
	case "ABORTED":
		return StatusAborted, nil
	case "CONVERTED":
		return StatusConverted, nil
	default:
		return StatusNothing, fmt.Errorf("unknown session status %q", value)
	}
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusAborted || s == StatusConverted
}

// Action is an operator control action routed through the state machine.
type Action int

const (
	// ActionUnspecified represents an invalid action value.
	ActionUnspecified Action = iota
	// ActionEnd closes claim collection: IN_PROGRESS -> FINISHED.
	ActionEnd
	// ActionAbort cancels the session: IN_PROGRESS/FINISHED -> ABORTED.
	ActionAbort
	// ActionConvert hands the session off to a live run: FINISHED -> CONVERTED.
	ActionConvert
	// ActionDelete cancels like ActionAbort but skips the final render and
	// drops the session's artifacts.
	ActionDelete
)

// String returns the stable label for an action.
func (a Action) String() string {
	switch a {
	case ActionEnd:
		return "END"
	case ActionAbort:
		return "ABORT"
	case ActionConvert:
		return "CONVERT"
	case ActionDelete:
		return "DELETE"
	default:
		return "UNSPECIFIED"
	}
}
