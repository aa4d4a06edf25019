// Package storage defines the persistence contract for session snapshots.
//
// The session core treats in-memory state as the source of truth while a
// session is alive; the snapshot store exists so a restart can rehydrate live
// sessions. Writes are idempotent upserts keyed by session id and, for claims,
// by (session id, option key, participant id), so a retried write can never
// duplicate a claim.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrSessionExists indicates a snapshot already exists for the session id.
var ErrSessionExists = errors.New("session snapshot already exists")

// QualifierRecord is the persisted form of a chosen qualifier.
type QualifierRecord struct {
	Name  string `json:"name"`
	Level int    `json:"level,omitempty"`
}

// ClaimRecord is the persisted form of a participant claim.
type ClaimRecord struct {
	OptionKey     string
	ParticipantID string
	Qualifiers    []QualifierRecord
	Corrections   int
}

// OptionRecord is the persisted form of a claimable option definition.
type OptionRecord struct {
	Key                 string
	Kind                string
	Name                string
	Emoji               string
	QualifierCandidates []string
}

// SessionRecord is the persisted, storage-engine-agnostic form of a session.
//
// It carries enough routing information (section, activity, channel and
// artifact identifiers) for recovery to re-resolve the live environment the
// session needs.
type SessionRecord struct {
	ID                string
	SectionID         string
	ActivityID        string
	InitiatorID       string
	Status            string
	TargetChannelID   string
	ControlChannelID  string
	EligibilityRoleID string
	ControlArtifactID string
	ReactionWindow    time.Duration
	CreatedAt         time.Time
	LastTransitionAt  time.Time
	Options           []OptionRecord
	Claims            []ClaimRecord
}

// SnapshotStore persists session snapshots for crash recovery.
type SnapshotStore interface {
	// AppendSession persists the initial snapshot for a new session. It fails
	// with ErrSessionExists when a snapshot with the same id is present.
	AppendSession(ctx context.Context, record SessionRecord) error
	// UpdateSession upserts the full snapshot for an existing session.
	UpdateSession(ctx context.Context, record SessionRecord) error
	// RemoveSession deletes the snapshot for a session id. Removing a missing
	// snapshot is not an error.
	RemoveSession(ctx context.Context, sessionID string) error
	// ListSessionsByStatus returns all snapshots whose status matches one of
	// the provided values, with claims in their original insertion order.
	ListSessionsByStatus(ctx context.Context, statuses []string) ([]SessionRecord, error)
}

// TelemetryEvent records one operational event for diagnostics.
type TelemetryEvent struct {
	Timestamp time.Time
	EventName string
	Severity  string
	SessionID string
	ActorID   string
	Message   string
}

// TelemetryStore persists operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, event TelemetryEvent) error
}
