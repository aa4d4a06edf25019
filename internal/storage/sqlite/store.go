// Package sqlite provides the SQLite-backed session snapshot store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/musterpoint/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/musterpoint/internal/storage"
	"github.com/louisbranch/musterpoint/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists session snapshots and telemetry events in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite snapshot store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendSession inserts the initial snapshot for a new session.
func (s *Store) AppendSession(ctx context.Context, record storage.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("session id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO sessions (
		   id, section_id, activity_id, initiator_id, status,
		   target_channel_id, control_channel_id, eligibility_role_id,
		   control_artifact_id, reaction_window_ms, created_at, last_transition_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.SectionID,
		record.ActivityID,
		record.InitiatorID,
		record.Status,
		record.TargetChannelID,
		record.ControlChannelID,
		record.EligibilityRoleID,
		record.ControlArtifactID,
		record.ReactionWindow.Milliseconds(),
		toMillis(record.CreatedAt),
		toMillis(record.LastTransitionAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrSessionExists
		}
		return fmt.Errorf("append session: %w", err)
	}

	if err := insertOptions(ctx, tx, record); err != nil {
		return err
	}
	if err := insertClaims(ctx, tx, record); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append session: %w", err)
	}
	return nil
}

// UpdateSession replaces the full snapshot for a session. The write is an
// upsert: replaying the same snapshot twice leaves identical state.
func (s *Store) UpdateSession(ctx context.Context, record storage.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("session id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO sessions (
		   id, section_id, activity_id, initiator_id, status,
		   target_channel_id, control_channel_id, eligibility_role_id,
		   control_artifact_id, reaction_window_ms, created_at, last_transition_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status = excluded.status,
		   control_artifact_id = excluded.control_artifact_id,
		   last_transition_at = excluded.last_transition_at`,
		record.ID,
		record.SectionID,
		record.ActivityID,
		record.InitiatorID,
		record.Status,
		record.TargetChannelID,
		record.ControlChannelID,
		record.EligibilityRoleID,
		record.ControlArtifactID,
		record.ReactionWindow.Milliseconds(),
		toMillis(record.CreatedAt),
		toMillis(record.LastTransitionAt),
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_options WHERE session_id = ?`, record.ID); err != nil {
		return fmt.Errorf("update session options: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_claims WHERE session_id = ?`, record.ID); err != nil {
		return fmt.Errorf("update session claims: %w", err)
	}
	if err := insertOptions(ctx, tx, record); err != nil {
		return err
	}
	if err := insertClaims(ctx, tx, record); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update session: %w", err)
	}
	return nil
}

// RemoveSession deletes the snapshot for a session. Missing ids are a no-op.
func (s *Store) RemoveSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// ListSessionsByStatus returns every snapshot holding one of the statuses,
// with options in definition order and claims in their recorded order.
func (s *Store) ListSessionsByStatus(ctx context.Context, statuses []string) ([]storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(statuses))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, status)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, section_id, activity_id, initiator_id, status,
		        target_channel_id, control_channel_id, eligibility_role_id,
		        control_artifact_id, reaction_window_ms, created_at, last_transition_at
		   FROM sessions
		  WHERE status IN (`+placeholders+`)
		  ORDER BY created_at ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []storage.SessionRecord
	for rows.Next() {
		var record storage.SessionRecord
		var windowMillis int64
		var createdAt int64
		var lastTransitionAt int64
		if err := rows.Scan(
			&record.ID,
			&record.SectionID,
			&record.ActivityID,
			&record.InitiatorID,
			&record.Status,
			&record.TargetChannelID,
			&record.ControlChannelID,
			&record.EligibilityRoleID,
			&record.ControlArtifactID,
			&windowMillis,
			&createdAt,
			&lastTransitionAt,
		); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		record.ReactionWindow = time.Duration(windowMillis) * time.Millisecond
		record.CreatedAt = fromMillis(createdAt)
		record.LastTransitionAt = fromMillis(lastTransitionAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	for i := range records {
		if records[i].Options, err = s.loadOptions(ctx, records[i].ID); err != nil {
			return nil, err
		}
		if records[i].Claims, err = s.loadClaims(ctx, records[i].ID); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// AppendTelemetryEvent records one operational event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, event storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO telemetry_events (timestamp, event_name, severity, session_id, actor_id, message)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		toMillis(event.Timestamp),
		event.EventName,
		event.Severity,
		event.SessionID,
		event.ActorID,
		event.Message,
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}

func insertOptions(ctx context.Context, tx *sql.Tx, record storage.SessionRecord) error {
	for position, opt := range record.Options {
		candidates, err := json.Marshal(opt.QualifierCandidates)
		if err != nil {
			return fmt.Errorf("marshal qualifier candidates: %w", err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO session_options (session_id, position, option_key, kind, name, emoji, qualifier_candidates)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			record.ID,
			position,
			opt.Key,
			opt.Kind,
			opt.Name,
			opt.Emoji,
			string(candidates),
		); err != nil {
			return fmt.Errorf("insert session option %s: %w", opt.Key, err)
		}
	}
	return nil
}

func insertClaims(ctx context.Context, tx *sql.Tx, record storage.SessionRecord) error {
	for seq, claim := range record.Claims {
		qualifiers, err := json.Marshal(claim.Qualifiers)
		if err != nil {
			return fmt.Errorf("marshal qualifiers: %w", err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO session_claims (session_id, option_key, participant_id, seq, qualifiers, corrections)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			record.ID,
			claim.OptionKey,
			claim.ParticipantID,
			seq,
			string(qualifiers),
			claim.Corrections,
		); err != nil {
			return fmt.Errorf("insert session claim %s/%s: %w", claim.OptionKey, claim.ParticipantID, err)
		}
	}
	return nil
}

func (s *Store) loadOptions(ctx context.Context, sessionID string) ([]storage.OptionRecord, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT option_key, kind, name, emoji, qualifier_candidates
		   FROM session_options
		  WHERE session_id = ?
		  ORDER BY position ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load session options: %w", err)
	}
	defer rows.Close()

	var options []storage.OptionRecord
	for rows.Next() {
		var opt storage.OptionRecord
		var candidates string
		if err := rows.Scan(&opt.Key, &opt.Kind, &opt.Name, &opt.Emoji, &candidates); err != nil {
			return nil, fmt.Errorf("load session options: %w", err)
		}
		if err := json.Unmarshal([]byte(candidates), &opt.QualifierCandidates); err != nil {
			return nil, fmt.Errorf("unmarshal qualifier candidates: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load session options: %w", err)
	}
	return options, nil
}

func (s *Store) loadClaims(ctx context.Context, sessionID string) ([]storage.ClaimRecord, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT option_key, participant_id, qualifiers, corrections
		   FROM session_claims
		  WHERE session_id = ?
		  ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load session claims: %w", err)
	}
	defer rows.Close()

	var claims []storage.ClaimRecord
	for rows.Next() {
		var claim storage.ClaimRecord
		var qualifiers string
		if err := rows.Scan(&claim.OptionKey, &claim.ParticipantID, &qualifiers, &claim.Corrections); err != nil {
			return nil, fmt.Errorf("load session claims: %w", err)
		}
		if err := json.Unmarshal([]byte(qualifiers), &claim.Qualifiers); err != nil {
			return nil, fmt.Errorf("unmarshal qualifiers: %w", err)
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load session claims: %w", err)
	}
	return claims, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.SnapshotStore = (*Store)(nil)
var _ storage.TelemetryStore = (*Store)(nil)
