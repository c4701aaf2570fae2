package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skafu/skafu/internal/platform/id"
	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
	"github.com/skafu/skafu/internal/services/scaffold/storage"
)

const eventColumns = `project_id, seq, event_id, schema_version, timestamp, event_type,
	actor_id, request_id, correlation_id, causation_id, entity_type, entity_id, payload_json`

// AppendEvents appends events atomically at the expected journal version.
//
// The journal version is the MAX(seq) for the project. A mismatch between
// expectedVersion and the stored version returns storage.ErrConcurrencyConflict
// without appending anything. The (project_id, seq) primary key backstops
// races that slip past the version read inside the same transaction.
func (s *Store) AppendEvents(ctx context.Context, projectID string, expectedVersion uint64, events []event.Event) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if s.eventRegistry == nil {
		return nil, fmt.Errorf("event registry is required")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("at least one event is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback()

	var current sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM events WHERE project_id = ?`, projectID,
	).Scan(&current); err != nil {
		return nil, fmt.Errorf("read journal version: %w", err)
	}
	version := uint64(0)
	if current.Valid {
		version = uint64(current.Int64)
	}
	if version != expectedVersion {
		return nil, storage.ErrConcurrencyConflict
	}

	stored := make([]event.Event, 0, len(events))
	for i, evt := range events {
		normalized, err := s.eventRegistry.ValidateForAppend(evt)
		if err != nil {
			return nil, err
		}
		evt = normalized
		if evt.ProjectID != projectID {
			return nil, fmt.Errorf("event project id %q does not match journal %q", evt.ProjectID, projectID)
		}
		if evt.Timestamp.IsZero() {
			evt.Timestamp = time.Now().UTC()
		}
		evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
		evt.Seq = expectedVersion + uint64(i) + 1
		if evt.EventID == "" {
			eventID, err := id.New()
			if err != nil {
				return nil, fmt.Errorf("generate event id: %w", err)
			}
			evt.EventID = eventID
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (`+eventColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			evt.ProjectID,
			int64(evt.Seq),
			evt.EventID,
			evt.SchemaVersion,
			toMillis(evt.Timestamp),
			string(evt.Type),
			evt.ActorID,
			evt.RequestID,
			evt.CorrelationID,
			evt.CausationID,
			evt.EntityType,
			evt.EntityID,
			string(evt.PayloadJSON),
		); err != nil {
			if isConstraintError(err) {
				return nil, storage.ErrConcurrencyConflict
			}
			return nil, fmt.Errorf("append event %s/%d: %w", evt.ProjectID, evt.Seq, err)
		}

		if err := s.enqueuePublishOutbox(ctx, tx, evt); err != nil {
			return nil, err
		}
		stored = append(stored, evt)
	}

	if err := tx.Commit(); err != nil {
		if isConstraintError(err) {
			return nil, storage.ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("commit append tx: %w", err)
	}
	return stored, nil
}

// ListEvents returns up to limit events for a project with seq greater than afterSeq.
func (s *Store) ListEvents(ctx context.Context, projectID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if limit <= 0 {
		return []event.Event{}, nil
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE project_id = ? AND seq > ?
		 ORDER BY seq ASC
		 LIMIT ?`,
		projectID, int64(afterSeq), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]event.Event, 0, limit)
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// GetEventBySeq returns one event by its journal sequence.
func (s *Store) GetEventBySeq(ctx context.Context, projectID string, seq uint64) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE project_id = ? AND seq = ?`,
		projectID, int64(seq),
	)
	evt, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, storage.ErrNotFound
	}
	if err != nil {
		return event.Event{}, err
	}
	return evt, nil
}

// GetLatestSeq returns the current journal version for a project, zero when empty.
func (s *Store) GetLatestSeq(ctx context.Context, projectID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var current sql.NullInt64
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM events WHERE project_id = ?`, projectID,
	).Scan(&current); err != nil {
		return 0, fmt.Errorf("get latest seq: %w", err)
	}
	if !current.Valid {
		return 0, nil
	}
	return uint64(current.Int64), nil
}

// ListProjectIDs returns the distinct project ids present in the journal.
func (s *Store) ListProjectIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT DISTINCT project_id FROM events ORDER BY project_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var projectID string
		if err := rows.Scan(&projectID); err != nil {
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		ids = append(ids, projectID)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		evt             event.Event
		seq             int64
		timestampMillis int64
		eventType       string
		payload         string
	)
	if err := row.Scan(
		&evt.ProjectID,
		&seq,
		&evt.EventID,
		&evt.SchemaVersion,
		&timestampMillis,
		&eventType,
		&evt.ActorID,
		&evt.RequestID,
		&evt.CorrelationID,
		&evt.CausationID,
		&evt.EntityType,
		&evt.EntityID,
		&payload,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Event{}, err
		}
		return event.Event{}, fmt.Errorf("scan event: %w", err)
	}
	evt.Seq = uint64(seq)
	evt.Timestamp = fromMillis(timestampMillis)
	evt.Type = event.Type(eventType)
	evt.PayloadJSON = []byte(payload)
	return evt, nil
}
