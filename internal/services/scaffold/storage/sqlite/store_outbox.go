package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
	"github.com/skafu/skafu/internal/services/scaffold/storage"
)

const (
	outboxDeadLetterThreshold = 8
	outboxProcessingLease     = 2 * time.Minute
)

type publishOutboxRow struct {
	ProjectID    string
	Seq          uint64
	EventType    string
	AttemptCount int
}

// PublishOutboxSummary reports outbox depth and the oldest retry-eligible row.
type PublishOutboxSummary struct {
	PendingCount           int
	ProcessingCount        int
	FailedCount            int
	DeadCount              int
	OldestPendingProjectID string
	OldestPendingSeq       uint64
	OldestPendingAt        time.Time
}

func (s *Store) enqueuePublishOutbox(ctx context.Context, tx *sql.Tx, evt event.Event) error {
	if !s.publishOutbox {
		return nil
	}
	enqueuedAt := time.Now().UTC()
	const enqueueSQL = `
INSERT INTO publish_outbox (
    project_id, seq, event_type, status, attempt_count, next_attempt_at, last_error, updated_at
) VALUES (?, ?, ?, 'pending', 0, ?, '', ?)
ON CONFLICT(project_id, seq) DO NOTHING
`
	if _, err := tx.ExecContext(
		ctx,
		enqueueSQL,
		evt.ProjectID,
		int64(evt.Seq),
		string(evt.Type),
		toMillis(enqueuedAt),
		toMillis(enqueuedAt),
	); err != nil {
		return fmt.Errorf("enqueue publish outbox: %w", err)
	}
	return nil
}

// ProcessPublishOutbox claims due outbox rows and publishes the referenced
// events through the provided callback. Successful rows are removed; failing
// rows are retried with backoff until the dead-letter threshold, then recorded
// as publish failures.
func (s *Store) ProcessPublishOutbox(
	ctx context.Context,
	now time.Time,
	limit int,
	publish func(context.Context, event.Event) error,
) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if publish == nil {
		return 0, fmt.Errorf("publish callback is required")
	}
	if limit <= 0 {
		return 0, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	rows, err := s.claimPublishOutboxDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, row := range rows {
		storedEvent, loadErr := s.GetEventBySeq(ctx, row.ProjectID, row.Seq)
		if loadErr != nil {
			if err := s.markPublishOutboxRetry(ctx, row, now, row.AttemptCount+1, fmt.Sprintf("load event: %v", loadErr), nil); err != nil {
				return processed, err
			}
			processed++
			continue
		}

		if publishErr := publish(ctx, storedEvent); publishErr != nil {
			if err := s.markPublishOutboxRetry(ctx, row, now, row.AttemptCount+1, fmt.Sprintf("publish event: %v", publishErr), storedEvent.PayloadJSON); err != nil {
				return processed, err
			}
			processed++
			continue
		}

		if err := s.completePublishOutboxRow(ctx, row); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// GetPublishOutboxSummary returns queue depth by status and the oldest
// pending/failed row metadata.
func (s *Store) GetPublishOutboxSummary(ctx context.Context) (PublishOutboxSummary, error) {
	if err := ctx.Err(); err != nil {
		return PublishOutboxSummary{}, err
	}
	if s == nil || s.sqlDB == nil {
		return PublishOutboxSummary{}, fmt.Errorf("storage is not configured")
	}

	summary := PublishOutboxSummary{}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT status, COUNT(*)
		 FROM publish_outbox
		 GROUP BY status`,
	)
	if err != nil {
		return PublishOutboxSummary{}, fmt.Errorf("query outbox summary counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return PublishOutboxSummary{}, fmt.Errorf("scan outbox summary count: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(status)) {
		case "pending":
			summary.PendingCount = count
		case "processing":
			summary.ProcessingCount = count
		case "failed":
			summary.FailedCount = count
		case "dead":
			summary.DeadCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return PublishOutboxSummary{}, fmt.Errorf("iterate outbox summary counts: %w", err)
	}

	var (
		projectID   string
		seq         int64
		nextAttempt int64
	)
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT project_id, seq, next_attempt_at
		 FROM publish_outbox
		 WHERE status IN ('pending', 'failed')
		 ORDER BY next_attempt_at ASC, seq ASC
		 LIMIT 1`,
	).Scan(&projectID, &seq, &nextAttempt)
	if err == nil {
		summary.OldestPendingProjectID = projectID
		summary.OldestPendingSeq = uint64(seq)
		summary.OldestPendingAt = fromMillis(nextAttempt)
		return summary, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return summary, nil
	}
	return PublishOutboxSummary{}, fmt.Errorf("query oldest pending outbox row: %w", err)
}

func (s *Store) claimPublishOutboxDue(ctx context.Context, now time.Time, limit int) ([]publishOutboxRow, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin outbox claim tx: %w", err)
	}
	defer tx.Rollback()

	staleBefore := now.Add(-outboxProcessingLease)
	rows, err := tx.QueryContext(ctx,
		`SELECT project_id, seq, event_type, attempt_count
		 FROM publish_outbox
		 WHERE (
			 status IN ('pending', 'failed') AND next_attempt_at <= ?
		 ) OR (
			 status = 'processing' AND updated_at <= ?
		 )
		 ORDER BY next_attempt_at, seq
		 LIMIT ?`,
		toMillis(now),
		toMillis(staleBefore),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due outbox rows: %w", err)
	}
	defer rows.Close()

	candidates := make([]publishOutboxRow, 0, limit)
	for rows.Next() {
		var row publishOutboxRow
		var seq int64
		if err := rows.Scan(&row.ProjectID, &seq, &row.EventType, &row.AttemptCount); err != nil {
			return nil, fmt.Errorf("scan due outbox row: %w", err)
		}
		row.Seq = uint64(seq)
		candidates = append(candidates, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due outbox rows: %w", err)
	}

	claimed := make([]publishOutboxRow, 0, len(candidates))
	for _, candidate := range candidates {
		result, err := tx.ExecContext(ctx,
			`UPDATE publish_outbox
			 SET status = 'processing', updated_at = ?
			 WHERE project_id = ? AND seq = ?
			   AND (
			   	(status IN ('pending', 'failed') AND next_attempt_at <= ?)
			   	OR (status = 'processing' AND updated_at <= ?)
			   )`,
			toMillis(now),
			candidate.ProjectID,
			int64(candidate.Seq),
			toMillis(now),
			toMillis(staleBefore),
		)
		if err != nil {
			return nil, fmt.Errorf("claim outbox row %s/%d: %w", candidate.ProjectID, candidate.Seq, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim outbox row rows affected %s/%d: %w", candidate.ProjectID, candidate.Seq, err)
		}
		if affected == 1 {
			claimed = append(claimed, candidate)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit outbox claim tx: %w", err)
	}
	return claimed, nil
}

func (s *Store) markPublishOutboxRetry(ctx context.Context, row publishOutboxRow, now time.Time, attempt int, lastError string, payloadJSON []byte) error {
	status := "failed"
	if attempt >= outboxDeadLetterThreshold {
		status = "dead"
	}
	nextAttempt := now.Add(outboxRetryBackoff(attempt))
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE publish_outbox
		 SET status = ?,
		     attempt_count = ?,
		     next_attempt_at = ?,
		     last_error = ?,
		     updated_at = ?
		 WHERE project_id = ? AND seq = ? AND status = 'processing'`,
		status,
		attempt,
		toMillis(nextAttempt),
		lastError,
		toMillis(now),
		row.ProjectID,
		int64(row.Seq),
	)
	if err != nil {
		return fmt.Errorf("mark outbox retry for row %s/%d: %w", row.ProjectID, row.Seq, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark outbox retry rows affected %s/%d: %w", row.ProjectID, row.Seq, err)
	}
	if affected != 1 {
		return fmt.Errorf("mark outbox retry %s/%d: expected 1 row updated, got %d", row.ProjectID, row.Seq, affected)
	}

	// Dead rows stop retrying, so the failure is made durable for operators,
	// payload included. When the event itself failed to load, a best-effort
	// read of the journal row fills the payload in.
	if status == "dead" {
		if len(payloadJSON) == 0 {
			payloadJSON = s.eventPayloadJSON(ctx, row.ProjectID, row.Seq)
		}
		if err := s.recordPublishFailure(ctx, storage.PublishFailure{
			ProjectID:   row.ProjectID,
			Seq:         row.Seq,
			EventType:   row.EventType,
			PayloadJSON: payloadJSON,
			LastError:   lastError,
			Attempts:    attempt,
			RecordedAt:  now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) eventPayloadJSON(ctx context.Context, projectID string, seq uint64) []byte {
	var payload []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT payload_json FROM events WHERE project_id = ? AND seq = ?`,
		projectID, int64(seq),
	).Scan(&payload)
	if err != nil {
		return nil
	}
	return payload
}

func (s *Store) completePublishOutboxRow(ctx context.Context, row publishOutboxRow) error {
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM publish_outbox
		 WHERE project_id = ? AND seq = ? AND status = 'processing'`,
		row.ProjectID,
		int64(row.Seq),
	)
	if err != nil {
		return fmt.Errorf("complete outbox row %s/%d: %w", row.ProjectID, row.Seq, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete outbox row rows affected %s/%d: %w", row.ProjectID, row.Seq, err)
	}
	if affected != 1 {
		return fmt.Errorf("complete outbox row %s/%d: expected 1 row deleted, got %d", row.ProjectID, row.Seq, affected)
	}
	return nil
}

// RequeuePublishOutboxDeadRows transitions up to limit dead outbox rows back
// to pending in deterministic retry order.
func (s *Store) RequeuePublishOutboxDeadRows(ctx context.Context, limit int, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return 0, fmt.Errorf("outbox requeue limit must be greater than zero")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`WITH to_requeue AS (
			SELECT project_id, seq
			FROM publish_outbox
			WHERE status = 'dead'
			ORDER BY next_attempt_at ASC, seq ASC
			LIMIT ?
		)
		UPDATE publish_outbox
		SET status = 'pending',
		    attempt_count = 0,
		    next_attempt_at = ?,
		    last_error = '',
		    updated_at = ?
		WHERE status = 'dead'
		  AND EXISTS (
			  SELECT 1
			  FROM to_requeue
			  WHERE to_requeue.project_id = publish_outbox.project_id
			    AND to_requeue.seq = publish_outbox.seq
		  )`,
		limit,
		toMillis(now),
		toMillis(now),
	)
	if err != nil {
		return 0, fmt.Errorf("requeue dead outbox rows: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("requeue dead outbox rows affected: %w", err)
	}
	return int(affected), nil
}

func (s *Store) recordPublishFailure(ctx context.Context, failure storage.PublishFailure) error {
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO publish_failures (project_id, seq, event_type, payload_json, last_error, attempt_count, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		failure.ProjectID,
		int64(failure.Seq),
		failure.EventType,
		string(failure.PayloadJSON),
		failure.LastError,
		failure.Attempts,
		toMillis(failure.RecordedAt),
	); err != nil {
		return fmt.Errorf("record publish failure %s/%d: %w", failure.ProjectID, failure.Seq, err)
	}
	return nil
}

// ListPublishFailures returns recorded publish failures for a project, newest first.
func (s *Store) ListPublishFailures(ctx context.Context, projectID string, limit int) ([]storage.PublishFailure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return []storage.PublishFailure{}, nil
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, project_id, seq, event_type, payload_json, last_error, attempt_count, recorded_at
		 FROM publish_failures
		 WHERE project_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list publish failures: %w", err)
	}
	defer rows.Close()

	failures := make([]storage.PublishFailure, 0, limit)
	for rows.Next() {
		var (
			failure        storage.PublishFailure
			seq            int64
			payload        string
			recordedMillis int64
		)
		if err := rows.Scan(&failure.ID, &failure.ProjectID, &seq, &failure.EventType, &payload, &failure.LastError, &failure.Attempts, &recordedMillis); err != nil {
			return nil, fmt.Errorf("scan publish failure: %w", err)
		}
		failure.Seq = uint64(seq)
		if payload != "" {
			failure.PayloadJSON = []byte(payload)
		}
		failure.RecordedAt = fromMillis(recordedMillis)
		failures = append(failures, failure)
	}
	return failures, rows.Err()
}

func outboxRetryBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	backoff := time.Second << (attempt - 1)
	if backoff > 5*time.Minute {
		return 5 * time.Minute
	}
	return backoff
}
