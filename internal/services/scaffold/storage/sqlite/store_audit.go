package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/skafu/skafu/internal/services/scaffold/storage"
)

// PutAuditEvent records one audit trail entry.
func (s *Store) PutAuditEvent(ctx context.Context, entry storage.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	entry.ProjectID = strings.TrimSpace(entry.ProjectID)
	if entry.ProjectID == "" {
		return fmt.Errorf("project id is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO audit_events (project_id, seq, event_type, actor_id, request_id, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ProjectID,
		int64(entry.Seq),
		entry.EventType,
		entry.ActorID,
		entry.RequestID,
		toMillis(entry.Timestamp),
	); err != nil {
		return fmt.Errorf("put audit event: %w", err)
	}
	return nil
}

// ListAuditEvents returns the audit trail for a project, newest first.
func (s *Store) ListAuditEvents(ctx context.Context, projectID string, limit int) ([]storage.AuditEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return []storage.AuditEvent{}, nil
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, project_id, seq, event_type, actor_id, request_id, timestamp
		 FROM audit_events
		 WHERE project_id = ?
		 ORDER BY seq DESC, id DESC
		 LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	entries := make([]storage.AuditEvent, 0, limit)
	for rows.Next() {
		var (
			entry           storage.AuditEvent
			seq             int64
			timestampMillis int64
		)
		if err := rows.Scan(&entry.ID, &entry.ProjectID, &seq, &entry.EventType, &entry.ActorID, &entry.RequestID, &timestampMillis); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		entry.Seq = uint64(seq)
		entry.Timestamp = fromMillis(timestampMillis)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
