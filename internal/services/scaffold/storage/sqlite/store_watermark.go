package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/skafu/skafu/internal/services/scaffold/storage"
)

// GetProjectionWatermark returns the watermark for a project.
// Returns storage.ErrNotFound if no watermark exists.
func (s *Store) GetProjectionWatermark(ctx context.Context, projectID string) (storage.ProjectionWatermark, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return storage.ProjectionWatermark{}, fmt.Errorf("project id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT project_id, applied_seq, updated_at FROM projection_watermarks WHERE project_id = ?`,
		projectID,
	)
	var watermark storage.ProjectionWatermark
	var appliedSeq int64
	var updatedAtMillis int64
	err := row.Scan(&watermark.ProjectID, &appliedSeq, &updatedAtMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ProjectionWatermark{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ProjectionWatermark{}, fmt.Errorf("get projection watermark: %w", err)
	}
	watermark.AppliedSeq = uint64(appliedSeq)
	watermark.UpdatedAt = fromMillis(updatedAtMillis)
	return watermark, nil
}

// SaveProjectionWatermark upserts the watermark for a project.
func (s *Store) SaveProjectionWatermark(ctx context.Context, watermark storage.ProjectionWatermark) error {
	watermark.ProjectID = strings.TrimSpace(watermark.ProjectID)
	if watermark.ProjectID == "" {
		return fmt.Errorf("project id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO projection_watermarks (project_id, applied_seq, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (project_id) DO UPDATE SET
		     applied_seq = excluded.applied_seq,
		     updated_at = excluded.updated_at`,
		watermark.ProjectID,
		int64(watermark.AppliedSeq),
		toMillis(watermark.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save projection watermark: %w", err)
	}
	return nil
}

// ListProjectionWatermarks returns all watermarks ordered by project id.
func (s *Store) ListProjectionWatermarks(ctx context.Context) ([]storage.ProjectionWatermark, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT project_id, applied_seq, updated_at FROM projection_watermarks ORDER BY project_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list projection watermarks: %w", err)
	}
	defer rows.Close()
	var watermarks []storage.ProjectionWatermark
	for rows.Next() {
		var watermark storage.ProjectionWatermark
		var appliedSeq int64
		var updatedAtMillis int64
		if err := rows.Scan(&watermark.ProjectID, &appliedSeq, &updatedAtMillis); err != nil {
			return nil, fmt.Errorf("scan projection watermark: %w", err)
		}
		watermark.AppliedSeq = uint64(appliedSeq)
		watermark.UpdatedAt = fromMillis(updatedAtMillis)
		watermarks = append(watermarks, watermark)
	}
	return watermarks, rows.Err()
}
