package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/skafu/skafu/internal/services/scaffold/domain/replay"
)

// Get returns the replay checkpoint for a project.
// Returns replay.ErrCheckpointNotFound when none exists.
func (s *Store) Get(ctx context.Context, projectID string) (replay.Checkpoint, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return replay.Checkpoint{}, fmt.Errorf("project id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT project_id, last_seq, updated_at FROM replay_checkpoints WHERE project_id = ?`,
		projectID,
	)
	var checkpoint replay.Checkpoint
	var lastSeq int64
	var updatedAtMillis int64
	err := row.Scan(&checkpoint.ProjectID, &lastSeq, &updatedAtMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return replay.Checkpoint{}, replay.ErrCheckpointNotFound
	}
	if err != nil {
		return replay.Checkpoint{}, fmt.Errorf("get replay checkpoint: %w", err)
	}
	checkpoint.LastSeq = uint64(lastSeq)
	checkpoint.UpdatedAt = fromMillis(updatedAtMillis)
	return checkpoint, nil
}

// Save upserts the replay checkpoint for a project.
func (s *Store) Save(ctx context.Context, checkpoint replay.Checkpoint) error {
	checkpoint.ProjectID = strings.TrimSpace(checkpoint.ProjectID)
	if checkpoint.ProjectID == "" {
		return fmt.Errorf("project id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO replay_checkpoints (project_id, last_seq, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (project_id) DO UPDATE SET
		     last_seq = excluded.last_seq,
		     updated_at = excluded.updated_at`,
		checkpoint.ProjectID,
		int64(checkpoint.LastSeq),
		toMillis(checkpoint.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save replay checkpoint: %w", err)
	}
	return nil
}
