// Package bbolt provides a BoltDB-backed snapshot store for project state.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/skafu/skafu/internal/services/scaffold/domain/project"
	"github.com/skafu/skafu/internal/services/scaffold/domain/replay"
)

const snapshotBucket = "project_snapshots"

// Store provides a BoltDB-backed project snapshot store.
type Store struct {
	db *bbolt.DB
}

// snapshotEnvelope is the persisted snapshot format. LastSeq records the
// journal sequence the state was folded through.
type snapshotEnvelope struct {
	LastSeq uint64        `json:"last_seq"`
	State   project.State `json:"state"`
	SavedAt time.Time     `json:"saved_at"`
}

// Open opens a BoltDB-backed snapshot store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetState returns the snapshot state and the sequence it was folded through.
// Returns replay.ErrCheckpointNotFound when no snapshot exists for the project.
func (s *Store) GetState(ctx context.Context, projectID string) (project.State, uint64, error) {
	if err := ctx.Err(); err != nil {
		return project.State{}, 0, err
	}
	if s == nil || s.db == nil {
		return project.State{}, 0, fmt.Errorf("storage is not configured")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return project.State{}, 0, fmt.Errorf("project id is required")
	}

	var envelope snapshotEnvelope
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket is missing")
		}
		payload := bucket.Get([]byte(projectID))
		if payload == nil {
			return replay.ErrCheckpointNotFound
		}
		if err := json.Unmarshal(payload, &envelope); err != nil {
			return fmt.Errorf("unmarshal snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return project.State{}, 0, err
	}
	return envelope.State, envelope.LastSeq, nil
}

// SaveState persists the snapshot for a project, replacing any previous one.
func (s *Store) SaveState(ctx context.Context, projectID string, lastSeq uint64, state project.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return fmt.Errorf("project id is required")
	}

	payload, err := json.Marshal(snapshotEnvelope{
		LastSeq: lastSeq,
		State:   state,
		SavedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket is missing")
		}
		return bucket.Put([]byte(projectID), payload)
	})
}

// DeleteState removes the snapshot for a project. Missing snapshots are not
// an error so callers can delete unconditionally.
func (s *Store) DeleteState(ctx context.Context, projectID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return fmt.Errorf("project id is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket is missing")
		}
		return bucket.Delete([]byte(projectID))
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket)); err != nil {
			return fmt.Errorf("create snapshot bucket: %w", err)
		}
		return nil
	})
}
