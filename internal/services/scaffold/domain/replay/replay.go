// Package replay rebuilds state from the event journal.
package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
)

const defaultPageSize = 200

var (
	// ErrEventStoreRequired indicates a missing event store.
	ErrEventStoreRequired = errors.New("event store is required")
	// ErrCheckpointStoreRequired indicates a missing checkpoint store.
	ErrCheckpointStoreRequired = errors.New("checkpoint store is required")
	// ErrFolderRequired indicates a missing folder.
	ErrFolderRequired = errors.New("folder is required")
	// ErrProjectIDRequired indicates a missing project id.
	ErrProjectIDRequired = errors.New("project id is required")
	// ErrCheckpointNotFound indicates no checkpoint exists yet.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// EventStore lists journal events for replay.
type EventStore interface {
	ListEvents(ctx context.Context, projectID string, afterSeq uint64, limit int) ([]event.Event, error)
}

// CheckpointStore manages replay checkpoints.
type CheckpointStore interface {
	Get(ctx context.Context, projectID string) (Checkpoint, error)
	Save(ctx context.Context, checkpoint Checkpoint) error
}

// Folder folds a journal event into state.
type Folder interface {
	Apply(state any, evt event.Event) (any, error)
}

// Checkpoint captures the last applied sequence for a project.
type Checkpoint struct {
	ProjectID string
	LastSeq   uint64
	UpdatedAt time.Time
}

// Options configures replay behavior.
type Options struct {
	AfterSeq uint64
	UntilSeq uint64
	PageSize int
}

// Result captures replay outcomes.
type Result struct {
	State   any
	LastSeq uint64
	Applied int
}

// Replay folds journal events in order and updates the checkpoint after each apply.
//
// The journal is gap-free per project, so a sequence hole means the store is
// corrupt and replay stops rather than producing a partial state.
func Replay(ctx context.Context, store EventStore, checkpoints CheckpointStore, folder Folder, projectID string, state any, options Options) (Result, error) {
	if store == nil {
		return Result{}, ErrEventStoreRequired
	}
	if checkpoints == nil {
		return Result{}, ErrCheckpointStoreRequired
	}
	if folder == nil {
		return Result{}, ErrFolderRequired
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return Result{}, ErrProjectIDRequired
	}

	checkpointSeq := uint64(0)
	checkpoint, err := checkpoints.Get(ctx, projectID)
	if err != nil {
		if !errors.Is(err, ErrCheckpointNotFound) {
			return Result{}, err
		}
	} else {
		checkpointSeq = checkpoint.LastSeq
	}

	lastSeq := options.AfterSeq
	if checkpointSeq > lastSeq {
		lastSeq = checkpointSeq
	}
	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result := Result{State: state, LastSeq: lastSeq}
	for {
		events, err := store.ListEvents(ctx, projectID, result.LastSeq, pageSize)
		if err != nil {
			return result, err
		}
		if len(events) == 0 {
			return result, nil
		}
		for _, evt := range events {
			if options.UntilSeq > 0 && evt.Seq > options.UntilSeq {
				return result, nil
			}
			expectedSeq := result.LastSeq + 1
			if evt.Seq != expectedSeq {
				return result, fmt.Errorf("event sequence gap: expected %d got %d", expectedSeq, evt.Seq)
			}
			nextState, err := folder.Apply(result.State, evt)
			if err != nil {
				return result, err
			}
			result.State = nextState
			result.LastSeq = evt.Seq
			result.Applied++
			if err := checkpoints.Save(ctx, Checkpoint{ProjectID: projectID, LastSeq: result.LastSeq, UpdatedAt: time.Now().UTC()}); err != nil {
				return result, err
			}
		}
	}
}
