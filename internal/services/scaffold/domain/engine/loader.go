package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
	"github.com/skafu/skafu/internal/services/scaffold/domain/project"
	"github.com/skafu/skafu/internal/services/scaffold/domain/replay"
)

// ReplayStateLoader rebuilds project state from the journal, starting from a
// snapshot when one exists. The replay start is derived from the snapshot
// alone: a persisted checkpoint tracks a rebuild cursor, not folded state, so
// trusting it here would skip events the snapshot never saw.
type ReplayStateLoader struct {
	Events    replay.EventStore
	Snapshots StateSnapshotStore
	Options   replay.Options
}

// transientCheckpoints satisfies the replay checkpoint contract without
// persisting anything. Command-path loads are throwaway replays.
type transientCheckpoints struct{}

func (transientCheckpoints) Get(context.Context, string) (replay.Checkpoint, error) {
	return replay.Checkpoint{}, replay.ErrCheckpointNotFound
}

func (transientCheckpoints) Save(context.Context, replay.Checkpoint) error { return nil }

// foldAdapter adapts project.Fold to the replay folder contract.
type foldAdapter struct{}

func (foldAdapter) Apply(state any, evt event.Event) (any, error) {
	typed, ok := state.(project.State)
	if !ok {
		return nil, fmt.Errorf("unsupported state type %T", state)
	}
	return project.Fold(typed, evt), nil
}

// Load returns the project state folded through the latest journal event,
// along with the sequence of that event.
func (l ReplayStateLoader) Load(ctx context.Context, projectID string) (project.State, uint64, error) {
	state := project.State{}
	options := l.Options
	if l.Snapshots != nil {
		snapshotState, snapshotSeq, err := l.Snapshots.GetState(ctx, projectID)
		if err != nil {
			if !errors.Is(err, replay.ErrCheckpointNotFound) {
				return project.State{}, 0, err
			}
		} else {
			state = snapshotState
			if snapshotSeq > options.AfterSeq {
				options.AfterSeq = snapshotSeq
			}
		}
	}
	result, err := replay.Replay(ctx, l.Events, transientCheckpoints{}, foldAdapter{}, projectID, state, options)
	if err != nil {
		return project.State{}, 0, err
	}
	typed, ok := result.State.(project.State)
	if !ok {
		return project.State{}, 0, fmt.Errorf("unsupported state type %T", result.State)
	}
	return typed, result.LastSeq, nil
}
