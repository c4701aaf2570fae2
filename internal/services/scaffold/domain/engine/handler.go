// Package engine executes commands against the project aggregate.
package engine

import (
	"context"
	"errors"
	"log"
	"time"

	platformerrors "github.com/skafu/skafu/internal/platform/errors"
	"github.com/skafu/skafu/internal/services/scaffold/domain/command"
	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
	"github.com/skafu/skafu/internal/services/scaffold/domain/project"
)

// maxConflictRetries bounds optimistic concurrency retries before the
// conflict surfaces to the caller.
const maxConflictRetries = 3

var (
	// ErrCommandRegistryRequired indicates a missing command registry.
	ErrCommandRegistryRequired = errors.New("command registry is required")
	// ErrEventRegistryRequired indicates a missing event registry.
	ErrEventRegistryRequired = errors.New("event registry is required")
	// ErrJournalRequired indicates a missing event journal.
	ErrJournalRequired = errors.New("event journal is required")
	// ErrStateLoaderRequired indicates a missing state loader.
	ErrStateLoaderRequired = errors.New("state loader is required")
)

// StateLoader loads project state and its current journal version.
type StateLoader interface {
	Load(ctx context.Context, projectID string) (project.State, uint64, error)
}

// EventJournal appends events atomically at an expected version.
//
// Append fails with a CONCURRENCY_CONFLICT coded error when the journal has
// advanced past expectedVersion since the state was loaded.
type EventJournal interface {
	AppendEvents(ctx context.Context, projectID string, expectedVersion uint64, events []event.Event) ([]event.Event, error)
}

// StateSnapshotStore persists folded state keyed by project.
type StateSnapshotStore interface {
	GetState(ctx context.Context, projectID string) (project.State, uint64, error)
	SaveState(ctx context.Context, projectID string, lastSeq uint64, state project.State) error
}

// Handler validates commands, decides them against loaded state, and appends
// accepted events to the journal.
type Handler struct {
	Commands  *command.Registry
	Events    *event.Registry
	Journal   EventJournal
	Loader    StateLoader
	Snapshots StateSnapshotStore
	Now       func() time.Time
}

// Result captures execution outcomes.
type Result struct {
	Decision command.Decision
	State    project.State
	Version  uint64
}

// Execute runs a command end to end.
//
// Rejections are part of the Decision, not errors: the caller decides how to
// surface them. Journal conflicts are retried against freshly loaded state up
// to maxConflictRetries before the conflict is returned.
func (h Handler) Execute(ctx context.Context, cmd command.Command) (Result, error) {
	if h.Commands == nil {
		return Result{}, ErrCommandRegistryRequired
	}
	if h.Events == nil {
		return Result{}, ErrEventRegistryRequired
	}
	if h.Journal == nil {
		return Result{}, ErrJournalRequired
	}
	if h.Loader == nil {
		return Result{}, ErrStateLoaderRequired
	}
	validated, err := h.Commands.ValidateForDecision(cmd)
	if err != nil {
		return Result{}, platformerrors.Wrap(platformerrors.CodeValidation, "invalid command", err)
	}
	cmd = validated

	now := h.Now
	if now == nil {
		now = time.Now
	}

	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		state, version, err := h.Loader.Load(ctx, cmd.ProjectID)
		if err != nil {
			return Result{}, err
		}

		decision := project.Decide(state, cmd, now)
		if len(decision.Rejections) > 0 || len(decision.Events) == 0 {
			return Result{Decision: decision, State: state, Version: version}, nil
		}

		events := make([]event.Event, 0, len(decision.Events))
		for _, evt := range decision.Events {
			vetted, err := h.Events.ValidateForAppend(evt)
			if err != nil {
				return Result{}, platformerrors.Wrap(platformerrors.CodeValidation, "invalid event", err)
			}
			events = append(events, vetted)
		}

		stored, err := h.Journal.AppendEvents(ctx, cmd.ProjectID, version, events)
		if err != nil {
			if platformerrors.CodeOf(err) == platformerrors.CodeConcurrencyConflict {
				lastErr = err
				continue
			}
			return Result{}, err
		}
		decision.Events = stored

		for _, evt := range stored {
			state = project.Fold(state, evt)
		}
		version = stored[len(stored)-1].Seq

		// The events are committed at this point. A snapshot write failure
		// only costs replay time on the next load, so it must not turn a
		// successful command into an error.
		if h.Snapshots != nil {
			if err := h.Snapshots.SaveState(ctx, cmd.ProjectID, version, state); err != nil {
				log.Printf("engine: save snapshot for %s at %d: %v", cmd.ProjectID, version, err)
			}
		}
		return Result{Decision: decision, State: state, Version: version}, nil
	}
	return Result{}, platformerrors.Wrap(platformerrors.CodeConcurrencyConflict, "journal contention persisted across retries", lastErr)
}
