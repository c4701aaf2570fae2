package projection

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
	"github.com/skafu/skafu/internal/services/scaffold/domain/replay"
)

const (
	defaultCatchUpInterval = 30 * time.Second
	defaultCatchUpPageSize = 200
)

// Journal exposes the journal queries the catch-up pass reads from.
type Journal interface {
	replay.EventStore
	ListProjectIDs(ctx context.Context) ([]string, error)
}

// CatchUp periodically replays journal events past each project's replay
// checkpoint into the read model. Inline application after a command is the
// fast path; this worker repairs the projection when an inline apply failed
// or when the read model was rebuilt from an older copy.
//
// The applier's watermark makes re-application a no-op, so a checkpoint that
// lags the watermark only costs redundant reads.
type CatchUp struct {
	Journal     Journal
	Checkpoints replay.CheckpointStore
	Applier     Applier
	Interval    time.Duration
	PageSize    int
}

// applyFolder feeds replayed events through the applier. The folded state is
// unused; the read model is the accumulator.
type applyFolder struct {
	ctx     context.Context
	applier Applier
}

func (f applyFolder) Apply(state any, evt event.Event) (any, error) {
	if _, err := f.applier.Apply(f.ctx, evt); err != nil {
		return nil, err
	}
	return state, nil
}

// RunOnce replays every project's journal tail into the read model and
// returns the number of events processed.
func (c CatchUp) RunOnce(ctx context.Context) (int, error) {
	if c.Journal == nil {
		return 0, fmt.Errorf("journal is required")
	}
	if c.Checkpoints == nil {
		return 0, fmt.Errorf("checkpoint store is required")
	}

	projectIDs, err := c.Journal.ListProjectIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list project ids: %w", err)
	}

	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = defaultCatchUpPageSize
	}

	total := 0
	for _, projectID := range projectIDs {
		result, err := replay.Replay(ctx, c.Journal, c.Checkpoints, applyFolder{ctx: ctx, applier: c.Applier}, projectID, nil, replay.Options{PageSize: pageSize})
		if err != nil {
			return total, fmt.Errorf("catch up project %s: %w", projectID, err)
		}
		total += result.Applied
	}
	return total, nil
}

// Run performs an immediate pass, then repeats on the interval until the
// context is canceled. Pass errors are logged and the loop keeps going.
func (c CatchUp) Run(ctx context.Context) error {
	interval := c.Interval
	if interval <= 0 {
		interval = defaultCatchUpInterval
	}

	if _, err := c.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("projection: catch-up pass: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.RunOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("projection: catch-up pass: %v", err)
			}
		}
	}
}
