package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skafu/skafu/internal/services/scaffold/api"
	"github.com/skafu/skafu/internal/services/scaffold/domain/command"
	"github.com/skafu/skafu/internal/services/scaffold/domain/engine"
	"github.com/skafu/skafu/internal/services/scaffold/domain/project"
	"github.com/skafu/skafu/internal/services/scaffold/inbound"
	"github.com/skafu/skafu/internal/services/scaffold/integration"
	"github.com/skafu/skafu/internal/services/scaffold/observability/audit"
	"github.com/skafu/skafu/internal/services/scaffold/projection"
	"github.com/skafu/skafu/internal/services/scaffold/publisher"
	bboltstore "github.com/skafu/skafu/internal/services/scaffold/storage/bbolt"
	"github.com/skafu/skafu/internal/services/scaffold/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

// App owns the wired scaffold service components.
type App struct {
	cfg Config

	journal     *sqlite.Store
	projections *sqlite.Store
	snapshots   *bboltstore.Store
	bus         *publisher.RedisBus
	subscriber  *inbound.RedisSubscriber

	handler    engine.Handler
	applier    projection.Applier
	httpServer *http.Server
}

// New opens every store and wires the engine, API, relay, and inbound
// dispatcher. Redis wiring is skipped when no address is configured; the
// outbox then accumulates until a relay drains it.
func New(cfg Config) (*App, error) {
	eventRegistry, err := project.NewEventRegistry()
	if err != nil {
		return nil, fmt.Errorf("build event registry: %w", err)
	}
	commandRegistry, err := project.NewCommandRegistry()
	if err != nil {
		return nil, fmt.Errorf("build command registry: %w", err)
	}

	a := &App{cfg: cfg}
	cleanup := func() { _ = a.Close() }

	a.journal, err = sqlite.OpenJournal(cfg.JournalPath, eventRegistry, sqlite.WithPublishOutboxEnabled(true))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	a.projections, err = sqlite.OpenProjections(cfg.ProjectionsPath)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("open projections: %w", err)
	}
	a.snapshots, err = bboltstore.Open(cfg.SnapshotsPath)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("open snapshots: %w", err)
	}

	templates, err := integration.NewTemplateClient(cfg.TemplateRegistryURL, cfg.TemplateRegistryTimeout)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("build template client: %w", err)
	}

	if cfg.RedisAddr != "" {
		a.bus, err = publisher.NewRedisBus(cfg.RedisAddr, cfg.PublishChannel)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("connect publish bus: %w", err)
		}
		a.subscriber, err = inbound.NewRedisSubscriber(cfg.RedisAddr, cfg.InboundChannel)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("connect inbound subscriber: %w", err)
		}
	} else {
		log.Printf("redis address not configured, event publishing and inbound consumption disabled")
	}

	a.handler = engine.Handler{
		Commands: commandRegistry,
		Events:   eventRegistry,
		Journal:  a.journal,
		Loader: engine.ReplayStateLoader{
			Events:    a.journal,
			Snapshots: a.snapshots,
		},
		Snapshots: a.snapshots,
	}
	a.applier = projection.Applier{Stores: a.projections, Audit: audit.NewEmitter(a.projections)}

	server := &api.Server{
		Engine:     a.handler,
		Reads:      a.projections,
		Templates:  templates,
		Projection: a.applier,
	}
	a.httpServer = &http.Server{Addr: cfg.HTTPAddr, Handler: server.Router()}
	return a, nil
}

// Run serves HTTP and the background workers until the context ends.
func (a *App) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Printf("http server listening at %s", a.cfg.HTTPAddr)
		serveErr := make(chan error, 1)
		go func() {
			serveErr <- a.httpServer.ListenAndServe()
		}()
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown http server: %w", err)
			}
			err := <-serveErr
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("serve http: %w", err)
		}
	})

	catchUp := projection.CatchUp{
		Journal:     a.journal,
		Checkpoints: a.journal,
		Applier:     a.applier,
		Interval:    a.cfg.CatchUpInterval,
	}
	group.Go(func() error {
		err := catchUp.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if a.bus != nil {
		relay := publisher.Relay{
			Outbox:    a.journal,
			Bus:       a.bus,
			Interval:  a.cfg.RelayInterval,
			BatchSize: a.cfg.RelayBatchSize,
		}
		group.Go(func() error {
			err := relay.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if a.subscriber != nil {
		dispatcher := inbound.Dispatcher{Engine: projectingExecutor{handler: a.handler, applier: a.applier}}
		group.Go(func() error {
			err := a.subscriber.Run(ctx, func(ctx context.Context, msg inbound.Message) error {
				return dispatcher.Dispatch(ctx, msg)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return group.Wait()
}

// Close releases every store and connection. Safe on a partially built App.
func (a *App) Close() error {
	var errs []error
	if a.subscriber != nil {
		errs = append(errs, a.subscriber.Close())
	}
	if a.bus != nil {
		errs = append(errs, a.bus.Close())
	}
	if a.snapshots != nil {
		errs = append(errs, a.snapshots.Close())
	}
	if a.projections != nil {
		errs = append(errs, a.projections.Close())
	}
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	return errors.Join(errs...)
}

// projectingExecutor folds stored events into the read model after a
// successful command, so collaborator-driven writes are visible to reads
// without waiting for the catch-up pass.
type projectingExecutor struct {
	handler engine.Handler
	applier projection.Applier
}

func (e projectingExecutor) Execute(ctx context.Context, cmd command.Command) (engine.Result, error) {
	result, err := e.handler.Execute(ctx, cmd)
	if err != nil {
		return result, err
	}
	for _, evt := range result.Decision.Events {
		if _, applyErr := e.applier.Apply(ctx, evt); applyErr != nil {
			log.Printf("apply projection for %s seq %d: %v", evt.ProjectID, evt.Seq, applyErr)
			break
		}
	}
	return result, nil
}
