package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/kitchenhire/booking-engine/internal/api"
	"github.com/kitchenhire/booking-engine/internal/availability"
	"github.com/kitchenhire/booking-engine/internal/config"
	"github.com/kitchenhire/booking-engine/internal/optimistic"
	"github.com/kitchenhire/booking-engine/internal/pricing"
	"github.com/kitchenhire/booking-engine/internal/remote"
	"github.com/kitchenhire/booking-engine/internal/rollover"
	"github.com/kitchenhire/booking-engine/internal/security"
	"github.com/kitchenhire/booking-engine/internal/task"
)

type Application struct {
	cfg          config.Config
	availability *availability.Store
	tasks        *optimistic.Engine[task.Record]
	bookings     *optimistic.Engine[task.Booking]
	server       *api.Server
	scheduler    *rollover.Scheduler
	logger       *slog.Logger
}

// Bootstrap wires every component from configuration.
func Bootstrap(cfg config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tariff, err := config.LoadTariff(cfg.TariffPath)
	if err != nil {
		return nil, err
	}
	pricer := pricing.NewEngine(tariff, nil)

	store := availability.New(availability.Options{
		Source:      availability.NewSource(cfg.AvailabilitySource, nil),
		PersistPath: cfg.AvailabilityPath,
		Logger:      logger,
	})

	client := remote.NewClient(remote.ClientOptions{
		BaseURL: cfg.RemoteURL,
		Token:   cfg.RemoteToken,
		Timeout: cfg.RequestTimeout,
	})

	taskCache := ""
	bookingCache := ""
	if cfg.FallbackCache != "" {
		taskCache = cfg.FallbackCache + ".tasks.json"
		bookingCache = cfg.FallbackCache + ".bookings.json"
	}
	tasks := optimistic.NewEngine(optimistic.Options[task.Record]{
		Remote:    client.Tasks(),
		ID:        func(r task.Record) string { return r.ID },
		CachePath: taskCache,
		Logger:    logger,
	})
	bookings := optimistic.NewEngine(optimistic.Options[task.Booking]{
		Remote:    client.Bookings(),
		ID:        func(b task.Booking) string { return b.ID },
		CachePath: bookingCache,
		Logger:    logger,
	})

	scheduler := rollover.New(rollover.Options{
		Tasks:      tasks,
		MarkerPath: cfg.RolloverMarker,
		Logger:     logger,
	})

	server := api.New(api.Options{
		Availability: store,
		Pricer:       pricer,
		Tasks:        tasks,
		Bookings:     bookings,
		Projects:     client,
		Rollover:     scheduler,
		Auth: security.BearerAuth{
			Enabled: cfg.RequireBearerToken,
			Token:   cfg.BearerToken,
		},
		Logger: logger,
	})

	return &Application{
		cfg:          cfg,
		availability: store,
		tasks:        tasks,
		bookings:     bookings,
		server:       server,
		scheduler:    scheduler,
		logger:       logger,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Degraded starts are allowed: a dead store or missing document
	// still leaves the calendar and quoting usable.
	if err := a.availability.Load(ctx); err != nil {
		a.logger.Warn("availability load failed", "err", err)
	}
	if err := a.tasks.Hydrate(ctx); err != nil {
		a.logger.Warn("task hydration degraded", "err", err)
	}
	if err := a.bookings.Hydrate(ctx); err != nil {
		a.logger.Warn("booking hydration degraded", "err", err)
	}

	// Session-start rollover, then the daily cron entry.
	a.scheduler.Run(ctx)
	var runner *cron.Cron
	if a.cfg.RolloverCron != "" {
		runner = cron.New()
		if _, err := runner.AddFunc(a.cfg.RolloverCron, func() {
			a.scheduler.Run(context.Background())
		}); err != nil {
			return fmt.Errorf("rollover cron: %w", err)
		}
		runner.Start()
		defer runner.Stop()
	}

	errCh := make(chan error, 2)
	wg := sync.WaitGroup{}

	if a.cfg.BindAddress != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.server.ServeTCP(ctx, a.cfg.BindAddress); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("tcp server: %w", err)
			}
		}()
	}
	if a.cfg.UnixSocketPath != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.server.ServeUnix(ctx, a.cfg.UnixSocketPath); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("unix server: %w", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		cancel()
		wg.Wait()
		return err
	case <-ctx.Done():
		wg.Wait()
		return nil
	}
}
