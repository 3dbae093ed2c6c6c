package main

import (
	"context"
	"log/slog"

	"github.com/RezaEskandarii/listpilot/app"
	"github.com/RezaEskandarii/listpilot/web"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"
)

// serve runs the generator and dispatcher on their cron schedules and the ops
// API until ctx is cancelled. A run still in progress when its next tick
// fires is not started twice.
func serve(ctx context.Context, c *app.Container) error {
	cfg := c.Config
	logger := c.Logger.With("component", "serve")

	scheduler := cron.New()

	generatorSem := semaphore.NewWeighted(1)
	if _, err := scheduler.AddFunc(cfg.Serve.GeneratorCron, func() {
		runExclusive(ctx, logger, generatorSem, "generator", func(ctx context.Context) error {
			n, err := c.Generator.GenerateDailySchedule(ctx, cfg.Schedule)
			if err == nil {
				logger.Info("generator finished", "entries_created", n)
			}
			return err
		})
	}); err != nil {
		return err
	}

	dispatcherSem := semaphore.NewWeighted(1)
	if _, err := scheduler.AddFunc(cfg.Serve.DispatcherCron, func() {
		runExclusive(ctx, logger, dispatcherSem, "dispatcher", func(ctx context.Context) error {
			_, err := c.Dispatcher.RunDueSchedules(ctx, cfg.Dispatcher.BatchLimit)
			return err
		})
	}); err != nil {
		return err
	}

	scheduler.Start()
	defer func() {
		// wait for running jobs
		<-scheduler.Stop().Done()
	}()
	logger.Info("scheduler started",
		"generator_cron", cfg.Serve.GeneratorCron,
		"dispatcher_cron", cfg.Serve.DispatcherCron,
	)

	return web.NewRouteHandler(c.ScheduleStore, c.Dispatcher, cfg.Serve.OpsAddr, c.Logger).Serve(ctx)
}

func runExclusive(ctx context.Context, logger *slog.Logger, sem *semaphore.Weighted, job string, fn func(context.Context) error) {
	if !sem.TryAcquire(1) {
		logger.Warn("previous run still in progress, skipping tick", "job", job)
		return
	}
	defer sem.Release(1)

	if ctx.Err() != nil {
		return
	}
	if err := fn(ctx); err != nil {
		logger.Error("scheduled run failed", "job", job, "error", err)
	}
}
