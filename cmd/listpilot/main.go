package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/RezaEskandarii/listpilot/app"
	"github.com/RezaEskandarii/listpilot/types/config"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usageText = `usage: listpilot <command> [flags]

commands:
  run-schedule-generator           create the next day's schedule entries
  run-schedule-dispatcher [-limit N]
                                   publish due schedule entries
  requeue -id N                    move an ERROR entry back to SCHEDULED
  serve                            run generator and dispatcher on cron, with the ops API
`

// command is a parsed invocation.
type command struct {
	name  string
	limit int
	id    int64
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cmd, err := parseCommand(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		fmt.Fprint(stderr, usageText)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := app.NewContainer(ctx, cfg, app.WithLogger(logger))
	if err != nil {
		logger.Error("startup failed", "error", err)
		return exitFailure
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	if err := execute(ctx, c, cmd); err != nil {
		logger.Error("command failed", "command", cmd.name, "error", err)
		return exitFailure
	}
	return exitOK
}

func parseCommand(args []string, stderr io.Writer) (command, error) {
	if len(args) == 0 {
		return command{}, errors.New("missing command")
	}

	cmd := command{name: args[0]}
	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	switch cmd.name {
	case "run-schedule-generator", "serve":
	case "run-schedule-dispatcher":
		fs.IntVar(&cmd.limit, "limit", 0, "maximum entries to process (default from DISPATCHER_BATCH_LIMIT)")
	case "requeue":
		fs.Int64Var(&cmd.id, "id", 0, "schedule entry id")
	default:
		return command{}, fmt.Errorf("unknown command %q", cmd.name)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return command{}, err
	}
	if fs.NArg() > 0 {
		return command{}, fmt.Errorf("%s: unexpected arguments %v", cmd.name, fs.Args())
	}
	if cmd.limit < 0 {
		return command{}, errors.New("-limit must not be negative")
	}
	if cmd.name == "requeue" && cmd.id < 1 {
		return command{}, errors.New("requeue: -id is required")
	}
	return cmd, nil
}

func execute(ctx context.Context, c *app.Container, cmd command) error {
	cfg := c.Config
	switch cmd.name {
	case "run-schedule-generator":
		n, err := c.Generator.GenerateDailySchedule(ctx, cfg.Schedule)
		if err != nil {
			return err
		}
		c.Logger.Info("generator finished", "entries_created", n)
		return nil

	case "run-schedule-dispatcher":
		limit := cmd.limit
		if limit == 0 {
			limit = cfg.Dispatcher.BatchLimit
		}
		res, err := c.Dispatcher.RunDueSchedules(ctx, limit)
		if err != nil {
			return err
		}
		for _, e := range res.Errors {
			c.Logger.Warn("entry error", "error", e)
		}
		return nil

	case "requeue":
		return c.Dispatcher.Requeue(ctx, cmd.id)

	case "serve":
		return serve(ctx, c)
	}
	return fmt.Errorf("unknown command %q", cmd.name)
}
