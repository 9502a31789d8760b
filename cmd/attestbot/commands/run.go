package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
)

// RunCmd implements the single-shot 'run' command.
type RunCmd struct{}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	app, err := buildApp(root.Config)
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := app.runner.RunOnce(ctx)
	if err != nil {
		return err
	}

	slog.Info("run complete",
		slog.Int("attested", stats.Attested),
		slog.Int("failed", stats.Failed))
	return nil
}
