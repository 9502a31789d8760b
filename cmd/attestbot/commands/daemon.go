package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/attestbot/internal/logfields"
	"git.home.luguber.info/inful/attestbot/internal/runner"
	"git.home.luguber.info/inful/attestbot/internal/server"
	"git.home.luguber.info/inful/attestbot/internal/version"
)

const shutdownTimeout = 15 * time.Second

// DaemonCmd implements scheduled mode: periodic passes plus the HTTP
// surface.
type DaemonCmd struct{}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	app, err := buildApp(root.Config)
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler, err := runner.NewScheduler(app.runner, app.limiter)
	if err != nil {
		return err
	}
	if err := scheduler.Schedule(ctx, app.cfg.Daemon.Interval, app.cfg.RateLimit.SweepInterval); err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Registry:   app.registry,
		Identities: app.identities,
		Attested:   app.attested,
		Submitter:  app.submitter,
		Limiter:    app.limiter,
		Store:      app.store,
		Registrar:  app.registrar,
		Version:    version.Version,
	})

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Start(app.cfg.Daemon.HTTPPort)
	}()
	go func() {
		errCh <- srv.StartAdmin(app.cfg.Daemon.AdminPort)
	}()

	scheduler.Start()
	slog.Info("daemon started",
		slog.Duration("interval", app.cfg.Daemon.Interval),
		slog.Int("http_port", app.cfg.Daemon.HTTPPort),
		slog.Int("admin_port", app.cfg.Daemon.AdminPort))

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	if err := scheduler.Stop(); err != nil {
		slog.Warn("stopping scheduler failed", logfields.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
