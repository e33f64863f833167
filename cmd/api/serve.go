package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dormmanager/backend/internal/api/http/handlers"
	"github.com/dormmanager/backend/internal/config"
	"github.com/dormmanager/backend/internal/persistence"
	"github.com/dormmanager/backend/internal/worker"
	"github.com/dormmanager/backend/pkg/util"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. With the redis mail transport and NOTIFY_WORKER_ENABLED
the mail worker runs in the same process.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := connectPostgres(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			return oops.Code("MIGRATION_FAILED").Wrap(err)
		}
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := newServices(cfg, pg.PoolHandle(), rdb.Client, logger)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	app := newHTTPApp(cfg, svc, logger, reg, map[string]handlers.Pinger{
		"postgres": pg,
		"redis":    rdb,
	})

	var wg sync.WaitGroup
	if svc.memory != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.memory.Run(ctx)
		}()
	}
	if cfg.Notification.WorkerEnabled && cfg.Notification.Transport == config.TransportRedis {
		mailWorker := worker.NewMailWorker(rdb.Client, svc.mail, cfg.Notification, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mailWorker.Run(ctx); err != nil {
				util.LogError(logger, "mail worker exited", err)
			}
		}()
	}

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-listenErr:
		stop()
		wg.Wait()
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.App.Addr()).Wrap(err)
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		util.LogError(logger, "http shutdown failed", err)
	}
	wg.Wait()
	return nil
}

func connectPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*persistence.Postgres, error) {
	if cfg.Postgres.DSN == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("POSTGRES_DSN is required")
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	return pg, nil
}
