package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/dormmanager/backend/internal/config"
	"github.com/dormmanager/backend/internal/persistence"
	"github.com/dormmanager/backend/internal/service"
	"github.com/dormmanager/backend/internal/worker"
)

// NewWorkerCmd creates the worker subcommand.
func NewWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the mail worker",
		Long:  `Consume the mail stream and deliver verification code mail until interrupted.`,
		RunE:  runWorker,
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Notification.Transport != config.TransportRedis {
		return oops.Code("CONFIG_INVALID").
			With("transport", cfg.Notification.Transport).
			Errorf("the mail worker needs NOTIFY_TRANSPORT=%s", config.TransportRedis)
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	mail := service.NewMailService(service.NewLogMailer(logger), cfg.Notification, logger)
	return worker.NewMailWorker(rdb.Client, mail, cfg.Notification, logger).Run(ctx)
}
