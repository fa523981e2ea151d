package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sellsutra/ms-go-orders/app/service"
	"github.com/sellsutra/ms-go-orders/config"
)

var (
	workerMode bool
)

var purgeWebhookEventsCmd = &cobra.Command{
	Use:   "purge-webhook-events",
	Short: "Delete processed webhook ledger entries past the retention window",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"purge_webhook_events",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.PurgeWebhookEventsInterval },
			func(s *service.OrderService, ctx context.Context) error {
				purged, err := s.RunPurgeWebhookEventsBatch(ctx)
				if err != nil {
					return err
				}
				logrus.WithField("purged", purged).Info("webhook_events_purged")
				return nil
			},
		)
	},
}

var remindPendingCmd = &cobra.Command{
	Use:   "remind-pending",
	Short: "Notify sellers about orders stuck awaiting payment verification",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"remind_pending",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.RemindPendingInterval },
			func(s *service.OrderService, ctx context.Context) error {
				return s.RunRemindPendingBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(purgeWebhookEventsCmd)
	rootCmd.AddCommand(remindPendingCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.OrderService, ctx context.Context) error,
) {
	cfg, orderService, cleanup := mustCreateOrderService()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), orderService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(orderService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	orderService *service.OrderService,
	fn func(s *service.OrderService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(orderService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(orderService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
