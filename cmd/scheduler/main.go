package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/segyhp/repayment-engine/internal/app"
	"github.com/segyhp/repayment-engine/internal/config"
	"github.com/segyhp/repayment-engine/internal/service"
	"github.com/segyhp/repayment-engine/pkg/logger"
)

// jobTimeout bounds a single run of either job.
const jobTimeout = 30 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()
	zap.ReplaceGlobals(logg)

	startCtx, cancel := context.WithTimeout(context.Background(), cfg.GetHealthTimeout())
	a, err := app.New(startCtx, cfg, logg)
	cancel()
	if err != nil {
		logg.Fatal("failed to initialize", zap.Error(err))
	}
	defer a.Close()

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.GetLocation()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if err := setupCronJobs(c, cfg, a.Service, logg); err != nil {
		logg.Fatal("failed to schedule jobs", zap.Error(err))
	}

	c.Start()
	logg.Info("scheduler started", zap.String("timezone", cfg.Scheduler.Timezone))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("shutting down scheduler")
	<-c.Stop().Done()
	logg.Info("scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, svc *service.BillingService, logg *zap.Logger) error {
	if _, err := c.AddFunc(cfg.Scheduler.OverdueSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		res, err := svc.RefreshArrears(ctx)
		if err != nil {
			logg.Error("overdue sweep failed", zap.Error(err))
			return
		}
		logg.Info("overdue sweep finished",
			zap.Int("loans_checked", res.LoansChecked),
			zap.Int("loans_failed", res.LoansFailed))
	}); err != nil {
		return err
	}

	if _, err := c.AddFunc(cfg.Scheduler.ReminderSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		sent, err := svc.SendReminders(ctx)
		if err != nil {
			logg.Error("reminder job failed", zap.Error(err))
			return
		}
		logg.Info("reminder job finished", zap.Int("reminders_sent", sent))
	}); err != nil {
		return err
	}

	logg.Info("cron jobs scheduled",
		zap.String("overdue_spec", cfg.Scheduler.OverdueSpec),
		zap.String("reminder_spec", cfg.Scheduler.ReminderSpec))
	return nil
}
