package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const (
	TaskReconcileConfirmations = "reconcile_confirmations"
	TaskPruneWebhookLedger     = "prune_webhook_ledger"
)

// Sweeper re-drives confirmations that were left behind
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// LedgerPruner removes old webhook ledger entries
type LedgerPruner interface {
	PruneLedger(ctx context.Context, retention time.Duration) (int64, error)
}

type Config struct {
	ReconcileInterval time.Duration
	PruneInterval     time.Duration
	Retention         time.Duration
	// Timeout bounds a single run of any task
	Timeout time.Duration
}

// Scheduler runs the background maintenance tasks
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewScheduler(cfg Config, sweeper Sweeper, pruner LedgerPruner, logger *zap.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sch := &Scheduler{scheduler: s, logger: logger, ctx: ctx, cancel: cancel}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}

	if cfg.ReconcileInterval > 0 {
		err := sch.register(TaskReconcileConfirmations, cfg.ReconcileInterval, cfg.Timeout, func(ctx context.Context) error {
			_, err := sweeper.Sweep(ctx)
			return err
		})
		if err != nil {
			cancel()
			return nil, err
		}
	}

	if cfg.PruneInterval > 0 && cfg.Retention > 0 {
		err := sch.register(TaskPruneWebhookLedger, cfg.PruneInterval, cfg.Timeout, func(ctx context.Context) error {
			_, err := pruner.PruneLedger(ctx, cfg.Retention)
			return err
		})
		if err != nil {
			cancel()
			return nil, err
		}
	}

	return sch, nil
}

func (s *Scheduler) register(name string, every, timeout time.Duration, run func(ctx context.Context) error) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(s.ctx, timeout)
			defer cancel()
			if err := run(ctx); err != nil {
				s.logger.Error("scheduled task failed", zap.String("task", name), zap.Error(err))
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register task %s: %w", name, err)
	}
	return nil
}

// Start begins running the registered tasks
func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.scheduler.Jobs())))
}

// Shutdown cancels running tasks and waits for them to return
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.scheduler.Shutdown()
}
