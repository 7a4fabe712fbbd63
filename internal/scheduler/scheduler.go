// Package scheduler runs due draws in the background.  Every interval it
// asks the service for active lotteries past their draw date and draws them
// with the "system" executor.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/config"
	"github.com/iliyamo/travel-lottery/internal/metrics"
	"github.com/iliyamo/travel-lottery/internal/service"
)

// DrawRunner executes every due draw.  *service.Service implements it.
type DrawRunner interface {
	RunDueDraws(ctx context.Context) ([]service.DrawOutcome, error)
}

// Scheduler wraps a gocron scheduler with a single due-draw job.
type Scheduler struct {
	sched   gocron.Scheduler
	runner  DrawRunner
	log     logrus.FieldLogger
	timeout time.Duration
}

// New creates the scheduler and registers the job.  Call Start to begin
// running it.
func New(cfg config.SchedulerConfig, runner DrawRunner, log logrus.FieldLogger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	s := &Scheduler{
		sched:   sched,
		runner:  runner,
		log:     log.WithField("component", "draw-scheduler"),
		timeout: cfg.Interval,
	}
	_, err = sched.NewJob(
		gocron.DurationJob(cfg.Interval),
		gocron.NewTask(func() { s.RunOnce(context.Background()) }),
		gocron.WithName("due-draws"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("register due-draw job: %w", err)
	}
	return s, nil
}

// Start begins running the job in the background.
func (s *Scheduler) Start() { s.sched.Start() }

// Shutdown stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Shutdown() error { return s.sched.Shutdown() }

// RunOnce executes one pass over the due lotteries and returns how many
// draws it performed.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	outcomes, err := s.runner.RunDueDraws(ctx)
	metrics.RecordSchedulerRun(err == nil)
	for _, out := range outcomes {
		s.log.WithFields(logrus.Fields{
			"lottery_code": out.Lottery.LotteryCode,
			"draw_code":    out.Draw.DrawCode,
		}).Info("scheduled draw executed")
	}
	if err != nil {
		s.log.WithError(err).Error("due-draw run failed")
	}
	return len(outcomes)
}
