package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"imobcrm_backend/platform/config"
	"imobcrm_backend/platform/logger"
)

const (
	defaultPollInterval  = 30 * time.Second
	defaultSweepInterval = 5 * time.Minute
)

// Periodic enqueues the poll and sweep tasks on a fixed cadence.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := clientOpt(cfg)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})
	queue := asynq.Queue(queueName(cfg))

	pollEvery := cfg.GetPollInterval()
	if pollEvery <= 0 {
		pollEvery = defaultPollInterval
	}
	if _, err := scheduler.Register(every(pollEvery), NewIngestionPollTask(), queue); err != nil {
		return nil, err
	}

	sweepEvery := cfg.GetSweepInterval()
	if sweepEvery <= 0 {
		sweepEvery = defaultSweepInterval
	}
	if _, err := scheduler.Register(every(sweepEvery), NewLeadsAutoAssignTask(), queue); err != nil {
		return nil, err
	}

	log.Info("periodic tasks registered", "pollEvery", pollEvery.String(), "sweepEvery", sweepEvery.String())
	return &Periodic{scheduler: scheduler, log: log}, nil
}

func every(interval time.Duration) string {
	return fmt.Sprintf("@every %s", interval)
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	go func() {
		<-ctx.Done()
		p.scheduler.Shutdown()
	}()

	if err := p.scheduler.Run(); err != nil {
		p.log.Error("periodic scheduler stopped", "error", err)
	}
}
