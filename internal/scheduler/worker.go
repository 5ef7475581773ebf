// Package scheduler runs the periodic poll and auto-assignment jobs over
// asynq with redis as the broker.
package scheduler

import (
	"context"

	"github.com/hibiken/asynq"

	"imobcrm_backend/internal/assignment"
	"imobcrm_backend/internal/ingestion"
	"imobcrm_backend/platform/config"
	"imobcrm_backend/platform/logger"
)

// Pipeline is the ingestion surface the poll task drives.
type Pipeline interface {
	RunCycle(ctx context.Context) (ingestion.Summary, error)
}

// Sweeper is the assignment surface the auto-assign task drives.
type Sweeper interface {
	Sweep(ctx context.Context) (assignment.Summary, error)
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	pipeline Pipeline
	sweeper  Sweeper
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pipeline Pipeline, sweeper Sweeper, log *logger.Logger) (*Worker, error) {
	opt, err := clientOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		pipeline: pipeline,
		sweeper:  sweeper,
		log:      log,
	}

	mux.HandleFunc(TaskIngestionPoll, w.handleIngestionPoll)
	mux.HandleFunc(TaskLeadsAutoAssign, w.handleLeadsAutoAssign)

	return w, nil
}

func (w *Worker) handleIngestionPoll(ctx context.Context, _ *asynq.Task) error {
	summary, err := w.pipeline.RunCycle(ctx)
	if err != nil {
		return err
	}
	if summary.Messages > 0 || summary.Leads > 0 {
		w.log.Info("poll cycle done",
			"instances", summary.Instances, "messages", summary.Messages, "leads", summary.Leads)
	}
	return nil
}

func (w *Worker) handleLeadsAutoAssign(ctx context.Context, _ *asynq.Task) error {
	summary, err := w.sweeper.Sweep(ctx)
	if err != nil {
		return err
	}
	if summary.Assigned > 0 {
		w.log.Info("assignment sweep done",
			"managers", summary.Managers, "leads", summary.Leads, "assigned", summary.Assigned)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
