// Package worker runs the periodic background jobs: queue promotion,
// reservation expiry sweeps and the outbox relay cycle.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"concertgate/internal/config"
	"concertgate/internal/service"
)

// Worker owns the gocron scheduler and the job wiring.
type Worker struct {
	sched      gocron.Scheduler
	admissions *service.AdmissionService
	resv       *service.ReservationService
	relay      *service.RelayService
	cfg        *config.Config
}

// New builds the scheduler. Start must be called to run the jobs.
func New(admissions *service.AdmissionService, resv *service.ReservationService, relay *service.RelayService, cfg *config.Config) (*Worker, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Worker{
		sched:      sched,
		admissions: admissions,
		resv:       resv,
		relay:      relay,
		cfg:        cfg,
	}, nil
}

// Start registers all jobs and starts the scheduler.
func (w *Worker) Start() error {
	jobs := []struct {
		name string
		def  gocron.JobDefinition
		run  func(context.Context)
	}{
		{
			name: "queue promotion",
			def:  gocron.DurationJob(w.cfg.PromoteInterval),
			run: func(ctx context.Context) {
				if _, err := w.admissions.Promote(ctx); err != nil {
					log.Printf("worker: queue promotion: %v", err)
				}
			},
		},
		{
			name: "reservation sweep",
			def:  gocron.DurationJob(w.cfg.SweepInterval),
			run: func(ctx context.Context) {
				if _, err := w.resv.SweepExpired(ctx); err != nil {
					log.Printf("worker: reservation sweep: %v", err)
				}
			},
		},
		{
			name: "outbox relay",
			def:  gocron.DurationJob(w.cfg.RelayInterval),
			run: func(ctx context.Context) {
				if _, err := w.relay.Relay(ctx); err != nil {
					log.Printf("worker: outbox relay: %v", err)
				}
			},
		},
		{
			name: "outbox retry",
			def:  gocron.DurationJob(w.cfg.RetryInterval),
			run: func(ctx context.Context) {
				if _, err := w.relay.Retry(ctx); err != nil {
					log.Printf("worker: outbox retry: %v", err)
				}
			},
		},
		{
			name: "outbox cleanup",
			def:  gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))),
			run: func(ctx context.Context) {
				if _, err := w.relay.Cleanup(ctx); err != nil {
					log.Printf("worker: outbox cleanup: %v", err)
				}
			},
		},
	}

	for _, j := range jobs {
		job := j
		if _, err := w.sched.NewJob(job.def, gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			job.run(ctx)
		})); err != nil {
			return err
		}
		log.Printf("worker: registered %s job", job.name)
	}

	w.sched.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs to finish.
func (w *Worker) Stop() error {
	return w.sched.Shutdown()
}
