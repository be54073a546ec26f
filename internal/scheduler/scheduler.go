// Package scheduler triggers batch fetch runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch"
	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
	"github.com/robfig/cron/v3"
)

// Scheduler fires unforced batch fetch runs on the configured cron
// expression. A fire that collides with an active job is skipped; the skip
// window keeps back-to-back fires cheap.
type Scheduler struct {
	cron    *cron.Cron
	service *batchfetch.Service
	logger  *slog.Logger
	spec    string
}

// New creates a scheduler for the given cron expression
func New(service *batchfetch.Service, spec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		logger:  logger,
		spec:    spec,
	}
}

// Start registers the trigger and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.trigger); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Batch fetch scheduler started",
		slog.String("cron", s.spec),
	)

	return nil
}

// Stop stops the cron loop and waits for a running trigger to return
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Batch fetch scheduler stopped")
}

func (s *Scheduler) trigger() {
	detail, err := s.service.Start(context.Background(), false)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyActive) {
			s.logger.Info("Scheduled batch fetch skipped, a job is already active")
			return
		}
		s.logger.Error("Scheduled batch fetch failed to start",
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("Scheduled batch fetch started",
		slog.String("job_id", detail.ID),
		slog.Int("total_steps", detail.TotalSteps),
	)
}
