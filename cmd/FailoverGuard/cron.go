package main

import (
	"context"
	"time"

	"FailoverGuard/internal/biz"
	"FailoverGuard/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// summarySender is the part of the controller the summary job needs.
type summarySender interface {
	SendSummary(ctx context.Context) error
}

// SummaryCron sends a periodic summary alert on alert.summary_cron
// (seconds-first cron syntax, e.g. "0 0 9 * * *" for 09:00 every day).
// An empty schedule disables it.
type SummaryCron struct {
	schedule string
	timeout  time.Duration
	sender   summarySender
	log      *log.Helper
	cron     *cron.Cron
}

// NewSummaryCron creates the job; nothing runs until Start.
func NewSummaryCron(ac *conf.Alert, uc *biz.FailoverUsecase, logger log.Logger) *SummaryCron {
	return newSummaryCron(ac, uc, logger)
}

func newSummaryCron(ac *conf.Alert, sender summarySender, logger log.Logger) *SummaryCron {
	s := &SummaryCron{
		timeout: 30 * time.Second,
		sender:  sender,
		log:     log.NewHelper(log.With(logger, "module", "cmd/cron")),
	}
	if ac != nil {
		s.schedule = ac.SummaryCron
	}
	return s
}

// Start registers and starts the job.
func (s *SummaryCron) Start() error {
	if s.schedule == "" {
		s.log.Debug("summary cron disabled")
		return nil
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(s.schedule, s.run); err != nil {
		s.log.Errorw("msg", "failed to register summary cron job", "schedule", s.schedule, "error", err)
		return err
	}

	c.Start()
	s.cron = c
	s.log.Infow("msg", "summary cron job started", "schedule", s.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running job, bounded by ctx.
func (s *SummaryCron) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("summary cron job still running at shutdown")
	}
}

func (s *SummaryCron) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.sender.SendSummary(ctx); err != nil {
		s.log.Errorw("msg", "summary alert failed", "error", err)
		return
	}
	s.log.Info("summary alert sent")
}
