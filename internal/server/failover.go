package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FailoverGuard/internal/conf"
	pkglog "FailoverGuard/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// Ticker is one controller evaluation plus the alert drain used on shutdown.
type Ticker interface {
	Tick(ctx context.Context) error
	WaitAlerts(ctx context.Context) error
}

// FailoverServer drives the failover controller as a kratos transport.Server:
// one tick right away, then one per tick interval until Stop.
type FailoverServer struct {
	ticker   Ticker
	interval time.Duration
	log      *pkglog.LogHelper

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFailoverServer creates the ticker server.
func NewFailoverServer(c *conf.Failover, ticker Ticker, logger log.Logger) *FailoverServer {
	return &FailoverServer{
		ticker:   ticker,
		interval: c.TickInterval,
		log:      pkglog.NewLogHelper(log.With(logger, "module", "server/failover")),
	}
}

// Start runs the loop and blocks until ctx is cancelled or Stop is called.
func (s *FailoverServer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("failover server already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	defer close(done)

	s.log.Scheduler("failover loop started", "tick_interval", s.interval.String())

	s.runTick(ctx)

	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Scheduler("failover loop stopped")
			return nil
		case <-t.C:
			s.runTick(ctx)
		}
	}
}

// Stop cancels the loop, waits for the running tick and drains in-flight alerts, bounded by ctx.
func (s *FailoverServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("failover loop did not stop: %w", ctx.Err())
	}

	if err := s.ticker.WaitAlerts(ctx); err != nil {
		s.log.Warnw("msg", "in-flight alerts abandoned on shutdown", "error", err)
	}
	return nil
}

// runTick keeps the loop alive whatever a single tick does.
func (s *FailoverServer) runTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("msg", "failover tick panicked outside the controller", "panic", fmt.Sprint(r))
		}
	}()

	err := s.ticker.Tick(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		s.log.Scheduler("failover tick abandoned on shutdown")
	default:
		s.log.Errorw("msg", "failover tick failed", "error", err)
	}
}
