package biz

import (
	"context"
	"fmt"
	"time"

	"FailoverGuard/internal/conf"
	"FailoverGuard/internal/data"
	"FailoverGuard/internal/model"
	dberrors "FailoverGuard/pkg/errors"
)

// Pinger is one replica's liveness round-trip.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthProbe issues bounded liveness checks against the configured replicas.
// It writes nothing into FailoverState; the controller interprets results.
type HealthProbe struct {
	replicas *data.ReplicaSet
	timeout  time.Duration
	now      func() time.Time
}

// NewHealthProbe creates a probe bounded by failover.probe_timeout.
func NewHealthProbe(c *conf.Failover, replicas *data.ReplicaSet) *HealthProbe {
	return &HealthProbe{
		replicas: replicas,
		timeout:  c.ProbeTimeout,
		now:      time.Now,
	}
}

// Probe checks the replica holding role.
func (p *HealthProbe) Probe(ctx context.Context, role model.ReplicaRole) model.ProbeResult {
	return p.ProbeTarget(ctx, role, p.replicas.Get(role))
}

// ProbeTarget pings target and classifies the outcome. It returns no later
// than the probe timeout even if the driver ignores cancellation: the ping
// runs in its own goroutine and is abandoned when the deadline passes.
func (p *HealthProbe) ProbeTarget(ctx context.Context, role model.ReplicaRole, target Pinger) model.ProbeResult {
	start := p.now()
	result := model.ProbeResult{Role: role, CheckedAt: start}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("ping panicked: %v", r)
			}
		}()
		done <- target.Ping(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	result.Latency = p.now().Sub(start)
	if err == nil {
		result.Healthy = true
		return result
	}

	classified := dberrors.ClassifyProbeError(err)
	result.ErrorKind = classified.Kind
	result.Error = classified.Error()
	return result
}
