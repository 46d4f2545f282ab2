package biz

import (
	"fmt"
	"time"

	"FailoverGuard/internal/model"
)

// FailoverPolicy holds the thresholds of the switch decision.
type FailoverPolicy struct {
	MaxFailedAttempts   int
	RecoveryGracePeriod time.Duration
}

// TransitionKind is the decision taken on one tick.
type TransitionKind int

const (
	TransitionNone TransitionKind = iota
	TransitionFailover
	TransitionFailback
)

func (k TransitionKind) String() string {
	switch k {
	case TransitionFailover:
		return "failover"
	case TransitionFailback:
		return "failback"
	default:
		return "none"
	}
}

// Transition is the outcome of evaluateTransitions.
type Transition struct {
	Kind     TransitionKind
	From     model.ReplicaRole
	To       model.ReplicaRole
	Reason   string
	BothDown bool
}

// Switched reports whether the active replica changed.
func (t Transition) Switched() bool {
	return t.Kind != TransitionNone
}

// foldProbe applies one probe result to the counters of its replica.
// A success resets the counter and starts a healthy streak unless one is
// already running; a failure increments the counter and ends the streak.
func foldProbe(s *model.FailoverState, p model.ProbeResult, now time.Time) {
	count, recoveredAt, lastFailureAt := &s.PrimaryFailureCount, &s.PrimaryRecoveredAt, &s.LastPrimaryFailureAt
	if p.Role == model.RoleSecondary {
		count, recoveredAt, lastFailureAt = &s.SecondaryFailureCount, &s.SecondaryRecoveredAt, &s.LastSecondaryFailureAt
	}

	if p.Healthy {
		*count = 0
		if recoveredAt.IsZero() {
			*recoveredAt = now
		}
		return
	}

	*count++
	*recoveredAt = time.Time{}
	*lastFailureAt = now
}

// evaluateTransitions applies the switch rules, in order, to s:
//
//  1. on primary, primary failures >= MaxFailedAttempts and secondary healthy: fail over
//  2. on secondary, primary healthy and its streak >= RecoveryGracePeriod: fail back
//  3. both unhealthy: Both-Down condition, active replica unchanged
//
// Calling it again with the same inputs leaves s unchanged.
func evaluateTransitions(s *model.FailoverState, primaryHealthy, secondaryHealthy bool, now time.Time, policy FailoverPolicy) Transition {
	t := Transition{From: s.ActiveReplica, To: s.ActiveReplica}

	switch {
	case s.ActiveReplica == model.RolePrimary &&
		s.PrimaryFailureCount >= policy.MaxFailedAttempts &&
		secondaryHealthy:
		t.Kind = TransitionFailover
		t.To = model.RoleSecondary
		t.Reason = fmt.Sprintf("primary failed %d consecutive probes", s.PrimaryFailureCount)

	case s.ActiveReplica == model.RoleSecondary &&
		primaryHealthy &&
		!s.PrimaryRecoveredAt.IsZero() &&
		now.Sub(s.PrimaryRecoveredAt) >= policy.RecoveryGracePeriod:
		t.Kind = TransitionFailback
		t.To = model.RolePrimary
		t.Reason = fmt.Sprintf("primary healthy for %s (grace period %s)",
			now.Sub(s.PrimaryRecoveredAt).Truncate(time.Second), policy.RecoveryGracePeriod)

	case !primaryHealthy && !secondaryHealthy:
		t.BothDown = true
	}

	if t.Switched() {
		s.ActiveReplica = t.To
		s.InFailoverMode = t.To == model.RoleSecondary
		s.LastSwitchAt = now
		s.SwitchHistory = append(s.SwitchHistory, model.SwitchRecord{
			From:   t.From,
			To:     t.To,
			Reason: t.Reason,
			At:     now,
		})
		if n := len(s.SwitchHistory); n > model.MaxSwitchHistory {
			s.SwitchHistory = append([]model.SwitchRecord(nil), s.SwitchHistory[n-model.MaxSwitchHistory:]...)
		}
	}

	return t
}
