package service

import (
	"context"
	"fmt"

	v1 "FailoverGuard/api/v1"
	"FailoverGuard/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

const msgNotChecked = "no health check has completed yet"

// SnapshotProvider returns the last published controller view.
type SnapshotProvider interface {
	Snapshot() *model.HealthSnapshot
}

// StatusService implements the StatusService HTTP interface.
// It reads only the cached snapshot and never probes a replica itself.
type StatusService struct {
	snapshots SnapshotProvider
	logger    *log.Helper
}

var _ v1.StatusServiceHTTPServer = (*StatusService)(nil)

// NewStatusService creates a new StatusService instance.
func NewStatusService(snapshots SnapshotProvider, logger log.Logger) *StatusService {
	return &StatusService{
		snapshots: snapshots,
		logger:    log.NewHelper(log.With(logger, "module", "service/status")),
	}
}

// GetStatus returns the public health summary.
func (s *StatusService) GetStatus(_ context.Context, _ *v1.GetStatusRequest) (*v1.StatusReply, error) {
	snap := s.snapshots.Snapshot()
	status, message := classify(snap)

	return &v1.StatusReply{
		Status:  status,
		Message: message,
		Details: v1.StatusDetails{
			Primary:        replicaWord(snap, model.RolePrimary),
			Secondary:      replicaWord(snap, model.RoleSecondary),
			ActiveDb:       string(snap.State.ActiveReplica),
			LastCheck:      snap.State.LastCheckAt,
			InFailoverMode: snap.State.InFailoverMode,
			LastSwitch:     snap.State.LastSwitchAt,
		},
	}, nil
}

// GetDetailedHealth returns the full state dump. Access is enforced by the admin auth middleware.
func (s *StatusService) GetDetailedHealth(_ context.Context, _ *v1.GetDetailedHealthRequest) (*v1.DetailedHealthReply, error) {
	snap := s.snapshots.Snapshot()
	status, message := classify(snap)

	history := make([]v1.SwitchEntry, 0, len(snap.State.SwitchHistory))
	for _, r := range snap.State.SwitchHistory {
		history = append(history, v1.SwitchEntry{
			From:   string(r.From),
			To:     string(r.To),
			Reason: r.Reason,
			At:     r.At,
		})
	}

	s.logger.Debugw("msg", "detailed health requested", "status", status)

	return &v1.DetailedHealthReply{
		Status:        status,
		Message:       message,
		ActiveDb:      string(snap.State.ActiveReplica),
		InFailover:    snap.State.InFailoverMode,
		BothDown:      snap.BothDown,
		LastCheck:     snap.State.LastCheckAt,
		LastSwitch:    snap.State.LastSwitchAt,
		Primary:       replicaHealth(snap, model.RolePrimary),
		Secondary:     replicaHealth(snap, model.RoleSecondary),
		SwitchHistory: history,
		Thresholds: v1.Thresholds{
			MaxFailedAttempts:          snap.MaxFailedAttempts,
			TickIntervalSeconds:        snap.TickInterval.Seconds(),
			RecoveryGracePeriodSeconds: snap.RecoveryGracePeriod.Seconds(),
		},
		Persistence: v1.Persistence{
			Store:           snap.StateStore,
			LastPersistedAt: snap.LastPersistedAt,
			Error:           snap.PersistError,
		},
	}, nil
}

// classify maps a snapshot onto healthy (200), degraded (207) or error (503).
func classify(snap *model.HealthSnapshot) (string, string) {
	active := snap.State.ActiveReplica

	switch {
	case !snap.Checked:
		return v1.StatusError, msgNotChecked
	case snap.BothDown:
		return v1.StatusError, "both database replicas are unhealthy"
	case !snap.ActiveHealthy():
		return v1.StatusDegraded, fmt.Sprintf("active replica %s is unhealthy, %s is available", active, active.Other())
	case active == model.RoleSecondary:
		return v1.StatusDegraded, "operating on secondary replica (failover mode)"
	default:
		return v1.StatusHealthy, "serving from primary replica"
	}
}

func replicaWord(snap *model.HealthSnapshot, role model.ReplicaRole) string {
	if !snap.Checked {
		return "unknown"
	}
	if snap.Probe(role).Healthy {
		return "healthy"
	}
	return "unhealthy"
}

func replicaHealth(snap *model.HealthSnapshot, role model.ReplicaRole) v1.ReplicaHealth {
	info := snap.Replicas[role]
	probe := snap.Probe(role)
	return v1.ReplicaHealth{
		ID:            info.ID,
		Region:        info.Region,
		Driver:        info.Driver,
		Healthy:       probe.Healthy,
		FailureCount:  snap.State.FailureCount(role),
		LastFailure:   snap.State.LastFailureAt(role),
		RecoveredAt:   snap.State.RecoveredAt(role),
		LastLatencyMs: probe.LatencyMs(),
		ErrorKind:     probe.ErrorKind.String(),
		Error:         probe.Error,
	}
}
