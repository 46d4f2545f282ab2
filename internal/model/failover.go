package model

import (
	"time"

	dberrors "FailoverGuard/pkg/errors"
)

// StateSchemaVersion is the version written into every persisted FailoverState.
const StateSchemaVersion = 1

// MaxSwitchHistory bounds the switch history kept in memory and on disk.
const MaxSwitchHistory = 20

// ReplicaRole identifies one of the two configured replicas.
type ReplicaRole string

const (
	// RolePrimary is the preferred replica.
	RolePrimary ReplicaRole = "primary"
	// RoleSecondary is the standby replica used during failover.
	RoleSecondary ReplicaRole = "secondary"
)

// Valid reports whether r is one of the two known roles.
func (r ReplicaRole) Valid() bool {
	return r == RolePrimary || r == RoleSecondary
}

// Other returns the opposite role.
func (r ReplicaRole) Other() ReplicaRole {
	if r == RoleSecondary {
		return RolePrimary
	}
	return RoleSecondary
}

// FailoverState is the single durable record owned by the failover controller.
// Zero timestamps mean "never" and are omitted from the persisted form.
type FailoverState struct {
	SchemaVersion int         `json:"schema_version"`
	ActiveReplica ReplicaRole `json:"active_replica"`

	PrimaryFailureCount   int `json:"primary_failure_count"`
	SecondaryFailureCount int `json:"secondary_failure_count"`

	LastPrimaryFailureAt   time.Time `json:"last_primary_failure_at,omitzero"`
	LastSecondaryFailureAt time.Time `json:"last_secondary_failure_at,omitzero"`

	// Start of the current continuous healthy streak; cleared on any failure.
	PrimaryRecoveredAt   time.Time `json:"primary_recovered_at,omitzero"`
	SecondaryRecoveredAt time.Time `json:"secondary_recovered_at,omitzero"`

	// InFailoverMode always mirrors ActiveReplica == RoleSecondary.
	InFailoverMode bool `json:"in_failover_mode"`

	LastSwitchAt time.Time `json:"last_switch_at,omitzero"`
	LastCheckAt  time.Time `json:"last_check_at,omitzero"`

	SwitchHistory []SwitchRecord `json:"switch_history,omitempty"`
}

// DefaultFailoverState returns the state used on first boot or after an unreadable record.
func DefaultFailoverState() FailoverState {
	return FailoverState{
		SchemaVersion: StateSchemaVersion,
		ActiveReplica: RolePrimary,
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s FailoverState) Clone() FailoverState {
	if s.SwitchHistory != nil {
		history := make([]SwitchRecord, len(s.SwitchHistory))
		copy(history, s.SwitchHistory)
		s.SwitchHistory = history
	}
	return s
}

// FailureCount returns the consecutive failure counter for role.
func (s *FailoverState) FailureCount(role ReplicaRole) int {
	if role == RoleSecondary {
		return s.SecondaryFailureCount
	}
	return s.PrimaryFailureCount
}

// RecoveredAt returns the start of role's current healthy streak (zero if none).
func (s *FailoverState) RecoveredAt(role ReplicaRole) time.Time {
	if role == RoleSecondary {
		return s.SecondaryRecoveredAt
	}
	return s.PrimaryRecoveredAt
}

// LastFailureAt returns role's most recent failed probe time (zero if none).
func (s *FailoverState) LastFailureAt(role ReplicaRole) time.Time {
	if role == RoleSecondary {
		return s.LastSecondaryFailureAt
	}
	return s.LastPrimaryFailureAt
}

// SwitchRecord is one entry of the active-replica change history.
type SwitchRecord struct {
	From   ReplicaRole `json:"from"`
	To     ReplicaRole `json:"to"`
	Reason string      `json:"reason"`
	At     time.Time   `json:"at"`
}

// ProbeResult is the classified outcome of one liveness check.
type ProbeResult struct {
	Role      ReplicaRole        `json:"role"`
	Healthy   bool               `json:"healthy"`
	ErrorKind dberrors.ErrorKind `json:"error_kind,omitempty"`
	Error     string             `json:"error,omitempty"`
	Latency   time.Duration      `json:"latency"`
	CheckedAt time.Time          `json:"checked_at"`
}

// LatencyMs returns the probe latency in milliseconds.
func (p ProbeResult) LatencyMs() int64 {
	return p.Latency.Milliseconds()
}

// ReplicaInfo is the immutable, display-safe description of a configured replica.
type ReplicaInfo struct {
	Role   ReplicaRole `json:"role"`
	ID     string      `json:"id"`
	Region string      `json:"region"`
	Driver string      `json:"driver"`
}

// HealthSnapshot is the read-only view published by the controller after every tick.
type HealthSnapshot struct {
	State FailoverState

	// Checked is false until the first tick completes.
	Checked   bool
	Primary   ProbeResult
	Secondary ProbeResult
	BothDown  bool

	Replicas map[ReplicaRole]ReplicaInfo

	MaxFailedAttempts   int
	TickInterval        time.Duration
	RecoveryGracePeriod time.Duration

	StateStore      string
	LastPersistedAt time.Time
	PersistError    string
}

// Probe returns the last probe result for role.
func (s *HealthSnapshot) Probe(role ReplicaRole) ProbeResult {
	if role == RoleSecondary {
		return s.Secondary
	}
	return s.Primary
}

// ActiveHealthy reports whether the currently active replica passed its last probe.
func (s *HealthSnapshot) ActiveHealthy() bool {
	return s.Probe(s.State.ActiveReplica).Healthy
}
