package model

import "time"

// AlertType classifies a notification sent to the alerting channel.
type AlertType string

const (
	AlertFailover         AlertType = "failover"
	AlertFailback         AlertType = "failback"
	AlertBothDown         AlertType = "both_down"
	AlertBothDownResolved AlertType = "both_down_resolved"
	AlertSummary          AlertType = "summary"
)

// AlertSeverity is the urgency attached to an alert.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)

// ReplicaStatus is the per-replica part of an alert payload.
type ReplicaStatus struct {
	ID           string    `json:"id"`
	Region       string    `json:"region"`
	Healthy      bool      `json:"healthy"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	FailureCount int       `json:"failure_count"`
	LastFailure  time.Time `json:"last_failure,omitzero"`
	RecoveredAt  time.Time `json:"recovered_at,omitzero"`
}

// AlertEvent is the payload handed to the AlertDispatcher.
type AlertEvent struct {
	ID              string        `json:"id"`
	Type            AlertType     `json:"type"`
	Severity        AlertSeverity `json:"severity"`
	Message         string        `json:"message"`
	ActiveReplica   ReplicaRole   `json:"active_replica"`
	PrimaryStatus   ReplicaStatus `json:"primary_status"`
	SecondaryStatus ReplicaStatus `json:"secondary_status"`
	OccurredAt      time.Time     `json:"occurred_at"`
	LastSwitchAt    time.Time     `json:"last_switch_at,omitzero"`
	LastCheckAt     time.Time     `json:"last_check_at,omitzero"`
}
