// Package v1 defines the FailoverGuard status API.
package v1

import (
	"net/http"
	"time"
)

// Overall status values reported by GET /status.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// GetStatusRequest is the (empty) request of GET /status.
type GetStatusRequest struct{}

// GetDetailedHealthRequest is the (empty) request of GET /health/detailed.
type GetDetailedHealthRequest struct{}

// StatusDetails is the public summary of both replicas.
type StatusDetails struct {
	Primary        string    `json:"primary"`
	Secondary      string    `json:"secondary"`
	ActiveDb       string    `json:"activeDb"`
	LastCheck      time.Time `json:"lastCheck,omitzero"`
	InFailoverMode bool      `json:"inFailoverMode"`
	LastSwitch     time.Time `json:"lastSwitch,omitzero"`
}

// StatusReply is the body of GET /status.
type StatusReply struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Details StatusDetails `json:"details"`
}

// HTTPCode maps Status onto the response code.
func (r *StatusReply) HTTPCode() int {
	return httpCode(r.Status)
}

// ReplicaHealth is the privileged per-replica view.
type ReplicaHealth struct {
	ID            string    `json:"id"`
	Region        string    `json:"region"`
	Driver        string    `json:"driver"`
	Healthy       bool      `json:"healthy"`
	FailureCount  int       `json:"failureCount"`
	LastFailure   time.Time `json:"lastFailure,omitzero"`
	RecoveredAt   time.Time `json:"recoveredAt,omitzero"`
	LastLatencyMs int64     `json:"lastLatencyMs"`
	ErrorKind     string    `json:"errorKind,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// SwitchEntry is one recorded change of the active replica.
type SwitchEntry struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Thresholds echoes the controller configuration.
type Thresholds struct {
	MaxFailedAttempts          int     `json:"maxFailedAttempts"`
	TickIntervalSeconds        float64 `json:"tickIntervalSeconds"`
	RecoveryGracePeriodSeconds float64 `json:"recoveryGracePeriodSeconds"`
}

// Persistence reports the state store outcome of the last tick.
type Persistence struct {
	Store           string    `json:"store"`
	LastPersistedAt time.Time `json:"lastPersistedAt,omitzero"`
	Error           string    `json:"error,omitempty"`
}

// DetailedHealthReply is the body of GET /health/detailed.
type DetailedHealthReply struct {
	Status        string        `json:"status"`
	Message       string        `json:"message"`
	ActiveDb      string        `json:"activeDb"`
	InFailover    bool          `json:"inFailoverMode"`
	BothDown      bool          `json:"bothDown"`
	LastCheck     time.Time     `json:"lastCheck,omitzero"`
	LastSwitch    time.Time     `json:"lastSwitch,omitzero"`
	Primary       ReplicaHealth `json:"primary"`
	Secondary     ReplicaHealth `json:"secondary"`
	SwitchHistory []SwitchEntry `json:"switchHistory"`
	Thresholds    Thresholds    `json:"thresholds"`
	Persistence   Persistence   `json:"persistence"`
}

// HTTPCode maps Status onto the response code.
func (r *DetailedHealthReply) HTTPCode() int {
	return httpCode(r.Status)
}

func httpCode(status string) int {
	switch status {
	case StatusHealthy:
		return http.StatusOK
	case StatusDegraded:
		return http.StatusMultiStatus
	default:
		return http.StatusServiceUnavailable
	}
}
