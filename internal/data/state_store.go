package data

import (
	"context"
	"errors"
	"fmt"

	"FailoverGuard/internal/conf"
	"FailoverGuard/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// ErrStateUnavailable means the durable record could not be read, as opposed
// to being absent or corrupt. It may still hold a valid state, so callers must
// not overwrite it until a later Load succeeds.
var ErrStateUnavailable = errors.New("failover state store unavailable")

// StateStore persists the single FailoverState record.
//
// Load always returns a usable state. A missing record yields defaults with a
// "first run" log marker and a corrupt one yields defaults with a "recovered
// from defaults" marker; both return a nil error. When the store cannot be
// reached, Load returns defaults and an error wrapping ErrStateUnavailable.
// Save must be atomic for external readers.
type StateStore interface {
	Load(ctx context.Context) (model.FailoverState, error)
	Save(ctx context.Context, state model.FailoverState) error
	Name() string
}

// NewStateStore selects the store configured in data.state.driver.
func NewStateStore(c *conf.Data, cache CacheClient, logger log.Logger) (StateStore, error) {
	if c == nil || c.State == nil {
		return nil, fmt.Errorf("state store configuration is missing")
	}

	switch c.State.Driver {
	case "", "file":
		return NewFileStateStore(c.State.Path, logger), nil
	case "redis":
		key := c.State.RedisKey
		if key == "" {
			key = BuildCacheKey(CacheKeyFailover, "state")
		}
		return NewRedisStateStore(cache, key, logger), nil
	default:
		return nil, fmt.Errorf("unsupported state driver %q", c.State.Driver)
	}
}

// normalizeState fills missing fields with safe defaults and repairs values
// that violate the record's invariants. It reports what it changed.
func normalizeState(s model.FailoverState) (model.FailoverState, []string) {
	var fixes []string

	if s.SchemaVersion == 0 {
		fixes = append(fixes, "schema_version missing")
	} else if s.SchemaVersion > model.StateSchemaVersion {
		fixes = append(fixes, fmt.Sprintf("schema_version %d is newer than %d, unknown fields ignored", s.SchemaVersion, model.StateSchemaVersion))
	}
	s.SchemaVersion = model.StateSchemaVersion

	if !s.ActiveReplica.Valid() {
		fixes = append(fixes, fmt.Sprintf("active_replica %q unknown, using primary", s.ActiveReplica))
		s.ActiveReplica = model.RolePrimary
	}

	if s.PrimaryFailureCount < 0 {
		fixes = append(fixes, "negative primary_failure_count")
		s.PrimaryFailureCount = 0
	}
	if s.SecondaryFailureCount < 0 {
		fixes = append(fixes, "negative secondary_failure_count")
		s.SecondaryFailureCount = 0
	}

	inFailover := s.ActiveReplica == model.RoleSecondary
	if s.InFailoverMode != inFailover {
		fixes = append(fixes, "in_failover_mode disagreed with active_replica")
		s.InFailoverMode = inFailover
	}

	if n := len(s.SwitchHistory); n > model.MaxSwitchHistory {
		s.SwitchHistory = append([]model.SwitchRecord(nil), s.SwitchHistory[n-model.MaxSwitchHistory:]...)
	}

	return s, fixes
}
