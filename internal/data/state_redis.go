package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FailoverGuard/internal/model"
	pkglog "FailoverGuard/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

const defaultLoadRetryDelay = 500 * time.Millisecond

// RedisStateStore keeps the record as one JSON value. A single SET replaces
// the whole value, so readers never see a partial record.
type RedisStateStore struct {
	cache      CacheClient
	key        string
	log        *pkglog.LogHelper
	retryDelay time.Duration
}

// NewRedisStateStore creates a store under key.
func NewRedisStateStore(cache CacheClient, key string, logger log.Logger) *RedisStateStore {
	return &RedisStateStore{
		cache:      cache,
		key:        key,
		log:        pkglog.NewLogHelper(logger),
		retryDelay: defaultLoadRetryDelay,
	}
}

// Name identifies the store in status output.
func (s *RedisStateStore) Name() string {
	return "redis:" + s.key
}

// Load reads the record. A missing or undecodable value yields defaults.
// A connection failure is retried once; if it persists Load returns defaults
// together with ErrStateUnavailable so the caller keeps the stored record intact.
func (s *RedisStateStore) Load(ctx context.Context) (model.FailoverState, error) {
	var state model.FailoverState
	err := s.cache.Get(ctx, s.key, &state)
	if err != nil && !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheDecode) {
		s.log.Warnw("msg", "failover state read failed, retrying once", "key", s.key, "error", err, "type", "persistence")
		select {
		case <-time.After(s.retryDelay):
			state = model.FailoverState{}
			err = s.cache.Get(ctx, s.key, &state)
		case <-ctx.Done():
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrCacheNotFound):
		s.log.Persistence("first run: no failover state found, starting on primary", "key", s.key)
		return model.DefaultFailoverState(), nil
	case errors.Is(err, ErrCacheDecode):
		s.log.Warnw("msg", "recovered from defaults: failover state is corrupt", "key", s.key, "error", err, "type", "persistence")
		return model.DefaultFailoverState(), nil
	default:
		s.log.Errorw("msg", "failover state unavailable, starting from defaults without overwriting it",
			"key", s.key, "error", err, "type", "persistence")
		return model.DefaultFailoverState(), fmt.Errorf("%w: %w", ErrStateUnavailable, err)
	}

	state, fixes := normalizeState(state)
	for _, fix := range fixes {
		s.log.Warnw("msg", "failover state repaired on load", "key", s.key, "fix", fix, "type", "persistence")
	}

	s.log.Persistence("failover state loaded", "key", s.key, "active_replica", string(state.ActiveReplica))
	return state, nil
}

// Save overwrites the record without expiry.
func (s *RedisStateStore) Save(ctx context.Context, state model.FailoverState) error {
	state.SchemaVersion = model.StateSchemaVersion
	if err := s.cache.Set(ctx, s.key, state, 0); err != nil {
		return fmt.Errorf("failed to save failover state: %w", err)
	}
	s.log.Redis("failover state saved", "key", s.key)
	return nil
}
