package data

import (
	"context"
	"time"

	"FailoverGuard/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates the optional Redis client used by the redis state
// store. A nil client is returned when no address is configured. An
// unreachable server does not prevent startup: the client is returned and the
// state store degrades to defaults until Redis answers.
func NewRedisClient(c *conf.Data, logger log.Logger) (*redis.Client, func(), error) {
	helper := log.NewHelper(logger)

	if c == nil || c.Redis == nil || c.Redis.Addr == "" {
		helper.Debug("Redis address is empty, skipping Redis initialization")
		return nil, func() {}, nil
	}

	network := c.Redis.Network
	if network == "" {
		network = "tcp"
	}

	rdb := redis.NewClient(&redis.Options{
		Network:         network,
		Addr:            c.Redis.Addr,
		Password:        c.Redis.Password,
		DB:              c.Redis.DB,
		PoolSize:        10,
		MinIdleConns:    1,
		DialTimeout:     3 * time.Second,
		ReadTimeout:     c.Redis.ReadTimeout,
		WriteTimeout:    c.Redis.WriteTimeout,
		ConnMaxIdleTime: 5 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		helper.Warnf("Failed to connect to Redis at %s: %v (state will fall back to defaults until it is reachable)", c.Redis.Addr, err)
	} else {
		helper.Infof("Successfully connected to Redis at %s", c.Redis.Addr)
	}

	cleanup := func() {
		helper.Info("Closing Redis client")
		if err := rdb.Close(); err != nil {
			helper.Errorf("Failed to close Redis client: %v", err)
		}
	}

	return rdb, cleanup, nil
}
