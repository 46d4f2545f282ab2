// Package data provides the replica handles, the active connection router,
// failover state persistence and alert delivery.
package data

import (
	"github.com/google/wire"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewReplicaSet,
	NewActiveConnectionRouter,
	NewRedisClient,
	NewCacheClient,
	NewStateStore,
	NewAlertDispatcher,
)
