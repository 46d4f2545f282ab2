// Package biz contains the failover controller and the health probe.
package biz

import (
	"FailoverGuard/internal/data"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewHealthProbe,
	NewFailoverMetrics,
	NewFailoverUsecase,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(ReplicaProber), new(*HealthProbe)),
	wire.Bind(new(FailoverStateRepo), new(data.StateStore)),
	wire.Bind(new(AlertDispatcher), new(data.AlertDispatcher)),
	wire.Bind(new(ConnectionRouter), new(*data.ActiveConnectionRouter)),
	wire.Bind(new(ReplicaCatalog), new(*data.ReplicaSet)),
)
