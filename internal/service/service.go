// Package service exposes the controller snapshot over the status API.
package service

import (
	"FailoverGuard/internal/biz"

	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(
	NewStatusService,
	wire.Bind(new(SnapshotProvider), new(*biz.FailoverUsecase)),
)
