// Package server wires the HTTP status server and the failover ticker.
package server

import (
	"FailoverGuard/internal/biz"

	"github.com/google/wire"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(
	NewHTTPServer,
	NewFailoverServer,
	wire.Bind(new(Ticker), new(*biz.FailoverUsecase)),
)
