package server

import (
	v1 "FailoverGuard/api/v1"
	"FailoverGuard/internal/biz"
	"FailoverGuard/internal/conf"
	"FailoverGuard/internal/server/middleware"
	"FailoverGuard/internal/service"
	pkglog "FailoverGuard/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, auth *conf.Auth, statusService *service.StatusService, metrics *biz.FailoverMetrics, logger log.Logger) *http.Server {
	logHelper := pkglog.NewLogHelper(log.With(logger, "module", "server/http"))

	adminToken := ""
	if auth != nil {
		adminToken = auth.AdminToken
	}

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Logging(logHelper),
			selector.Server(middleware.AdminAuth(adminToken, logHelper)).
				Path(v1.OperationStatusServiceGetDetailedHealth).
				Build(),
		),
	}
	if c.HTTP.Network != "" {
		opts = append(opts, http.Network(c.HTTP.Network))
	}
	if c.HTTP.Addr != "" {
		opts = append(opts, http.Address(c.HTTP.Addr))
	}
	if c.HTTP.Timeout > 0 {
		opts = append(opts, http.Timeout(c.HTTP.Timeout))
	}
	srv := http.NewServer(opts...)

	v1.RegisterStatusServiceHTTPServer(srv, statusService)
	srv.Handle("/metrics", metrics.Handler())

	return srv
}
