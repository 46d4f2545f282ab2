// Package middleware provides HTTP middleware for admin authentication and request logging.
package middleware

import (
	"context"
	"crypto/subtle"
	"strings"

	pkglog "FailoverGuard/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// ReasonUnauthorized is the kratos error reason returned for a rejected admin credential.
const ReasonUnauthorized = "ADMIN_UNAUTHORIZED"

// AdminAuth rejects requests that do not carry the configured admin token,
// either as "Authorization: Bearer <token>" or as "X-Admin-Token".
// With no token configured every request is rejected.
//
//	🔐 Rejected admin request: invalid token (abcd****wxyz) | {"type":"security","operation":"/api.v1.StatusService/GetDetailedHealth"}
func AdminAuth(token string, logger *pkglog.LogHelper) middleware.Middleware {
	expected := []byte(token)

	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			var (
				presented string
				operation string
				ip        string
			)

			if tr, ok := transport.FromServerContext(ctx); ok {
				operation = tr.Operation()
				presented = extractToken(tr.RequestHeader())
				if ht, ok := tr.(http.Transporter); ok {
					ip = extractClientIP(ht.Request())
				}
			}

			switch {
			case len(expected) == 0:
				logger.Security("Rejected admin request: no admin token configured",
					"operation", operation, "ip", ip)
				return nil, errors.Unauthorized(ReasonUnauthorized, "admin access is not configured")
			case presented == "":
				logger.Security("Rejected admin request: missing token",
					"operation", operation, "ip", ip)
				return nil, errors.Unauthorized(ReasonUnauthorized, "missing admin token")
			case subtle.ConstantTimeCompare([]byte(presented), expected) != 1:
				logger.Security("Rejected admin request: invalid token",
					"operation", operation, "ip", ip, "token", presented)
				return nil, errors.Unauthorized(ReasonUnauthorized, "invalid admin token")
			}

			logger.Auth("Admin request authenticated", "operation", operation, "ip", ip)
			return handler(ctx, req)
		}
	}
}

func extractToken(h transport.Header) string {
	if auth := strings.TrimSpace(h.Get("Authorization")); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(h.Get("X-Admin-Token"))
}
