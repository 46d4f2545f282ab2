package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	pkglog "FailoverGuard/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// httpCoder is implemented by replies that choose their own status code.
type httpCoder interface {
	HTTPCode() int
}

// Logging returns a middleware that assigns a request id, injects the request
// context and logs every completed request.
//
//	🟢 GET /status - 200 (1ms) | RequestID: mgrn0zfqda
//	🐌 [mgrn0zfqda] Slow request detected | GET /health/detailed | 1340ms
func Logging(logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			startTime := time.Now()

			var (
				method    string
				path      string
				operation string
				ip        string
				userAgent string
				requestID string
			)

			if tr, ok := transport.FromServerContext(ctx); ok {
				operation = tr.Operation()
				method = tr.Kind().String()
				path = operation

				if ht, ok := tr.(khttp.Transporter); ok {
					httpReq := ht.Request()
					method = httpReq.Method
					path = httpReq.URL.Path
					if httpReq.URL.RawQuery != "" {
						path = path + "?" + httpReq.URL.RawQuery
					}
					ip = extractClientIP(httpReq)
					userAgent = httpReq.Header.Get("User-Agent")
					requestID = httpReq.Header.Get("X-Request-ID")
				}

				if requestID == "" {
					requestID = pkglog.GenerateRequestID()
				}
				tr.ReplyHeader().Set("X-Request-ID", requestID)
			}

			ctx = pkglog.WithRequestContext(ctx, requestID, operation)

			reply, err := handler(ctx, req)

			logger.RequestWithContext(ctx, method, path, statusOf(reply, err), time.Since(startTime).Milliseconds(),
				"ip", ip,
				"user_agent", userAgent,
			)

			return reply, err
		}
	}
}

// extractClientIP prefers X-Real-IP, then the first X-Forwarded-For hop, then RemoteAddr.
func extractClientIP(req *http.Request) string {
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return req.RemoteAddr
}

func statusOf(reply interface{}, err error) int {
	if err != nil {
		return int(errors.FromError(err).Code)
	}
	if c, ok := reply.(httpCoder); ok {
		return c.HTTPCode()
	}
	return http.StatusOK
}
