package log

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type contextKey string

const requestContextKey contextKey = "failoverguard_request_context"

// RequestContext carries per-request tracing data through the handler chain.
type RequestContext struct {
	RequestID string
	Operation string
	StartTime time.Time
}

var (
	randSource  = rand.NewSource(time.Now().UnixNano())
	randMutex   sync.Mutex
	base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateRequestID returns a 10 character base36 id, e.g. mgrn0zfqda.
func GenerateRequestID() string {
	randMutex.Lock()
	defer randMutex.Unlock()

	b := make([]byte, 10)
	for i := range b {
		b[i] = base36Chars[randSource.Int63()%36]
	}
	return string(b)
}

// WithRequestContext stores a new RequestContext in ctx.
func WithRequestContext(ctx context.Context, requestID, operation string) context.Context {
	return context.WithValue(ctx, requestContextKey, &RequestContext{
		RequestID: requestID,
		Operation: operation,
		StartTime: time.Now(),
	})
}

// GetRequestContext never returns nil; a missing context yields RequestID "unknown".
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx != nil {
		if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{RequestID: "unknown"}
}

// GetRequestID extracts the request id from ctx.
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// GetElapsedTime returns milliseconds since the request started.
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
