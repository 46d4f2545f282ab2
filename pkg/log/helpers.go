package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// SlowRequestThresholdMs is the latency above which RequestWithContext also logs a slow_request warning.
const SlowRequestThresholdMs int64 = 1000

// LogHelper extends log.Helper with typed helpers. Each helper tags the entry
// with a "type" field that EmojiConsoleEncoder maps to an emoji.
type LogHelper struct {
	*log.Helper
}

// NewLogHelper wraps logger.
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

func tagged(msg, logType string, kvs []interface{}) []interface{} {
	allKvs := make([]interface{}, 0, len(kvs)+4)
	allKvs = append(allKvs, "msg", msg)
	allKvs = append(allKvs, kvs...)
	return append(allKvs, "type", logType)
}

// API 🔗
func (h *LogHelper) API(msg string, kvs ...interface{}) {
	h.Infow(tagged(msg, "api", kvs)...)
}

// Auth 🔓
func (h *LogHelper) Auth(msg string, kvs ...interface{}) {
	h.Infow(tagged(msg, "auth", kvs)...)
}

// Success ✅
func (h *LogHelper) Success(msg string, kvs ...interface{}) {
	h.Infow(tagged(msg, "success", kvs)...)
}

// Database 💾 (debug level)
func (h *LogHelper) Database(msg string, kvs ...interface{}) {
	h.Debugw(tagged(msg, "database", kvs)...)
}

// Redis 📦 (debug level)
func (h *LogHelper) Redis(msg string, kvs ...interface{}) {
	h.Debugw(tagged(msg, "redis", kvs)...)
}

// Scheduler 🎯
func (h *LogHelper) Scheduler(msg string, kvs ...interface{}) {
	h.Infow(tagged(msg, "scheduler", kvs)...)
}

// Startup 🚀
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.Infow(tagged(msg, "startup", kvs)...)
}

// Security 🔒 (warn level)
func (h *LogHelper) Security(msg string, kvs ...interface{}) {
	h.Warnw(tagged(msg, "security", kvs)...)
}

// Failover 🔀 records active-replica switches. Logged at warn level so it
// survives a production "warn" filter.
func (h *LogHelper) Failover(msg string, kvs ...interface{}) {
	h.Warnw(tagged(msg, "failover", kvs)...)
}

// Probe 🩺 records one health probe outcome. Failures are logged at warn, successes at debug.
func (h *LogHelper) Probe(replica string, healthy bool, latencyMs int64, kvs ...interface{}) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	msg := fmt.Sprintf("probe %s: %s (%dms)", replica, status, latencyMs)
	allKvs := append(kvs, "replica", replica, "healthy", healthy, "latency_ms", latencyMs)
	if healthy {
		h.Debugw(tagged(msg, "probe", allKvs)...)
		return
	}
	h.Warnw(tagged(msg, "probe", allKvs)...)
}

// Alert 📣
func (h *LogHelper) Alert(msg string, kvs ...interface{}) {
	h.Infow(tagged(msg, "alert", kvs)...)
}

// Persistence 🗄️ records state store outcomes.
func (h *LogHelper) Persistence(msg string, kvs ...interface{}) {
	h.Infow(tagged(msg, "persistence", kvs)...)
}

// Request 🌐, or a status colour when the status field is set
func (h *LogHelper) Request(method, url string, status int, durationMs int64, kvs ...interface{}) {
	msg := fmt.Sprintf("%s %s - %d (%dms)", method, url, status, durationMs)
	allKvs := append(kvs,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(tagged(msg, "request", allKvs)...)
}

// SlowRequest 🐌
func (h *LogHelper) SlowRequest(ctx context.Context, method, url string, duration, threshold int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Slow request detected | %s %s | %dms (threshold: %dms)",
		reqCtx.RequestID, method, url, duration, threshold)

	allKvs := append(kvs,
		"request_id", reqCtx.RequestID,
		"method", method,
		"url", url,
		"duration_ms", duration,
		"threshold_ms", threshold,
	)
	h.Warnw(tagged(msg, "slow_request", allKvs)...)
}

// RequestWithContext logs a completed HTTP request with its request id and
// reports it as slow when it exceeds SlowRequestThresholdMs.
func (h *LogHelper) RequestWithContext(ctx context.Context, method, url string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("%s %s - %d (%dms) | RequestID: %s",
		method, url, status, durationMs, reqCtx.RequestID)

	allKvs := append(kvs,
		"request_id", reqCtx.RequestID,
		"operation", reqCtx.Operation,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(tagged(msg, "request", allKvs)...)

	if durationMs > SlowRequestThresholdMs {
		h.SlowRequest(ctx, method, url, durationMs, SlowRequestThresholdMs)
	}
}
