package biz

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// alertThrottle lets one alert per key through per window. A zero window disables suppression.
type alertThrottle struct {
	window time.Duration
	seen   *expirable.LRU[string, time.Time]
}

func newAlertThrottle(window time.Duration) *alertThrottle {
	t := &alertThrottle{window: window}
	if window > 0 {
		t.seen = expirable.NewLRU[string, time.Time](32, nil, window)
	}
	return t
}

// allow reports whether an alert for key may be sent at now and records it if so.
// The window is measured on the caller's clock; the LRU expiry only bounds how
// long stale keys are kept around.
func (t *alertThrottle) allow(key string, now time.Time) bool {
	if t.seen == nil {
		return true
	}
	if last, ok := t.seen.Get(key); ok && now.Sub(last) < t.window {
		return false
	}
	t.seen.Add(key, now)
	return true
}

// reset forgets key so the next alert for it goes out immediately.
func (t *alertThrottle) reset(key string) {
	if t.seen != nil {
		t.seen.Remove(key)
	}
}
