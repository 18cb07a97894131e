// Package ratelimit implements a fixed-window request limiter keyed by client identifier.
//
// Windows are aligned to the clock: with a 60s window every client gets a fresh budget
// at each whole minute. A client may therefore spend its full budget at the end of one
// window and again at the start of the next.
package ratelimit

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultLimit  = 60
	DefaultWindow = time.Minute

	// UnknownClient is the shared bucket for requests without a client header.
	UnknownClient = "unknown"
)

// DefaultClientHeaders are consulted in order to identify the caller.
var DefaultClientHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

type window struct {
	count     int
	windowEnd int64 // ms since epoch
}

// Limiter admits at most limit requests per client per aligned window.
// Safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	windowMs int64
	now      func() time.Time
}

// New creates a limiter. Non-positive arguments fall back to the defaults.
func New(limit int, win time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if win < time.Millisecond {
		win = DefaultWindow
	}
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		windowMs: win.Milliseconds(),
		now:      time.Now,
	}
}

// SetClock replaces the clock used by Allow.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Allow is Admit at the limiter's current time.
func (l *Limiter) Allow(clientID string) bool {
	l.mu.Lock()
	now := l.now
	l.mu.Unlock()
	return l.Admit(clientID, now().UnixMilli())
}

// Admit records a request from clientID at nowMillis and reports whether it is allowed.
// Rejected requests do not consume budget.
func (l *Limiter) Admit(clientID string, nowMillis int64) bool {
	windowStart := floorDiv(nowMillis, l.windowMs) * l.windowMs
	windowEnd := windowStart + l.windowMs

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[clientID]
	if !ok || w.windowEnd < windowEnd {
		l.windows[clientID] = &window{count: 1, windowEnd: windowEnd}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining reports how many requests clientID may still make in the window containing nowMillis.
func (l *Limiter) Remaining(clientID string, nowMillis int64) int {
	windowEnd := floorDiv(nowMillis, l.windowMs)*l.windowMs + l.windowMs

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[clientID]
	if !ok || w.windowEnd < windowEnd {
		return l.limit
	}
	return l.limit - w.count
}

// Sweep drops windows that ended at or before nowMillis and returns how many were removed.
func (l *Limiter) Sweep(nowMillis int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, w := range l.windows {
		if w.windowEnd <= nowMillis {
			delete(l.windows, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (l *Limiter) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now
			l.mu.Unlock()
			l.Sweep(now().UnixMilli())
		}
	}
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Limit returns the per-window budget.
func (l *Limiter) Limit() int {
	return l.limit
}

// RetryAfter returns the window length in whole seconds, for the Retry-After header.
func (l *Limiter) RetryAfter() int {
	secs := int(l.windowMs / 1000)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// ClientID returns the value of the first present header in headers, or UnknownClient.
// Only the first entry of a comma-separated forwarding list is used.
func ClientID(h http.Header, headers []string) string {
	for _, name := range headers {
		v := strings.TrimSpace(h.Get(name))
		if v == "" {
			continue
		}
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = strings.TrimSpace(v[:i])
		}
		if v != "" {
			return v
		}
	}
	return UnknownClient
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
