package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"redditsaver/pkg/logger"
)

const (
	// HeaderRemaining carries the requests left in the current window. Reddit
	// may send it as a decimal such as "598.0".
	HeaderRemaining = "X-Ratelimit-Remaining"
	// HeaderReset carries the whole seconds until the window resets
	HeaderReset = "X-Ratelimit-Reset"
)

// QuotaLimiter gates requests on the quota the server reports in its
// response headers. It starts optimistic (one request allowed, window
// resetting now) and is corrected by Update after every response.
//
// The mutex guards only the decision and the state mutation; sleeping
// happens with the lock released.
type QuotaLimiter struct {
	mu        sync.Mutex
	remaining int
	resetTime time.Time

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger logger.Logger
}

// QuotaOption configures a QuotaLimiter
type QuotaOption func(*QuotaLimiter)

// WithClock replaces time.Now
func WithClock(now func() time.Time) QuotaOption {
	return func(q *QuotaLimiter) { q.now = now }
}

// WithSleeper replaces the context-aware sleep
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) QuotaOption {
	return func(q *QuotaLimiter) { q.sleep = sleep }
}

// WithLogger sets the logger used for quota events
func WithLogger(l logger.Logger) QuotaOption {
	return func(q *QuotaLimiter) { q.logger = l }
}

// NewQuotaLimiter creates a limiter with remaining=1 and resetTime=now
func NewQuotaLimiter(opts ...QuotaOption) *QuotaLimiter {
	q := &QuotaLimiter{
		now:    time.Now,
		sleep:  Sleep,
		logger: logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.remaining = 1
	q.resetTime = q.now()
	return q
}

// Wait consumes one unit of quota if the current window still has some,
// otherwise it blocks until the window resets. It returns ctx.Err() if the
// context ends while waiting.
func (q *QuotaLimiter) Wait(ctx context.Context) error {
	q.mu.Lock()
	now := q.now()
	if q.remaining > 0 && q.resetTime.After(now) {
		q.remaining--
		q.mu.Unlock()
		return nil
	}
	remaining := q.remaining
	sleepFor := q.resetTime.Sub(now)
	q.mu.Unlock()

	if sleepFor <= 0 {
		return ctx.Err()
	}

	logger.LogRateLimit(q.logger, remaining, sleepFor)
	return q.sleep(ctx, sleepFor)
}

// Update refreshes the quota from response headers. A header that is absent
// or does not parse leaves the corresponding field unchanged.
func (q *QuotaLimiter) Update(header http.Header) {
	remaining, remainingOK := parseRemaining(header.Get(HeaderRemaining))
	resetSecs, resetOK := parseReset(header.Get(HeaderReset))
	if !remainingOK && !resetOK {
		return
	}

	q.mu.Lock()
	if remainingOK {
		q.remaining = remaining
	}
	if resetOK {
		q.resetTime = q.now().Add(time.Duration(resetSecs) * time.Second)
	}
	state := map[string]interface{}{
		"remaining":  q.remaining,
		"reset_time": q.resetTime,
	}
	q.mu.Unlock()

	q.logger.DebugWithFields("Rate limit state updated", state)
}

// Snapshot returns the current quota state
func (q *QuotaLimiter) Snapshot() (remaining int, resetTime time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remaining, q.resetTime
}

// parseRemaining keeps the integer part of values like "598.0"
func parseRemaining(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	whole, _, _ := strings.Cut(value, ".")
	n, err := strconv.ParseUint(whole, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func parseReset(value string) (uint64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Sleep blocks for d or until ctx is done, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
