package guard

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	DefaultRateLimitWindow = time.Minute
	DefaultRateLimitMax    = 10
)

// ViolationRecorder receives rate-limit overflows. *ReputationStore satisfies
// it; passing nil disables reputation feedback.
type ViolationRecorder interface {
	RecordViolation(ip string)
}

// RateDecision is the outcome of one rate-limit check.
type RateDecision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Blocked   bool
}

type rateEntry struct {
	count     int
	windowEnd time.Time
	ipAddress string
}

// RateLimiter is a fixed-window limiter keyed by caller identity. Overflows
// are reported to the reputation store against the caller's IP. Safe for
// concurrent use.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateEntry

	window     time.Duration
	max        int
	reputation ViolationRecorder

	now    func() time.Time
	sample func() float64
}

// NewRateLimiter creates a limiter. Non-positive parameters fall back to the
// defaults (60s window, 10 per window). recorder may be nil.
func NewRateLimiter(window time.Duration, max int, recorder ViolationRecorder) *RateLimiter {
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	if max <= 0 {
		max = DefaultRateLimitMax
	}
	return &RateLimiter{
		entries:    make(map[string]*rateEntry),
		window:     window,
		max:        max,
		reputation: recorder,
		now:        time.Now,
		sample:     rand.Float64,
	}
}

// Check consumes one slot for identity. A check landing exactly on the window
// boundary opens a new window. On overflow the violation is recorded against
// ipAddress before the decision is returned, so a follow-up IsBlocked on the
// same IP observes it. An empty ipAddress still rate-limits by identity but
// never touches reputation.
func (l *RateLimiter) Check(identity, ipAddress string) RateDecision {
	now := l.now()

	l.mu.Lock()

	if l.sample() < sweepProbability {
		l.sweepLocked(now)
	}

	e, ok := l.entries[identity]
	if !ok || !e.windowEnd.After(now) {
		e = &rateEntry{count: 1, windowEnd: now.Add(l.window), ipAddress: ipAddress}
		l.entries[identity] = e
		l.mu.Unlock()
		return RateDecision{Allowed: true, Remaining: l.max - 1, ResetAt: e.windowEnd}
	}

	if e.count >= l.max {
		resetAt := e.windowEnd
		l.mu.Unlock()
		// Recorded before returning: callers may consult reputation next.
		if ipAddress != "" && l.reputation != nil {
			l.reputation.RecordViolation(ipAddress)
		}
		return RateDecision{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}

	e.count++
	remaining := l.max - e.count
	resetAt := e.windowEnd
	l.mu.Unlock()
	return RateDecision{Allowed: true, Remaining: remaining, ResetAt: resetAt}
}

// Sweep removes entries whose window has ended and returns how many were
// dropped. Never required for correctness; it only bounds memory.
func (l *RateLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(now)
}

func (l *RateLimiter) sweepLocked(now time.Time) int {
	removed := 0
	for identity, e := range l.entries {
		if !e.windowEnd.After(now) {
			delete(l.entries, identity)
			removed++
		}
	}
	return removed
}

// SetClock replaces the time source. Intended for tests.
func (l *RateLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
