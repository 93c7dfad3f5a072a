package guard

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	DefaultBlockThreshold = 5
	DefaultBlockDuration  = time.Hour

	// sweepProbability is the chance that any single mutation also pays for
	// a full sweep of expired entries. Sweeping is never required for
	// correctness; it only bounds memory under adversarial bursts.
	sweepProbability = 0.1
)

// IPReputation is a snapshot of one IP's rolling violation record.
type IPReputation struct {
	Violations    int
	LastViolation time.Time
	Blocked       bool
}

// ReputationStore tracks per-IP violations and block state in memory.
// Entries expire BlockDuration after the last violation; expiry clears the
// violation count, so a returning IP starts clean.
type ReputationStore struct {
	mu      sync.Mutex
	entries map[string]*IPReputation

	threshold int
	blockFor  time.Duration

	now    func() time.Time
	sample func() float64
}

// NewReputationStore creates a store. Non-positive parameters fall back to
// the defaults (5 violations, 1 hour).
func NewReputationStore(threshold int, blockFor time.Duration) *ReputationStore {
	if threshold <= 0 {
		threshold = DefaultBlockThreshold
	}
	if blockFor <= 0 {
		blockFor = DefaultBlockDuration
	}
	return &ReputationStore{
		entries:   make(map[string]*IPReputation),
		threshold: threshold,
		blockFor:  blockFor,
		now:       time.Now,
		sample:    rand.Float64,
	}
}

// Lookup returns the current reputation for ip, if any.
func (s *ReputationStore) Lookup(ip string) (IPReputation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[ip]
	if !ok {
		return IPReputation{}, false
	}
	return *e, true
}

// RecordViolation increments the violation count for ip and flips the entry
// to blocked once the threshold is reached.
func (s *ReputationStore) RecordViolation(ip string) {
	if ip == "" {
		return
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sample() < sweepProbability {
		s.sweepLocked(now)
	}

	e, ok := s.entries[ip]
	if !ok {
		e = &IPReputation{}
		s.entries[ip] = e
	}
	e.Violations++
	e.LastViolation = now
	if e.Violations >= s.threshold {
		e.Blocked = true
	}
}

// IsBlocked reports whether ip is currently blocked. Expired entries are
// removed lazily here, so blocks lift without any background task.
func (s *ReputationStore) IsBlocked(ip string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[ip]
	if !ok {
		return false
	}
	if !now.Before(e.LastViolation.Add(s.blockFor)) {
		delete(s.entries, ip)
		return false
	}
	return e.Blocked
}

// Block is the administrative override. A zero duration applies the default
// block duration; a custom duration is expressed by backdating the last
// violation so natural expiry lands at now+duration.
func (s *ReputationStore) Block(ip string, duration time.Duration) {
	if ip == "" {
		return
	}
	now := s.now()
	last := now
	if duration > 0 && duration != s.blockFor {
		last = now.Add(duration - s.blockFor)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[ip] = &IPReputation{
		Violations:    s.threshold,
		LastViolation: last,
		Blocked:       true,
	}
}

// Unblock removes the entry for ip entirely.
func (s *ReputationStore) Unblock(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, ip)
}

// Sweep removes every expired entry and returns how many were dropped.
func (s *ReputationStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *ReputationStore) sweepLocked(now time.Time) int {
	removed := 0
	for ip, e := range s.entries {
		if !now.Before(e.LastViolation.Add(s.blockFor)) {
			delete(s.entries, ip)
			removed++
		}
	}
	return removed
}

// SetClock replaces the time source. Intended for tests.
func (s *ReputationStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
