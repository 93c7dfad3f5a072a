// Package captcha issues and verifies math challenges that gate chat access,
// and scores user agents for bot-like behavior.
package captcha

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	mathrand "math/rand/v2"
	"strconv"
	"sync"
	"time"
)

const (
	DefaultExpiry      = 5 * time.Minute
	DefaultMaxAttempts = 3

	// sweepProbability is the chance a mutation also sweeps expired sessions.
	sweepProbability = 0.1
)

// Verify outcome messages.
const (
	MsgUnknownToken = "unknown-token"
	MsgExpired      = "expired"
	MsgExhausted    = "exhausted"
	MsgIncorrect    = "incorrect"
	MsgOK           = "ok"
)

// challenges is the fixed question catalogue.
var challenges = []struct {
	question string
	answer   string
}{
	{"What is 5 + 3?", "8"},
	{"What is 12 - 4?", "8"},
	{"What is 6 × 2?", "12"},
	{"What is 15 ÷ 3?", "5"},
	{"What is 7 + 8?", "15"},
	{"What is 20 - 7?", "13"},
	{"What is 9 × 3?", "27"},
	{"What is 24 ÷ 4?", "6"},
	{"What is 11 + 9?", "20"},
	{"What is 25 - 10?", "15"},
}

// Challenge is what the client receives on issuance. The expected answer is
// bound to the stored session, never sent to the client.
type Challenge struct {
	Token    string
	Question string
	Options  []string
}

// VerifyResult reports one verification attempt.
type VerifyResult struct {
	Verified          bool
	Message           string
	RemainingAttempts int
}

type session struct {
	expectedAnswer string
	verified       bool
	createdAt      time.Time
	expiresAt      time.Time
	attempts       int
}

// Store holds live CAPTCHA sessions in memory. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session

	expiry      time.Duration
	maxAttempts int

	now    func() time.Time
	sample func() float64
	intN   func(n int) int
}

// NewStore creates a session store. Non-positive parameters fall back to the
// defaults (5 minutes, 3 attempts).
func NewStore(expiry time.Duration, maxAttempts int) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Store{
		sessions:    make(map[string]*session),
		expiry:      expiry,
		maxAttempts: maxAttempts,
		now:         time.Now,
		sample:      mathrand.Float64,
		intN:        mathrand.IntN,
	}
}

// Issue creates a challenge: a 128-bit token from the system CSPRNG, a
// question drawn from the catalogue, and the correct answer shuffled among
// three distinct numeric distractors.
func (s *Store) Issue() (Challenge, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return Challenge{}, err
	}
	token := hex.EncodeToString(buf)

	picked := challenges[s.intN(len(challenges))]

	seen := map[string]bool{picked.answer: true}
	options := []string{picked.answer}
	for len(options) < 4 {
		distractor := strconv.Itoa(s.intN(50) + 1)
		if seen[distractor] {
			continue
		}
		seen[distractor] = true
		options = append(options, distractor)
	}
	mathrand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	now := s.now()

	s.mu.Lock()
	if s.sample() < sweepProbability {
		s.sweepLocked(now)
	}
	s.sessions[token] = &session{
		expectedAnswer: picked.answer,
		createdAt:      now,
		expiresAt:      now.Add(s.expiry),
	}
	s.mu.Unlock()

	return Challenge{Token: token, Question: picked.question, Options: options}, nil
}

// Verify checks an answer against the session's expected answer using a
// constant-time compare. Expired and exhausted sessions are deleted. On
// success the session stays alive until the caller consumes it via
// Invalidate.
func (s *Store) Verify(token, answer string) VerifyResult {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return VerifyResult{Message: MsgUnknownToken}
	}

	if now.After(sess.expiresAt) {
		delete(s.sessions, token)
		return VerifyResult{Message: MsgExpired}
	}

	if sess.attempts >= s.maxAttempts {
		delete(s.sessions, token)
		return VerifyResult{Message: MsgExhausted}
	}

	if subtle.ConstantTimeCompare([]byte(answer), []byte(sess.expectedAnswer)) == 1 {
		sess.verified = true
		return VerifyResult{
			Verified:          true,
			Message:           MsgOK,
			RemainingAttempts: s.maxAttempts - sess.attempts,
		}
	}

	sess.attempts++
	return VerifyResult{
		Message:           MsgIncorrect,
		RemainingAttempts: s.maxAttempts - sess.attempts,
	}
}

// IsVerified reports whether the token belongs to a live, verified session.
func (s *Store) IsVerified(token string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return false
	}
	if now.After(sess.expiresAt) {
		delete(s.sessions, token)
		return false
	}
	return sess.verified
}

// Invalidate removes the session. Callers do this after consuming a
// verified token.
func (s *Store) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *Store) sweepLocked(now time.Time) int {
	removed := 0
	for token, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// SetClock replaces the time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
