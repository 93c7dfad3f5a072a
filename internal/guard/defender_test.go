package guard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDefender() (*Defender, *fakeClock) {
	clock := newFakeClock()
	rep := NewReputationStore(5, time.Hour)
	rep.sample = func() float64 { return 1 }
	lim := NewRateLimiter(time.Minute, 10, rep)
	lim.sample = func() float64 { return 1 }
	d := NewDefender(NewClassifier(1000), lim, rep)
	d.SetClock(clock.Now)
	return d, clock
}

func TestDefender_CleanMessagePasses(t *testing.T) {
	d, _ := newTestDefender()

	dec := d.ValidateMessage("Hello, I would like to know about your products.", "u1", "203.0.113.1")

	assert.True(t, dec.Valid)
	assert.Empty(t, dec.Violations)
	assert.Equal(t, MsgPassed, dec.Message)
	assert.Equal(t, 9, dec.RemainingMessages)
	assert.False(t, dec.Blocked)
}

func TestDefender_VulgarMessageSanitized(t *testing.T) {
	d, _ := newTestDefender()

	d.ValidateMessage("Hello, I would like to know about your products.", "u1", "203.0.113.1")
	dec := d.ValidateMessage("This is a fuck test.", "u1", "203.0.113.1")

	assert.False(t, dec.Valid)
	assert.Equal(t, "This is a **** test.", dec.Sanitized)
	assert.Equal(t, []string{ViolationInappropriate}, dec.Violations)
	assert.Equal(t, 8, dec.RemainingMessages)
	assert.Contains(t, dec.Message, "Message validation failed")
}

func TestDefender_AllCapsRejected(t *testing.T) {
	d, _ := newTestDefender()

	dec := d.ValidateMessage("THIS IS A VERY LONG MESSAGE IN ALL CAPS WHICH IS SPAM", "u2", "203.0.113.2")

	assert.False(t, dec.Valid)
	assert.Contains(t, dec.Violations, ViolationCaps)
}

func TestDefender_RateLimitOverflow(t *testing.T) {
	d, _ := newTestDefender()

	for i := 0; i < 10; i++ {
		dec := d.ValidateMessage(fmt.Sprintf("clean message number %d", i), "u3", "203.0.113.3")
		require.True(t, dec.Valid, "message %d", i+1)
	}

	dec := d.ValidateMessage("clean message number 11", "u3", "203.0.113.3")
	assert.False(t, dec.Valid)
	assert.Equal(t, 0, dec.RemainingMessages)
	assert.Contains(t, dec.Message, "Too many messages")

	got, found := d.Reputation().Lookup("203.0.113.3")
	require.True(t, found)
	assert.Equal(t, 1, got.Violations)
}

func TestDefender_RateLimitWaitSeconds(t *testing.T) {
	d, clock := newTestDefender()

	for i := 0; i < 11; i++ {
		d.ValidateMessage("hello there friend", "u6", "")
	}
	clock.Advance(30 * time.Second)

	dec := d.ValidateMessage("hello again", "u6", "")
	assert.Equal(t, "Too many messages. Please wait 30 seconds.", dec.Message)
}

func TestDefender_RepeatedOverflowBlocksIP(t *testing.T) {
	d, clock := newTestDefender()

	// Five windows, each driven past the limit, accumulate five violations.
	for round := 0; round < 5; round++ {
		for i := 0; i < 11; i++ {
			d.ValidateMessage("perfectly ordinary question", "u3", "203.0.113.3")
		}
		clock.Advance(time.Minute)
	}

	assert.True(t, d.Reputation().IsBlocked("203.0.113.3"))

	// Blocked IP is denied regardless of content, for any identity.
	dec := d.ValidateMessage("Hello, I would like to know about your products.", "someone-else", "203.0.113.3")
	assert.True(t, dec.Blocked)
	assert.False(t, dec.Valid)
	assert.Equal(t, MsgBlocked, dec.Message)
}

func TestDefender_ViolationVisibleToSameRequestChain(t *testing.T) {
	d, _ := newTestDefender()

	for i := 0; i < 4; i++ {
		d.Reputation().RecordViolation("203.0.113.8")
	}
	for i := 0; i < 10; i++ {
		d.ValidateMessage("hello", "u9", "203.0.113.8")
	}

	// The overflow records the fifth violation; IsBlocked sees it immediately.
	dec := d.ValidateMessage("hello", "u9", "203.0.113.8")
	assert.False(t, dec.Valid)
	assert.True(t, d.Reputation().IsBlocked("203.0.113.8"))
}

func TestDefender_EmptyIdentityIsAnonymous(t *testing.T) {
	d, _ := newTestDefender()

	for i := 0; i < 10; i++ {
		d.ValidateMessage("hello", "", "")
	}

	// Anonymous callers share one bucket.
	dec := d.ValidateMessage("hello", AnonymousIdentity, "")
	assert.Contains(t, dec.Message, "Too many messages")
}

func TestDefender_FreeTextSkipsRateLimit(t *testing.T) {
	d, _ := newTestDefender()

	for i := 0; i < 50; i++ {
		res := d.ValidateFreeText("High quality preferred")
		assert.True(t, res.Valid)
	}
}
