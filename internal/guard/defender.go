package guard

import (
	"fmt"
	"strings"
	"time"
)

// AnonymousIdentity is the rate-limit key used when the caller supplies none.
const AnonymousIdentity = "anonymous"

// User-facing decision messages.
const (
	MsgBlocked = "Your IP address has been temporarily blocked due to suspicious activity. Please try again later."
	MsgPassed  = "Message passed security checks"
)

// Decision is the full outcome of running one message through the pipeline.
type Decision struct {
	Valid             bool
	Message           string
	Violations        []string
	Sanitized         string
	RemainingMessages int
	ResetAt           time.Time
	Blocked           bool
}

// Defender composes the defense layers for the chat path:
// blocked-IP gate (fail closed), rate limit, then content classification
// (fail open). It owns no state of its own; all state lives in the stores.
type Defender struct {
	classifier *Classifier
	limiter    *RateLimiter
	reputation *ReputationStore
	now        func() time.Time
}

func NewDefender(classifier *Classifier, limiter *RateLimiter, reputation *ReputationStore) *Defender {
	return &Defender{
		classifier: classifier,
		limiter:    limiter,
		reputation: reputation,
		now:        time.Now,
	}
}

// ValidateMessage runs the full pipeline for one inbound chat message.
func (d *Defender) ValidateMessage(content, identity, ipAddress string) Decision {
	if identity == "" {
		identity = AnonymousIdentity
	}

	if ipAddress != "" && d.reputation.IsBlocked(ipAddress) {
		return Decision{
			Message:    MsgBlocked,
			Violations: []string{},
			Sanitized:  content,
			Blocked:    true,
		}
	}

	rate := d.limiter.Check(identity, ipAddress)
	if !rate.Allowed {
		wait := int((rate.ResetAt.Sub(d.now()) + time.Second - 1) / time.Second)
		if wait < 0 {
			wait = 0
		}
		return Decision{
			Message:    fmt.Sprintf("Too many messages. Please wait %d seconds.", wait),
			Violations: []string{},
			Sanitized:  content,
			ResetAt:    rate.ResetAt,
		}
	}

	res := d.classifier.Validate(content)
	decision := Decision{
		Valid:             res.Valid,
		Violations:        res.Violations,
		Sanitized:         res.Sanitized,
		RemainingMessages: rate.Remaining,
		ResetAt:           rate.ResetAt,
	}
	if decision.Violations == nil {
		decision.Violations = []string{}
	}

	if res.Valid {
		decision.Message = MsgPassed
	} else {
		decision.Message = "Message validation failed: " + strings.Join(res.Violations, "; ")
	}
	return decision
}

// ValidateFreeText classifies text outside the chat path (quote form fields).
// No rate limiting applies; the form has its own anti-abuse posture.
func (d *Defender) ValidateFreeText(text string) Result {
	return d.classifier.Validate(text)
}

// Reputation exposes the IP reputation store for the admin surface.
func (d *Defender) Reputation() *ReputationStore {
	return d.reputation
}

// Sweep expires stale rate-limit and reputation entries.
func (d *Defender) Sweep(now time.Time) {
	d.limiter.Sweep(now)
	d.reputation.Sweep(now)
}

// SetClock replaces the time source on the defender and both stores.
// Intended for tests.
func (d *Defender) SetClock(now func() time.Time) {
	d.now = now
	d.limiter.SetClock(now)
	d.reputation.SetClock(now)
}
