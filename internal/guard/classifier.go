package guard

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"
)

// Violation codes are stable identifiers. They never contain user input, so
// they are safe to log and to reflect back to clients.
const (
	ViolationEmpty         = "empty-message"
	ViolationTooLong       = "message-too-long"
	ViolationNewlines      = "excessive-newlines"
	ViolationRepetition    = "excessive-repetition"
	ViolationSuspicious    = "suspicious-content"
	ViolationInappropriate = "inappropriate-language"
	ViolationSpam          = "spam-keywords"
	ViolationCaps          = "excessive-capitalization"
	ViolationPunctuation   = "excessive-punctuation"
	ViolationSuspiciousURL = "suspicious-url"
	ViolationTooManyURLs   = "too-many-urls"
	ViolationTooManyEmails = "too-many-emails"
	ViolationTooManyPhones = "too-many-phones"

	// ViolationInternalSkipped marks a classifier run that hit an internal
	// failure. The message is accepted in that case; the rate limiter and
	// IP reputation layers still gate abuse.
	ViolationInternalSkipped = "internal-check-skipped"
)

// Result is the outcome of classifying one message.
type Result struct {
	Valid      bool
	Sanitized  string
	Violations []string
}

// Classifier runs the static rule catalogue over message text. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	maxLength int
	vulgar    []*regexp.Regexp
}

const DefaultMaxMessageLength = 1000

// NewClassifier compiles the catalogues. maxLength is in code points;
// non-positive values fall back to the default.
func NewClassifier(maxLength int) *Classifier {
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}

	vulgar := make([]*regexp.Regexp, 0, len(vulgarWords))
	for _, word := range vulgarWords {
		vulgar = append(vulgar, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}

	return &Classifier{maxLength: maxLength, vulgar: vulgar}
}

// Validate runs every rule and returns the full violation list; rules do not
// short-circuit so callers can present all problems at once. The sanitized
// copy is produced regardless of validity. Sanitization is idempotent: masked
// runs of '*' never re-match the profanity catalogue.
func (c *Classifier) Validate(text string) (res Result) {
	// Fail open on internal failure: the outer layers still gate abuse.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("classifier check failed", "panic", r)
			res = Result{Valid: true, Sanitized: text, Violations: []string{ViolationInternalSkipped}}
		}
	}()

	var violations []string
	sanitized := text
	runes := []rune(text)

	if strings.TrimSpace(text) == "" {
		violations = append(violations, ViolationEmpty)
	}
	if len(runes) > c.maxLength {
		violations = append(violations, ViolationTooLong)
	}

	if newlineRun.MatchString(text) {
		violations = append(violations, ViolationNewlines)
	}

	if hasCharacterRun(runes, 10) {
		violations = append(violations, ViolationRepetition)
	}

	for _, p := range suspiciousPatterns {
		if p.MatchString(text) {
			violations = append(violations, ViolationSuspicious)
			break
		}
	}

	if masked, found := c.maskVulgarity(sanitized); found {
		violations = append(violations, ViolationInappropriate)
		sanitized = masked
	}

	for _, p := range spamPatterns {
		if p.MatchString(text) {
			violations = append(violations, ViolationSpam)
			break
		}
	}

	if len(runes) > 10 && uppercaseFraction(runes) > 0.7 {
		violations = append(violations, ViolationCaps)
	}

	if len(punctRunPattern.FindAllString(text, -1)) > 3 {
		violations = append(violations, ViolationPunctuation)
	}

	urls := urlPattern.FindAllString(text, -1)
	if hasMaliciousURL(urls) {
		violations = append(violations, ViolationSuspiciousURL)
	}
	if len(urls) > 3 {
		violations = append(violations, ViolationTooManyURLs)
	}

	if len(emailPattern.FindAllString(text, -1)) > 2 {
		violations = append(violations, ViolationTooManyEmails)
	}
	if len(phonePattern.FindAllString(text, -1)) > 2 {
		violations = append(violations, ViolationTooManyPhones)
	}

	return Result{
		Valid:      len(violations) == 0,
		Sanitized:  sanitized,
		Violations: violations,
	}
}

// maskVulgarity replaces each catalogue match with a same-length run of '*'.
func (c *Classifier) maskVulgarity(text string) (string, bool) {
	found := false
	for _, re := range c.vulgar {
		if !re.MatchString(text) {
			continue
		}
		found = true
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			return strings.Repeat("*", len([]rune(m)))
		})
	}
	return text, found
}

// hasCharacterRun reports whether any rune repeats at least n times in a row.
// RE2 has no backreferences, so this is a plain scan.
func hasCharacterRun(runes []rune, n int) bool {
	run := 0
	var prev rune
	for i, r := range runes {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

func uppercaseFraction(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	upper := 0
	for _, r := range runes {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(len(runes))
}

func hasMaliciousURL(urls []string) bool {
	for _, u := range urls {
		for _, p := range maliciousURLPatterns {
			if p.MatchString(u) {
				return true
			}
		}
	}
	return false
}
