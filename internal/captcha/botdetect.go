package captcha

import (
	"net/netip"
	"regexp"
)

// Bot assessment reasons. The raw user agent is never echoed.
const (
	ReasonBotUserAgent     = "bot-user-agent"
	ReasonPrivateIP        = "private-ip"
	ReasonMissingUserAgent = "missing-user-agent"
)

// botThreshold is the confidence at which a caller is treated as a bot.
const botThreshold = 0.5

// BotAssessment scores how bot-like a caller looks.
type BotAssessment struct {
	IsBot      bool
	Confidence float64
	Reasons    []string
}

var botUAPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bot`),
	regexp.MustCompile(`(?i)crawler`),
	regexp.MustCompile(`(?i)spider`),
	regexp.MustCompile(`(?i)scraper`),
	regexp.MustCompile(`(?i)curl`),
	regexp.MustCompile(`(?i)wget`),
	regexp.MustCompile(`(?i)python`),
	// "java" but not "javascript": RE2 has no lookahead, so match on a
	// boundary that excludes the "script" suffix.
	regexp.MustCompile(`(?i)java($|[^s])`),
	regexp.MustCompile(`(?i)perl`),
	regexp.MustCompile(`(?i)ruby`),
	regexp.MustCompile(`(?i)go-http-client`),
}

// AssessBot applies additive heuristics over the user agent and IP.
// Confidence is capped at 1.0.
func AssessBot(userAgent, ipAddress string) BotAssessment {
	var reasons []string
	confidence := 0.0

	for _, p := range botUAPatterns {
		if p.MatchString(userAgent) {
			reasons = append(reasons, ReasonBotUserAgent)
			confidence += 0.3
			break
		}
	}

	if isPrivateIP(ipAddress) {
		reasons = append(reasons, ReasonPrivateIP)
		confidence += 0.2
	}

	if userAgent == "" {
		reasons = append(reasons, ReasonMissingUserAgent)
		confidence += 0.4
	}

	if confidence > 1 {
		confidence = 1
	}
	return BotAssessment{
		IsBot:      confidence >= botThreshold,
		Confidence: confidence,
		Reasons:    reasons,
	}
}

func isPrivateIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate()
}
