package guard

import "regexp"

// The catalogues below are data, not code: swap the tables without touching
// the classifier. All patterns are compiled once at package init.

// vulgarWords is matched whole-word, case-insensitive. Matches are masked in
// the sanitized copy and never echoed back in violation messages.
var vulgarWords = []string{
	// Strong profanities
	"fuck", "shit", "asshole", "motherfucker", "dickhead", "twat", "wanker",
	"cunt", "pussy", "bollocks", "arsehole", "bastard", "bitch",
	// Sexual content
	"sex", "porn", "xxx", "nude", "naked", "horny", "slut", "whore",
	"cock", "dick", "dildo", "vibrator", "orgasm", "ejaculate",
	// Drug references
	"cocaine", "heroin", "meth", "methamphetamine", "crack", "weed", "marijuana",
	// Extreme insults
	"retard", "idiot", "stupid", "dumb", "moron", "imbecile",
	// Slurs (partial list)
	"nigger", "faggot", "dyke", "spic", "chink", "gook", "kike",
	// Additional offensive terms
	"rape", "rapist", "pedophile", "pedo", "child abuse", "incest",
}

// spamPatterns catch multi-word commercial spam phrases.
var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:click\s+here|buy\s+now|limited\s+offer|act\s+now|free\s+money|order\s+now)`),
	regexp.MustCompile(`(?i)(?:congratulations|you\s+won|claim\s+prize|lottery|inheritance|jackpot)`),
	regexp.MustCompile(`(?i)(?:viagra|cialis|casino|poker|blackjack|slots|betting|gambling)`),
	regexp.MustCompile(`(?i)(?:weight\s+loss|diet\s+pill|miracle\s+cure|guaranteed|lose\s+weight)`),
	regexp.MustCompile(`(?i)(?:work\s+from\s+home|make\s+money\s+fast|easy\s+cash|get\s+rich)`),
	regexp.MustCompile(`(?i)(?:bitcoin|crypto|ethereum|nft|blockchain|defi|token)`),
	regexp.MustCompile(`(?i)(?:forex|trading|stock\s+tip|investment\s+opportunity)`),
	regexp.MustCompile(`(?i)(?:click\s+link|visit\s+site|download\s+now|install\s+app)`),
}

// maliciousURLPatterns are applied to each URL substring found in a message.
var maliciousURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:bit\.ly|tinyurl|short\.link|goo\.gl|ow\.ly|is\.gd)`), // URL shorteners
	regexp.MustCompile(`(?i)(?:phishing|malware|trojan|virus|ransomware|exploit)`),  // Malware keywords
	regexp.MustCompile(`(?i)(?:\.tk|\.ml|\.ga|\.cf|\.gq)`),                          // Suspicious TLDs
	regexp.MustCompile(`(?i)(?:pastebin|pastie|hastebin)`),                          // Paste services
}

// suspiciousPatterns cover XSS, SQL injection, code execution, and encoding
// tricks used to smuggle payloads.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:<script|javascript:|onerror=|onclick=|onload=)`),
	regexp.MustCompile(`(?i)(?:union\s+select|drop\s+table|insert\s+into|delete\s+from)`),
	regexp.MustCompile(`(?i)(?:eval\(|exec\(|system\(|passthru\()`),
	regexp.MustCompile(`(?i)(?:base64_decode|atob|decodeURIComponent)`),
}

var (
	urlPattern   = regexp.MustCompile(`(?i)https?://\S+`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	// Runs of doubled terminal punctuation, e.g. "!!" or "??!".
	punctRunPattern = regexp.MustCompile(`[!?]{2,}`)
	newlineRun      = regexp.MustCompile(`\n{5,}`)
)
