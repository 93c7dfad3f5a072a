package guard

import (
	"net/netip"
	"net/url"
	"strings"
)

// URL inspection reasons.
const (
	ReasonInvalidFormat   = "invalid-format"
	ReasonInvalidProtocol = "invalid-protocol"
	ReasonPrivateAddress  = "private-address"
	ReasonSuspiciousTLD   = "suspicious-tld"
)

// URLDecision is the outcome of inspecting a single URL.
type URLDecision struct {
	WellFormed bool
	Safe       bool
	Reason     string
}

var suspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf", ".gq"}

// InspectURL parses and classifies a URL. It is pure and stateless.
func InspectURL(raw string) URLDecision {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" {
		return URLDecision{Reason: ReasonInvalidFormat}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return URLDecision{Reason: ReasonInvalidProtocol}
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return URLDecision{Reason: ReasonInvalidFormat}
	}
	if isPrivateHost(host) {
		return URLDecision{WellFormed: true, Reason: ReasonPrivateAddress}
	}

	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			return URLDecision{WellFormed: true, Reason: ReasonSuspiciousTLD}
		}
	}

	return URLDecision{WellFormed: true, Safe: true}
}

// isPrivateHost reports whether the host is localhost, a loopback address, or
// an RFC1918 address. The 172.16/12 range boundaries are exact: 172.15.x is
// public, 172.16.x through 172.31.x are private, 172.32.x is public again.
func isPrivateHost(host string) bool {
	if host == "localhost" {
		return true
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate()
}
