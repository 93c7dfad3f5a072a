package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

const clientIPKey contextKey = "client_ip"

// RealIP resolves the client IP for each request and stores it in the
// context. X-Forwarded-For is only trusted when the direct peer is one of
// the configured trusted proxies; otherwise attackers could spoof the
// header to dodge rate limiting and IP reputation.
func RealIP(trustedProxies []string) func(http.Handler) http.Handler {
	trusted := make(map[string]bool, len(trustedProxies))
	for _, p := range trustedProxies {
		trusted[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trusted)
			ctx := context.WithValue(r.Context(), clientIPKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIP returns the resolved client IP from the context, or "" if the
// RealIP middleware did not run.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok {
		return ip
	}
	return ""
}

func clientIP(r *http.Request, trustedProxies map[string]bool) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}

	if !trustedProxies[peer] {
		return peer
	}

	// Take the left-most address the trusted proxy reported.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	return peer
}
