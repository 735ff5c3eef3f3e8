package ratelimiter

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// KeyFunc extracts a rate limit key from the request.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by client address. The first valid address in
// X-Forwarded-For or X-Real-IP wins, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for ip := range strings.SplitSeq(forwarded, ",") {
			if parsed := parseIP(ip); parsed != "" {
				return parsed
			}
		}
	}
	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}

// Middleware rejects requests over the limit. Rejected requests get
// Retry-After and are passed to onLimited, or answered with a plain 429 when
// onLimited is nil.
func Middleware(l *Limiter, keyFunc KeyFunc, onLimited http.Handler) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	if onLimited == nil {
		onLimited = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := l.Allow(keyFunc(r))
			if l != nil {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			}

			if !result.Allowed() {
				retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(1, retryAfter)))
				onLimited.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
