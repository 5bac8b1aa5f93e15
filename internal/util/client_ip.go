package util

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the caller IP used as a rate-limit key. The first
// X-Forwarded-For hop wins when present (the service runs behind a single
// reverse proxy); otherwise the direct peer address is used.
func ClientIP(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
