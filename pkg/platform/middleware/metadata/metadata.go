package metadata

import (
	"net"
	"net/http"
	"strings"

	"biblioteca/pkg/requestcontext"
)

// ClientMetadata extracts client IP address and Host from the request
// and adds them to the context for use by handlers and services.
// Apply it before any middleware that attributes writes.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), HostFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest prefers the first X-Forwarded-For entry and falls back to
// the transport peer address.
func ClientIPFromRequest(r *http.Request) string {
	return ClientIP(r.Header.Get("X-Forwarded-For"), r.RemoteAddr)
}

// ClientIP derives the client address from a forwarded-for header value and a
// peer address. The forwarded-for list is "client, proxy1, proxy2".
func ClientIP(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if remoteAddr == "" {
		return ""
	}
	// RemoteAddr is "ip:port" or "[ipv6]:port"
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// HostFromRequest returns the Host header, or the system actor name when absent.
func HostFromRequest(r *http.Request) string {
	return HostOrDefault(r.Host)
}

// HostOrDefault substitutes requestcontext.SystemActor for an empty host.
func HostOrDefault(host string) string {
	if host = strings.TrimSpace(host); host != "" {
		return host
	}
	return requestcontext.SystemActor
}
