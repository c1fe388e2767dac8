package utils

import (
	"net"
	"net/http"
)

// ClientIP extracts the caller's network identifier for rate-limit keying.
// chi's RealIP middleware rewrites RemoteAddr from the forwarding headers
// before this runs.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	return host
}
