package middleware

import (
	"net"
	"net/http"
)

// GetClientIP returns the host part of RemoteAddr. Forwarding headers are not
// read here; when the app runs behind a trusted proxy the router installs
// chi's RealIP, which rewrites RemoteAddr first.
func GetClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
