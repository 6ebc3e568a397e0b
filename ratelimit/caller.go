package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// CallerID derives the rate-limit key for a request: the first
// X-Forwarded-For entry when trustForwarded is set, else the remote host,
// else UnknownCaller.
//
// X-Forwarded-For is client controlled. Only trust it behind a proxy that
// overwrites the header.
func CallerID(r *http.Request, trustForwarded bool) string {
	if r == nil {
		return UnknownCaller
	}
	if trustForwarded {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	return RemoteHost(r.RemoteAddr)
}

// RemoteHost strips the port from a remote address.
func RemoteHost(addr string) string {
	if addr == "" {
		return UnknownCaller
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		if host == "" {
			return UnknownCaller
		}
		return host
	}
	if host := strings.Trim(addr, "[]"); host != "" {
		return host
	}
	return UnknownCaller
}
