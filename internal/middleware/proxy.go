package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// TrustedProxies installs an IP extractor that honors X-Real-IP and
// X-Forwarded-For, but only when the TCP peer is inside one of the given
// CIDR ranges. Anything arriving directly from the internet is identified
// by its socket address, so clients cannot spoof their way past the per-IP
// rate limiter with a forged header.
func TrustedProxies(e *echo.Echo, cidrs []string) {
	var nets []*net.IPNet
	for _, cidr := range cidrs {
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			nets = append(nets, network)
		}
	}

	e.IPExtractor = func(req *http.Request) string {
		peer := peerAddr(req.RemoteAddr)
		if !inAnyNet(peer, nets) {
			return peer
		}

		// nginx and caddy both set X-Real-IP for the original client.
		if ip := strings.TrimSpace(req.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
		// Otherwise take the leftmost hop of X-Forwarded-For.
		if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		return peer
	}
}

// peerAddr strips the port from a socket address.
func peerAddr(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

func inAnyNet(ipStr string, nets []*net.IPNet) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
