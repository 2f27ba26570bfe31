package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

type proxyList []*net.IPNet

func parseProxies(cidrs []string) proxyList {
	var out proxyList
	for _, cidr := range cidrs {
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			out = append(out, network)
			continue
		}
		ip := net.ParseIP(cidr)
		if ip == nil {
			continue
		}
		bits := 128
		if ip.To4() != nil {
			ip, bits = ip.To4(), 32
		}
		out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return out
}

func (p proxyList) contains(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, network := range p {
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}

// ClientIP returns the address r came from. X-Forwarded-For and X-Real-IP
// are only believed when the peer is a trusted proxy.
func (l *Limiter) ClientIP(r *http.Request) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if !l.proxies.contains(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	return remote
}
