package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig holds configuration for IP extraction and validation
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies
}

// Proxy headers consulted in priority order. X-Forwarded-For is handled
// separately because it can carry a hop list.
var clientIPHeaders = []string{
	"X-Real-IP",
	"CF-Connecting-IP", // Cloudflare
	"True-Client-IP",   // Akamai
	"X-Client-IP",
}

// ExtractClientIP resolves the real client IP address from the request.
// Proxy headers are spoofable, so they are only honored when the direct peer
// is inside a trusted proxy CIDR range.
//
// Flow:
// 1. If request is from a trusted proxy, take the first valid hop of
//    X-Forwarded-For
// 2. Otherwise walk X-Real-IP, CF-Connecting-IP, True-Client-IP, X-Client-IP
// 3. Fall back to RemoteAddr
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := getRemoteAddr(r)

	if config == nil || !isTrustedProxy(remoteIP, config.TrustedProxies) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if isValidIP(ip) {
				return ip
			}
		}
	}

	for _, header := range clientIPHeaders {
		if ip := strings.TrimSpace(r.Header.Get(header)); ip != "" && isValidIP(ip) {
			return ip
		}
	}

	return remoteIP
}

// getRemoteAddr extracts the IP address from RemoteAddr (removing port if present)
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr != "" {
		// RemoteAddr may include port: "ip:port"
		if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return ip
		}
		return r.RemoteAddr
	}
	return "unknown"
}

// isTrustedProxy checks if an IP address is within any of the trusted proxy CIDR ranges
func isTrustedProxy(ip string, trustedProxies []string) bool {
	if len(trustedProxies) == 0 {
		return false
	}

	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue // Skip invalid CIDR ranges
		}
		if ipNet.Contains(clientIP) {
			return true
		}
	}

	return false
}

// isValidIP checks if a string is a valid IPv4 or IPv6 address
func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
