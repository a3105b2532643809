package storefront

import (
	"net"
	"strings"
)

// hostAllowed matches host against patterns. A pattern of "*" matches any
// host, a pattern starting with "." matches the domain and its subdomains,
// anything else must match exactly. Matching ignores case and port.
func hostAllowed(host string, patterns []string) bool {
	host = strings.ToLower(stripPort(host))
	if host == "" {
		return false
	}
	host = strings.TrimSuffix(host, ".")

	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		switch {
		case p == "":
			continue
		case p == "*":
			return true
		case strings.HasPrefix(p, "."):
			if host == p[1:] || strings.HasSuffix(host, p) {
				return true
			}
		case host == p:
			return true
		}
	}
	return false
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return strings.Trim(h, "[]")
	}
	return strings.Trim(host, "[]")
}
