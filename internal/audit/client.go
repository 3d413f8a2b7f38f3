package audit

import "strings"

// ClientAddress picks the most trustworthy client IP available, in order:
// the framework-resolved client IP, the first hop of X-Forwarded-For,
// X-Real-IP, the transport-level peer address, then "unknown". Loopback is
// reported as-is: an admin calling from the host itself is still an
// auditable actor.
func ClientAddress(explicitIP, forwardedFor, realIP, remoteAddr string) string {
	if explicitIP != "" {
		return explicitIP
	}
	if forwardedFor != "" {
		first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
		if first != "" {
			return first
		}
	}
	if realIP != "" {
		return realIP
	}
	if remoteAddr != "" {
		return remoteAddr
	}
	return "unknown"
}

// UserAgentOrUnknown normalizes an empty user agent.
func UserAgentOrUnknown(userAgent string) string {
	if userAgent == "" {
		return "unknown"
	}
	return userAgent
}
