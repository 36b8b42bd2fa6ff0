// Package allowlist decides whether an outbound SCIM target host may be
// contacted. Patterns are exact hostnames, "*.domain" wildcards, or IPv4
// CIDR blocks.
package allowlist

import (
	"strconv"
	"strings"
)

// Match reports whether hostname is permitted by at least one pattern.
// An empty hostname or an empty pattern list never matches. Matching is
// case-insensitive and the first matching pattern wins.
func Match(hostname string, patterns []string) bool {
	if hostname == "" || len(patterns) == 0 {
		return false
	}

	host := strings.ToLower(strings.TrimSpace(hostname))

	for _, p := range patterns {
		pattern := strings.ToLower(strings.TrimSpace(p))
		if pattern == "" {
			continue
		}

		switch {
		case strings.Contains(pattern, "/"):
			if matchCIDR(host, pattern) {
				return true
			}
		case strings.HasPrefix(pattern, "*."):
			suffix := pattern[2:]
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
		default:
			if host == pattern {
				return true
			}
		}
	}

	return false
}

// matchCIDR checks a dotted-quad host against a "network/bits" pattern.
// Malformed patterns and non-IPv4 hosts are treated as non-matching.
func matchCIDR(host, pattern string) bool {
	parts := strings.SplitN(pattern, "/", 2)
	if len(parts) != 2 {
		return false
	}

	bits, err := strconv.Atoi(parts[1])
	if err != nil || bits < 0 || bits > 32 {
		return false
	}

	network, ok := parseIPv4(parts[0])
	if !ok {
		return false
	}
	ip, ok := parseIPv4(host)
	if !ok {
		return false
	}

	mask := uint32(0xFFFFFFFF)
	if bits < 32 {
		mask <<= uint(32 - bits)
	}

	return ip&mask == network&mask
}

// parseIPv4 converts a dotted-quad string to a 32-bit integer.
func parseIPv4(s string) (uint32, bool) {
	octets := strings.Split(s, ".")
	if len(octets) != 4 {
		return 0, false
	}

	var ip uint32
	for _, o := range octets {
		if o == "" || len(o) > 3 {
			return 0, false
		}
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 || n > 255 {
			return 0, false
		}
		ip = ip<<8 | uint32(n)
	}
	return ip, true
}
