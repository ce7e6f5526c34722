// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package logging

import (
	"net"
	"strings"
)

// RedactSecret keeps the first 4 characters of a token or session ID.
func RedactSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + "[REDACTED]"
}

// MaskIP zeroes the host part of a visitor address: the last octet for IPv4
// and the last 80 bits for IPv6. Unparseable input is returned as "invalid".
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}
	parsed := net.ParseIP(strings.Trim(ip, "[]"))
	if parsed == nil {
		return "invalid"
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}
	return parsed.Mask(net.CIDRMask(48, 128)).String()
}

// TruncateUserAgent limits user agent strings stored in log lines.
func TruncateUserAgent(ua string) string {
	const maxLen = 120
	if len(ua) <= maxLen {
		return ua
	}
	return ua[:maxLen] + "..."
}
