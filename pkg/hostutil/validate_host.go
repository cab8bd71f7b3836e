// Package hostutil validates the host:port addresses the simulator
// binds and dials.
package hostutil

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"unicode"
)

// ValidateListenAddr checks a host:port listen address. An empty host
// (":8750") binds every interface and is fine.
func ValidateListenAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("bad listen address '%s': %w", addr, err)
	}
	if err := validatePort(port); err != nil {
		return fmt.Errorf("bad listen address '%s': %w", addr, err)
	}
	if host == "" {
		return nil
	}
	return ValidateHost(host)
}

// ValidateDialAddr checks a host:port dial target. Unlike a listen
// address, the host part is required.
func ValidateDialAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("bad dial address '%s': %w", addr, err)
	}
	if err := validatePort(port); err != nil {
		return fmt.Errorf("bad dial address '%s': %w", addr, err)
	}
	if host == "" {
		return fmt.Errorf("bad dial address '%s': host is required", addr)
	}
	return ValidateHost(host)
}

func validatePort(raw string) error {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port '%s' outside 1-65535", raw)
	}
	return nil
}

// ValidateHost accepts an IPv4/IPv6 literal or an RFC 1123 hostname.
// Anything shaped like an IP literal must parse as one: "300.1.1.1" is
// a bad IP, not a hostname.
func ValidateHost(raw string) error {
	switch {
	case looksLikeIPv4(raw):
		if ip := net.ParseIP(raw); ip == nil || ip.To4() == nil {
			return fmt.Errorf("bad IP: '%s'", raw)
		}
	case strings.Contains(raw, ":"):
		if ip := net.ParseIP(raw); ip == nil || ip.To4() != nil {
			return fmt.Errorf("bad IPv6: '%s'", raw)
		}
	default:
		if !validHostname(raw) {
			return fmt.Errorf("bad hostname: '%s'", raw)
		}
	}
	return nil
}

// looksLikeIPv4 reports whether raw is a dotted quad of digits.
func looksLikeIPv4(raw string) bool {
	parts := strings.Split(raw, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}

// validHostname checks DNS label rules (RFC 1123).
func validHostname(raw string) bool {
	if len(raw) < 1 || len(raw) > 253 {
		return false
	}
	for _, label := range strings.Split(raw, ".") {
		if len(label) < 1 || len(label) > 63 {
			return false
		}
		for i, r := range label {
			if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-') {
				return false
			}
			// no leading/trailing hyphen
			if (i == 0 || i == len(label)-1) && r == '-' {
				return false
			}
		}
	}
	return true
}
