package domain

import (
	"net"
	"net/url"
	"strings"
)

// RefState is the tri-state occupancy of a slot reference.
type RefState uint8

const (
	// RefUnset means the server sent nothing (blank value).
	RefUnset RefState = iota
	// RefPlaceholder means the server sent a sentinel ("null", "false") or a
	// value that is not a well-formed URL. It is treated exactly like RefUnset.
	RefPlaceholder
	// RefPresent means the slot holds a usable reference.
	RefPresent
)

func (s RefState) String() string {
	switch s {
	case RefUnset:
		return "unset"
	case RefPlaceholder:
		return "placeholder"
	case RefPresent:
		return "present"
	default:
		return "unknown"
	}
}

// Ref is an optional slot reference. The zero value is unset.
type Ref struct {
	state RefState
	value string
	raw   string
}

// ParseRef applies the server decode rule: blank, "null" and "false" (any
// case) and values that are not well-formed web URLs are empty; everything
// else is an occupied reference. Surrounding whitespace is ignored.
func ParseRef(raw string) Ref {
	v := strings.TrimSpace(raw)
	switch {
	case v == "":
		return Ref{state: RefUnset, raw: raw}
	case strings.EqualFold(v, "null"), strings.EqualFold(v, "false"):
		return Ref{state: RefPlaceholder, raw: raw}
	case !IsWebURL(v):
		return Ref{state: RefPlaceholder, raw: raw}
	default:
		return Ref{state: RefPresent, value: v, raw: raw}
	}
}

// PresentRef builds an occupied reference without URL validation. It is used
// when a confirmed upload returns a reference (which may be a local content
// URI rather than a web URL).
func PresentRef(value string) Ref {
	if strings.TrimSpace(value) == "" {
		return Ref{}
	}
	return Ref{state: RefPresent, value: value, raw: value}
}

// State reports the tri-state occupancy.
func (r Ref) State() RefState { return r.state }

// Present reports whether the reference is occupied.
func (r Ref) Present() bool { return r.state == RefPresent }

// Value returns the reference, or "" when not present.
func (r Ref) Value() string { return r.value }

// Raw returns the untouched server value the reference was parsed from.
func (r Ref) Raw() string { return r.raw }

// IsWebURL is a permissive web-URL check: an http(s) scheme with any host, or
// a scheme-less value whose host is a dotted name, localhost or an IP literal.
// Whitespace is never allowed.
func IsWebURL(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	candidate := s
	explicit := strings.Contains(candidate, "://")
	if !explicit {
		candidate = "http://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}
	if explicit || host == "localhost" || net.ParseIP(host) != nil {
		return true
	}
	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return false
		}
	}
	return true
}
