// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package address implements the hierarchical, escape-aware address model
// used as both a routing key and a map key throughout the middleware.
package address

import "strings"

// Address is an ordered sequence of path segments, e.g. "opcua/plc1/connection"
// parses to []string{"opcua", "plc1", "connection"}.
//
// Address is a value type: two addresses with the same segments in the same
// order are equal. Because it wraps a slice it is not comparable with ==;
// use Key for map lookups or reflect-based equality in tests.
type Address struct {
	segments []string
}

// New builds an Address from a segment slice, copying it so the caller's
// slice can be mutated freely afterwards.
func New(segments ...string) Address {
	cp := make([]string, len(segments))
	copy(cp, segments)
	return Address{segments: cp}
}

// Parse splits s on unescaped "/" characters. A "\" escapes the character
// that follows it (so "\/" is a literal "/" and "\\" is a literal "\"); a
// trailing "\" is dropped. Parse never fails: the empty string parses to
// the zero-length address, and a trailing "/" yields a trailing empty
// segment rather than being normalized away.
func Parse(s string) Address {
	if s == "" {
		return Address{}
	}

	var segments []string
	var current strings.Builder

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '/':
			segments = append(segments, current.String())
			current.Reset()
		case '\\':
			if i+1 < len(runes) {
				i++
				current.WriteRune(runes[i])
			}
		default:
			current.WriteRune(runes[i])
		}
	}
	segments = append(segments, current.String())

	return Address{segments: segments}
}

// String renders the address back to its canonical textual form, escaping
// "/" and "\" within each segment. String and Parse are inverses.
func (a Address) String() string {
	escaped := make([]string, len(a.segments))
	for i, s := range a.segments {
		escaped[i] = escapeSegment(s)
	}
	return strings.Join(escaped, "/")
}

func escapeSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '/' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Len returns the number of segments.
func (a Address) Len() int {
	return len(a.segments)
}

// Segments returns a copy of the underlying segment slice.
func (a Address) Segments() []string {
	cp := make([]string, len(a.segments))
	copy(cp, a.segments)
	return cp
}

// Last returns the final segment and true, or "" and false for the
// zero-length address.
func (a Address) Last() (string, bool) {
	if len(a.segments) == 0 {
		return "", false
	}
	return a.segments[len(a.segments)-1], true
}

// Prefix returns the first i segments of a. i must be in [0, a.Len()].
func (a Address) Prefix(i int) Address {
	if i < 0 {
		i = 0
	}
	if i > len(a.segments) {
		i = len(a.segments)
	}
	return New(a.segments[:i]...)
}

// Key returns a string identifying the address, suitable as a map key. It
// is the same escaped form as String; escaping makes distinct segment lists
// render differently, with one exception: the zero-length address and the
// address holding a single empty segment both render as "".
func (a Address) Key() string {
	return a.String()
}
