// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings provides the stored-settings boundary for rpi-bootcfg.
package settings

import (
	"strconv"
	"strings"
)

// =============================================================================
// TYPED VALUE
// =============================================================================

// Kind identifies which variant a Value holds.
type Kind int

const (
	// KindAbsent means "do not manage this key".
	KindAbsent Kind = iota
	// KindInt is a plain integer.
	KindInt
	// KindBool is a boolean rendered as 0 or 1.
	KindBool
	// KindText is a trimmed string that did not parse as a number.
	KindText
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Value is a closed tagged variant: Absent | Int | Bool | Text.
// The zero Value is Absent.
type Value struct {
	kind Kind
	n    int
	s    string
}

// Absent returns the absent value.
func Absent() Value { return Value{} }

// Int returns an integer value.
func Int(n int) Value { return Value{kind: KindInt, n: n} }

// Bool returns a boolean value, stored as 0 or 1.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, n: 1}
	}
	return Value{kind: KindBool, n: 0}
}

// Text returns a string value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Kind returns the variant.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v is the absent value.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Number returns the numeric value of Int and Bool values.
func (v Value) Number() (int, bool) {
	switch v.kind {
	case KindInt, KindBool:
		return v.n, true
	default:
		return 0, false
	}
}

// String renders the value the way it is written to config.txt.
// Absent renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindInt, KindBool:
		return strconv.Itoa(v.n)
	case KindText:
		return v.s
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	return v == other
}

// =============================================================================
// PARSING
// =============================================================================

// Sentinel strings the host uses for boolean settings.
const (
	TrueString  = "true"
	FalseString = "false"
)

// ParseValue maps a raw stored string onto a Value. It never fails:
//   - "" (or only whitespace) is Absent
//   - exactly "true"/"false" is Bool
//   - an integer (surrounding whitespace allowed) is Int
//   - anything else is the trimmed Text
func ParseValue(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Absent()
	}

	switch raw {
	case TrueString:
		return Bool(true)
	case FalseString:
		return Bool(false)
	}

	if n, err := strconv.Atoi(trimmed); err == nil {
		return Int(n)
	}
	return Text(trimmed)
}
