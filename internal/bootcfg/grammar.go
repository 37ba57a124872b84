// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bootcfg reads and rewrites key=value lines of the firmware config.txt.
package bootcfg

import (
	"regexp"
	"sync"
)

// =============================================================================
// LINE GRAMMAR
// =============================================================================
//
// A recognized line is, anchored at column 0:
//
//	[#][ \t]*KEY[ \t]*=[ \t]*VALUE
//
// VALUE is a run of word characters with an optional leading minus sign
// (over_voltage may be negative). Anything after VALUE on the same line is
// not part of the match and survives rewrites. The comment marker must be the
// first byte of the line; "  # key=1" is not a recognized line.

// CommentMarker prefixes a disabled line.
const CommentMarker = "#"

// ActiveIndent prefixes every line this package writes in active form.
const ActiveIndent = "  "

const valueToken = `-?\w+`

type patternKey struct {
	key         string
	withComment bool
}

var patternCache sync.Map // patternKey -> *regexp.Regexp

var valueRe = regexp.MustCompile(`^` + valueToken + `$`)

// ValidValue reports whether value is a complete VALUE token. A line written
// with anything else would not read back as the same value.
func ValidValue(value string) bool {
	return valueRe.MatchString(value)
}

// pattern returns the compiled grammar for key. Group 1 is the comment
// marker (always empty when withComment is false), group 2 the key and
// group 3 the value.
func pattern(key string, withComment bool) *regexp.Regexp {
	pk := patternKey{key: key, withComment: withComment}
	if re, ok := patternCache.Load(pk); ok {
		return re.(*regexp.Regexp)
	}

	marker := `()`
	if withComment {
		marker = `(#?)`
	}
	re := regexp.MustCompile(`^` + marker + `[ \t]*(` + regexp.QuoteMeta(key) + `)[ \t]*=[ \t]*(` + valueToken + `)`)
	actual, _ := patternCache.LoadOrStore(pk, re)
	return actual.(*regexp.Regexp)
}

// Match is one recognized line.
type Match struct {
	// Line is the zero-based line index in the document.
	Line int
	// End is the byte offset within the line where the matched span stops.
	End int
	// Commented is true when the line starts with the comment marker.
	Commented bool
	Key       string
	Value     string
}

// MatchLine applies the grammar for key to a single line.
func MatchLine(line, key string, withComment bool) (Match, bool) {
	loc := pattern(key, withComment).FindStringSubmatchIndex(line)
	if loc == nil {
		return Match{}, false
	}
	return Match{
		End:       loc[1],
		Commented: loc[3] > loc[2],
		Key:       line[loc[4]:loc[5]],
		Value:     line[loc[6]:loc[7]],
	}, true
}

// =============================================================================
// REWRITE PRIMITIVES
// =============================================================================

// CommentLine renders a disabled line. Callers pass the value already in the
// file, never a newly desired one.
func CommentLine(key, value string) string {
	return CommentMarker + key + "=" + value
}

// ActiveLine renders an enabled line with the desired value.
func ActiveLine(key, value string) string {
	return ActiveIndent + key + "=" + value
}
