// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bootcfg

import (
	"sort"
	"strings"
)

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is config.txt split into lines. It is never mutated; edits are
// collected in a Plan and applied in one rebuild pass.
type Document struct {
	lines []string
}

// Parse splits text on "\n". Carriage returns and every other byte stay in
// their line untouched.
func Parse(text string) *Document {
	return &Document{lines: strings.Split(text, "\n")}
}

// Lines returns a copy of the document's lines.
func (d *Document) Lines() []string {
	return append([]string(nil), d.lines...)
}

// String reassembles the original text.
func (d *Document) String() string {
	return strings.Join(d.lines, "\n")
}

// Find returns the first line for key in either form. Later duplicates are
// ignored.
func (d *Document) Find(key string) (Match, bool) {
	return d.find(key, true)
}

// FindActive returns the first uncommented line for key.
func (d *Document) FindActive(key string) (Match, bool) {
	return d.find(key, false)
}

func (d *Document) find(key string, withComment bool) (Match, bool) {
	for i, line := range d.lines {
		if m, ok := MatchLine(line, key, withComment); ok {
			m.Line = i
			return m, true
		}
	}
	return Match{}, false
}

// =============================================================================
// EDIT PLAN
// =============================================================================

// Plan is a set of line replacements plus lines to append. A replacement
// substitutes only the matched span of its line; the rest of the line is
// kept.
type Plan struct {
	replace map[int]replacement
	appends []string
}

type replacement struct {
	end  int
	text string
}

// Replace schedules the matched span of m to become text. A second call for
// the same line wins.
func (p *Plan) Replace(m Match, text string) {
	if p.replace == nil {
		p.replace = make(map[int]replacement)
	}
	p.replace[m.Line] = replacement{end: m.End, text: text}
}

// Append schedules a new line at the end of the document.
func (p *Plan) Append(line string) {
	p.appends = append(p.appends, line)
}

// Empty reports whether the plan changes nothing.
func (p *Plan) Empty() bool {
	return len(p.replace) == 0 && len(p.appends) == 0
}

// Edits returns the replaced line indexes in ascending order.
func (p *Plan) Edits() []int {
	idx := make([]int, 0, len(p.replace))
	for i := range p.replace {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Apply rebuilds the document text with plan applied. Lines not named by
// the plan are copied byte for byte. Appended lines each end with "\n"; if
// the original text did not end with a newline one is inserted first.
func (d *Document) Apply(plan *Plan) string {
	out := make([]string, len(d.lines), len(d.lines)+len(plan.appends)+1)
	for i, line := range d.lines {
		if r, ok := plan.replace[i]; ok {
			out[i] = r.text + line[r.end:]
			continue
		}
		out[i] = line
	}

	if len(plan.appends) > 0 {
		// A trailing "" element means the text ended with "\n" (or was empty).
		if out[len(out)-1] == "" {
			out = out[:len(out)-1]
		}
		out = append(out, plan.appends...)
		out = append(out, "")
	}

	return strings.Join(out, "\n")
}

// =============================================================================
// RENDER
// =============================================================================

// KeyValue is one line to render into a fresh file.
type KeyValue struct {
	Key   string
	Value string
}

// Render produces the text of a new config.txt: one active line per entry,
// each newline-terminated, in the given order.
func Render(entries []KeyValue) string {
	var b strings.Builder
	for _, kv := range entries {
		b.WriteString(ActiveLine(kv.Key, kv.Value))
		b.WriteByte('\n')
	}
	return b.String()
}
