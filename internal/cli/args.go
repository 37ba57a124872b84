// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Per-command argument parsing.

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser parses one command's arguments. It handles:
//   - Long flags: --flag value or --flag=value
//   - Boolean flags: --flag (never consumes the next argument)
//   - Positional arguments, the first of which is the subcommand
//   - Negative numbers, which are positional
//   - "--" ends flag parsing
type ArgParser struct {
	subcommand string            // First positional arg (e.g., "get", "set")
	flags      map[string]string // String flags (--key=value)
	boolFlags  map[string]bool   // Boolean flags (--yes)
	positional []string          // All positional arguments including subcommand
}

// NewArgParser parses raw. Names listed in bools are boolean flags; any
// other flag takes the following argument as its value when one is there.
//
// Example:
//
//	p := NewArgParser([]string{"set", "arm_freq", "900", "--json"}, "json")
//	p.Subcommand()    // "set"
//	p.Positional(1)   // "arm_freq"
//	p.BoolFlag("json") // true
func NewArgParser(raw []string, bools ...string) *ArgParser {
	isBool := make(map[string]bool, len(bools))
	for _, b := range bools {
		isBool[b] = true
	}

	parser := &ArgParser{
		flags:      make(map[string]string),
		boolFlags:  make(map[string]bool),
		positional: make([]string, 0),
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		if arg == "--" {
			parser.positional = append(parser.positional, raw[i+1:]...)
			break
		}
		if !isFlag(arg) {
			parser.positional = append(parser.positional, arg)
			continue
		}

		// --flag=value
		if name, value, ok := strings.Cut(arg, "="); ok {
			name = strings.TrimLeft(name, "-")
			if isBool[name] {
				b, err := ParseBoolString(value)
				parser.boolFlags[name] = err == nil && b
			} else {
				parser.flags[name] = value
			}
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if !isBool[name] && i+1 < len(raw) && !isFlag(raw[i+1]) {
			parser.flags[name] = raw[i+1]
			i++
			continue
		}
		parser.boolFlags[name] = true
	}

	if len(parser.positional) > 0 {
		parser.subcommand = parser.positional[0]
	}
	return parser
}

// isFlag reports whether arg looks like a flag rather than a value.
func isFlag(arg string) bool {
	if len(arg) < 2 || arg[0] != '-' {
		return false
	}
	_, err := strconv.Atoi(arg)
	return err != nil
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	return p.subcommand
}

// Flag returns the value of a string flag, or "".
func (p *ArgParser) Flag(name string) string {
	return p.flags[strings.TrimLeft(name, "-")]
}

// FlagInt returns the flag value as an integer.
func (p *ArgParser) FlagInt(name string) (int, error) {
	val := p.Flag(name)
	if val == "" {
		return 0, fmt.Errorf("flag %s not found", name)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, NewUsageError("--%s must be an integer, got %q", strings.TrimLeft(name, "-"), val)
	}
	return n, nil
}

// BoolFlag returns the value of a boolean flag, false when absent.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[strings.TrimLeft(name, "-")]
}

// HasFlag returns true if the flag exists (either as string or bool flag).
func (p *ArgParser) HasFlag(name string) bool {
	name = strings.TrimLeft(name, "-")
	_, hasString := p.flags[name]
	_, hasBool := p.boolFlags[name]
	return hasString || hasBool
}

// Positional returns the positional argument at index, or "". Index 0 is
// the subcommand.
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// =============================================================================
// HELPERS
// =============================================================================

// ParseBoolString parses a boolean from various string representations.
// Accepts: true/false, yes/no, y/n, 1/0, on/off (case-insensitive)
func ParseBoolString(s string) (bool, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "true", "yes", "y", "1", "on":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}
