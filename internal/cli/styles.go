// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styling for all CLI commands.
//
// Colors are disabled for non-TTY output and when NO_COLOR is set.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rpi-bootcfg/internal/reconcile"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")). // Cyan
			MarginBottom(1)

	// SectionStyle is used for section headers within commands
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")). // White
			MarginTop(1)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Light gray
			Width(22)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")) // Off-white

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Yellow/Orange

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Dim gray

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // Dark gray
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal separator line. The default width is
// 60 columns, narrowed to the terminal width.
func RenderSeparator(width ...int) string {
	w := min(60, GetTerminalWidth())
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("=", w))
}

// RenderLabel renders a label with consistent width.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}

// RenderAction renders an action name in the color of what it does to the
// file.
func RenderAction(kind reconcile.ActionKind) string {
	tag := "[" + strings.ToUpper(kind.String()) + "]"
	switch kind {
	case reconcile.ActionUpdate, reconcile.ActionAppend, reconcile.ActionCreate:
		return SuccessStyle.Render(tag)
	case reconcile.ActionComment:
		return WarningStyle.Render(tag)
	default:
		return DimStyle.Render(tag)
	}
}
