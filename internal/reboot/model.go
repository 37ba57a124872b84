// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reboot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	brandWarning = lipgloss.Color("#F59E0B") // Amber
	textMuted    = lipgloss.Color("#6B7280") // Gray

	titleStyle = lipgloss.NewStyle().
			Foreground(brandWarning).
			Bold(true).
			MarginBottom(1)

	dimStyle = lipgloss.NewStyle().
			Foreground(textMuted)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(brandWarning).
			Padding(1, 2)
)

// =============================================================================
// MODEL
// =============================================================================

type tickMsg time.Time

// Model is the interactive reboot countdown: a draining progress bar that
// reboots when it empties unless the user cancels.
type Model struct {
	total     int
	remaining int
	interval  time.Duration
	progress  progress.Model

	done   bool
	reboot bool
}

// NewModel returns a countdown of ticks steps at interval.
func NewModel(ticks int, interval time.Duration) Model {
	cd := Countdown{Ticks: ticks, Interval: interval}.normalized()
	p := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	p.Width = 40
	return Model{
		total:     cd.Ticks,
		remaining: cd.Ticks,
		interval:  cd.Interval,
		progress:  p,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the countdown.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles ticks and keys.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "n", "ctrl+c":
			m.done, m.reboot = true, false
			return m, tea.Quit
		case "enter", "y":
			m.done, m.reboot = true, true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		width := msg.Width - 20
		if width < 20 {
			width = 20
		}
		if width > 60 {
			width = 60
		}
		m.progress.Width = width
		return m, nil

	case tickMsg:
		if m.done {
			return m, nil
		}
		m.remaining--
		if m.remaining <= 0 {
			m.remaining = 0
			m.done, m.reboot = true, true
			return m, tea.Quit
		}
		return m, m.tick()
	}

	return m, nil
}

// View renders the countdown box.
func (m Model) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("rpi-bootcfg"))
	b.WriteString("\n")
	b.WriteString("Boot configuration changed.\n")
	b.WriteString(fmt.Sprintf("Rebooting in %d seconds...\n\n", m.remaining))
	b.WriteString(m.progress.ViewAs(float64(m.remaining) / float64(m.total)))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("enter/y reboot now  •  esc/n cancel"))
	return boxStyle.Render(b.String()) + "\n"
}

// Reboot reports whether the countdown ended in favour of rebooting.
func (m Model) Reboot() bool {
	return m.done && m.reboot
}

// Remaining returns the seconds left.
func (m Model) Remaining() int {
	return m.remaining
}

// =============================================================================
// INTERACTIVE CONFIRMER
// =============================================================================

// InteractiveConfirmer shows Model on a terminal.
type InteractiveConfirmer struct {
	Ticks    int
	Interval time.Duration

	// Input and Output default to the process's terminal when nil.
	Input  io.Reader
	Output io.Writer
}

// ConfirmReboot runs the countdown program. Any failure to run it counts as
// a cancel.
func (c InteractiveConfirmer) ConfirmReboot(ctx context.Context) bool {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if c.Input != nil {
		opts = append(opts, tea.WithInput(c.Input))
	}
	if c.Output != nil {
		opts = append(opts, tea.WithOutput(c.Output))
	}

	final, err := tea.NewProgram(NewModel(c.Ticks, c.Interval), opts...).Run()
	if err != nil {
		if !errors.Is(err, tea.ErrProgramKilled) {
			fmt.Fprintf(c.output(), "reboot prompt failed: %v\n", err)
		}
		return false
	}
	m, ok := final.(Model)
	return ok && m.Reboot()
}

func (c InteractiveConfirmer) output() io.Writer {
	if c.Output != nil {
		return c.Output
	}
	return io.Discard
}
