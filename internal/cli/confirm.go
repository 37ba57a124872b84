// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Answering the safety prompts raised during reconciliation.
//
// The answer comes from, in order:
//  1. --yes / --no on the command line
//  2. the terminal, when prompt.mode is "tty" and one is attached
//  3. the policy answers in the [prompt] config section

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/jeranaias/rpi-bootcfg/internal/config"
	"github.com/jeranaias/rpi-bootcfg/internal/reconcile"
)

// =============================================================================
// POLICY
// =============================================================================

// PolicyFromConfig builds the unattended answers from the [prompt] section.
func PolicyFromConfig(p config.PromptConfig) reconcile.PolicyConfirmer {
	return reconcile.PolicyConfirmer{
		Answers: map[string]bool{
			reconcile.GateOvervolt:      p.Overvolt == config.OvervoltContinue,
			reconcile.GateMaxUSBCurrent: p.MaxUSBCurrent == config.USBEnable,
		},
	}
}

// ConfirmerOptions selects how NewConfirmer answers prompts.
type ConfirmerOptions struct {
	Prompt config.PromptConfig

	// Force answers every prompt with Answer.
	Force  bool
	Answer bool

	// Interactive allows prompting on In/Out.
	Interactive bool
	In          io.Reader
	Out         io.Writer
}

// NewConfirmer returns the Confirmer for opts.
func NewConfirmer(opts ConfirmerOptions) reconcile.Confirmer {
	if opts.Force {
		return reconcile.PolicyConfirmer{Default: opts.Answer}
	}
	policy := PolicyFromConfig(opts.Prompt)
	if opts.Prompt.Mode == config.PromptTTY && opts.Interactive {
		return &TerminalConfirmer{In: opts.In, Out: opts.Out, Fallback: policy}
	}
	return policy
}

// =============================================================================
// TERMINAL PROMPTS
// =============================================================================

// TerminalConfirmer shows a Prompt on a terminal and reads the answer.
// When reading fails (EOF, closed input) the Fallback answers instead.
type TerminalConfirmer struct {
	In       io.Reader
	Out      io.Writer
	Fallback reconcile.Confirmer

	lines *LineReader
}

// Confirm displays p and waits for an answer or for ctx to end.
func (c *TerminalConfirmer) Confirm(ctx context.Context, p reconcile.Prompt) (bool, error) {
	if c.lines == nil {
		c.lines = NewLineReader(c.In)
	}

	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, WarningStyle.Render(p.Title))
	fmt.Fprintln(c.Out, RenderSeparator())
	for _, line := range p.Lines {
		fmt.Fprintf(c.Out, "  %s\n", line)
	}
	fmt.Fprintln(c.Out)

	yes, err := PromptChoice(ctx, c.lines, c.Out, p.YesLabel, p.NoLabel)
	if err != nil {
		log.Printf("PROMPT_FALLBACK | prompt=%s error=%v", p.ID, err)
		if c.Fallback == nil {
			return false, err
		}
		return c.Fallback.Confirm(ctx, p)
	}
	return yes, nil
}

// PromptChoice asks the user to pick yesLabel or noLabel by its first
// letter or its full name. Anything else asks again. Returns an error when
// input ends or ctx is done first.
func PromptChoice(ctx context.Context, r *LineReader, w io.Writer, yesLabel, noLabel string) (bool, error) {
	if yesLabel == "" {
		yesLabel = "Yes"
	}
	if noLabel == "" {
		noLabel = "No"
	}
	yesKey := strings.ToLower(yesLabel[:1])
	noKey := strings.ToLower(noLabel[:1])
	if yesKey == noKey {
		yesKey, noKey = "y", "n"
	}

	for {
		fmt.Fprintf(w, "%s [%s] / %s [%s]: ", yesLabel, yesKey, noLabel, noKey)

		line, err := r.ReadLine(ctx)
		if err != nil {
			return false, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case yesKey, strings.ToLower(yesLabel):
			return true, nil
		case noKey, strings.ToLower(noLabel):
			return false, nil
		}
		fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("Please answer %s or %s.", yesKey, noKey)))
	}
}

// =============================================================================
// LINE READER
// =============================================================================

// LineReader reads lines from its input on a single goroutine, so a caller
// that stops waiting never leaves a second reader on the same input. A line
// that arrives while nobody waits goes to the next ReadLine.
type LineReader struct {
	r     *bufio.Reader
	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewLineReader returns a LineReader over in. Reading starts on the first
// ReadLine.
func NewLineReader(in io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(in), lines: make(chan lineResult)}
}

func (lr *LineReader) loop() {
	defer close(lr.lines)
	for {
		line, err := lr.r.ReadString('\n')
		lr.lines <- lineResult{line, err}
		if err != nil {
			return
		}
	}
}

// ReadLine returns the next line, or ctx.Err() when ctx ends first. A final
// line without a newline is returned as a line.
func (lr *LineReader) ReadLine(ctx context.Context) (string, error) {
	lr.once.Do(func() { go lr.loop() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-lr.lines:
		if !ok {
			return "", fmt.Errorf("failed to read answer: %w", io.EOF)
		}
		if res.err != nil && !(res.err == io.EOF && res.line != "") {
			return "", fmt.Errorf("failed to read answer: %w", res.err)
		}
		return res.line, nil
	}
}
