// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"log"

	"github.com/jeranaias/rpi-bootcfg/internal/props"
	"github.com/jeranaias/rpi-bootcfg/internal/settings"
)

// Gate identifiers carried in Prompt.ID.
const (
	GateOvervolt      = "overvolt"
	GateMaxUSBCurrent = "max_usb_current"
)

// =============================================================================
// CONFIRMATION
// =============================================================================

// Prompt is a yes/no question shown before a risky value is written.
// Yes keeps the risky value; No applies the safe alternative.
type Prompt struct {
	ID       string
	Title    string
	Lines    []string
	YesLabel string
	NoLabel  string
}

// Confirmer asks the user a Prompt.
type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, p Prompt) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, p Prompt) (bool, error) {
	return f(ctx, p)
}

// PolicyConfirmer answers from a fixed table keyed by Prompt.ID. Unknown
// prompts get Default.
type PolicyConfirmer struct {
	Answers map[string]bool
	Default bool
}

// Confirm returns the configured answer.
func (c PolicyConfirmer) Confirm(_ context.Context, p Prompt) (bool, error) {
	if answer, ok := c.Answers[p.ID]; ok {
		return answer, nil
	}
	return c.Default, nil
}

var overvoltPrompt = Prompt{
	ID:    GateOvervolt,
	Title: "rpi-bootcfg WARNING!!",
	Lines: []string{
		"Overvolting with dynamic overclock disabled",
		"will void your warranty!!",
		"Continue, or fix by enabling dynamic overclock?",
	},
	YesLabel: "Continue",
	NoLabel:  "Fix",
}

var usbCurrentPrompt = Prompt{
	ID:    GateMaxUSBCurrent,
	Title: "rpi-bootcfg WARNING!!",
	Lines: []string{
		"max_usb_current=1 raises the USB current limit to 1.2A.",
		"Only enable this with a power supply rated 2A or more.",
		"Enable the higher USB current limit?",
	},
	YesLabel: "Enable",
	NoLabel:  "Disable",
}

// =============================================================================
// SAFETY GATES
// =============================================================================

// applyGates runs the confirmation policy over d, in order. A prompt that
// fails to get an answer is treated as declined.
func applyGates(ctx context.Context, cat *props.Catalog, c Confirmer, d *Desired) {
	if isOne(d, props.ForceTurbo) && positive(d, props.OverVoltage) {
		if ask(ctx, c, overvoltPrompt) {
			log.Printf("GATE_OVERVOLT | decision=continue warranty_warning=ignored")
		} else {
			log.Printf("GATE_OVERVOLT | decision=fix force_turbo=0")
			d.Set(props.ForceTurbo, settings.Int(0))
		}
	}

	if cat.USBCurrentGate && isOne(d, props.MaxUSBCurrent) {
		if ask(ctx, c, usbCurrentPrompt) {
			log.Printf("GATE_USB_CURRENT | decision=enable")
		} else {
			log.Printf("GATE_USB_CURRENT | decision=disable max_usb_current=0")
			d.Set(props.MaxUSBCurrent, settings.Int(0))
		}
	}
}

func ask(ctx context.Context, c Confirmer, p Prompt) bool {
	if c == nil {
		log.Printf("GATE_NO_CONFIRMER | gate=%s decision=declined", p.ID)
		return false
	}
	ok, err := c.Confirm(ctx, p)
	if err != nil {
		log.Printf("GATE_PROMPT_FAILED | gate=%s error=%v decision=declined", p.ID, err)
		return false
	}
	return ok
}

func isOne(d *Desired, p props.Property) bool {
	v, ok := d.Get(p)
	if !ok {
		return false
	}
	n, ok := v.Number()
	return ok && n == 1
}

func positive(d *Desired, p props.Property) bool {
	v, ok := d.Get(p)
	if !ok {
		return false
	}
	n, ok := v.Number()
	return ok && n > 0
}
