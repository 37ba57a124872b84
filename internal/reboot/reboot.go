// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reboot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jeranaias/rpi-bootcfg/internal/util"
)

// Countdown defaults.
const (
	DefaultTicks    = 10
	DefaultInterval = time.Second
)

// ErrNoCommand is returned by CommandRebooter when no command is configured.
var ErrNoCommand = errors.New("no reboot command configured")

// =============================================================================
// COUNTDOWN
// =============================================================================

// Countdown counts Ticks down at Interval.
type Countdown struct {
	Ticks    int
	Interval time.Duration

	// OnTick is called with the seconds remaining before each wait.
	OnTick func(remaining int)
}

func (c Countdown) normalized() Countdown {
	if c.Ticks <= 0 {
		c.Ticks = DefaultTicks
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	return c
}

// Run blocks until the countdown finishes (true) or ctx is done (false).
func (c Countdown) Run(ctx context.Context) bool {
	c = c.normalized()

	timer := time.NewTimer(c.Interval)
	defer timer.Stop()

	for remaining := c.Ticks; remaining > 0; remaining-- {
		if c.OnTick != nil {
			c.OnTick(remaining)
		}
		if remaining != c.Ticks {
			timer.Reset(c.Interval)
		}
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		}
	}
	return true
}

// =============================================================================
// CONFIRMATION
// =============================================================================

// Confirmer decides whether to restart after a committed config change.
// Returning false suppresses the restart; the config change stays.
type Confirmer interface {
	ConfirmReboot(ctx context.Context) bool
}

// CountdownConfirmer proceeds when the countdown runs out without ctx being
// cancelled. Used when no terminal is attached.
type CountdownConfirmer struct {
	Countdown Countdown
}

// ConfirmReboot logs each tick and waits.
func (c CountdownConfirmer) ConfirmReboot(ctx context.Context) bool {
	cd := c.Countdown
	if cd.OnTick == nil {
		cd.OnTick = func(remaining int) {
			log.Printf("REBOOT_COUNTDOWN | remaining=%d", remaining)
		}
	}
	return cd.Run(ctx)
}

// =============================================================================
// REBOOT
// =============================================================================

// Rebooter restarts the machine.
type Rebooter interface {
	Reboot(ctx context.Context) error
}

// CommandRebooter runs Command (for example ["reboot"]).
type CommandRebooter struct {
	Runner  util.Runner
	Command []string
}

// Reboot runs the configured command.
func (r CommandRebooter) Reboot(ctx context.Context) error {
	if len(r.Command) == 0 {
		return ErrNoCommand
	}
	runner := r.Runner
	if runner == nil {
		runner = util.ExecRunner{}
	}
	if out, err := runner.Run(ctx, r.Command[0], r.Command[1:]...); err != nil {
		return fmt.Errorf("reboot command %v failed: %w (%s)", r.Command, err, out)
	}
	return nil
}

// MaybeReboot asks c and, if it agrees, restarts via r. It returns whether a
// restart was issued.
func MaybeReboot(ctx context.Context, c Confirmer, r Rebooter) (bool, error) {
	log.Printf("REBOOT_PENDING | waiting for confirmation")
	if !c.ConfirmReboot(ctx) {
		log.Printf("REBOOT_CANCELLED | config change kept, restart suppressed")
		return false, nil
	}
	log.Printf("REBOOT_START")
	if err := r.Reboot(ctx); err != nil {
		log.Printf("REBOOT_FAILED | error=%v", err)
		return false, err
	}
	return true, nil
}
