// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mount brackets writes to the read-only boot volume.
package mount

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jeranaias/rpi-bootcfg/internal/util"
)

// ErrRemount wraps any failure to change the volume's write mode.
var ErrRemount = errors.New("remount failed")

// Method names accepted by New.
const (
	MethodSyscall = "syscall"
	MethodCommand = "command"
	MethodNone    = "none"
)

// =============================================================================
// REMOUNTERS
// =============================================================================

// Remounter switches a mounted volume between read-only and read-write.
type Remounter interface {
	Remount(ctx context.Context, point string, writable bool) error
}

// Noop leaves the volume alone. Used when the boot volume is already
// writable (development machines, tests).
type Noop struct{}

// Remount does nothing.
func (Noop) Remount(context.Context, string, bool) error { return nil }

// CommandRemounter runs `mount -o rw,remount <point>` (or ro).
type CommandRemounter struct {
	Runner util.Runner
}

// Remount invokes the mount binary.
func (c CommandRemounter) Remount(ctx context.Context, point string, writable bool) error {
	mode := "ro"
	if writable {
		mode = "rw"
	}
	runner := c.Runner
	if runner == nil {
		runner = util.ExecRunner{}
	}
	if _, err := runner.Run(ctx, "mount", "-o", mode+",remount", point); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrRemount, mode, point, err)
	}
	return nil
}

// New returns the Remounter for a method name.
func New(method string, runner util.Runner) (Remounter, error) {
	switch method {
	case MethodSyscall, "":
		return SyscallRemounter{}, nil
	case MethodCommand:
		return CommandRemounter{Runner: runner}, nil
	case MethodNone:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown mount method %q", method)
	}
}

// =============================================================================
// WRITE BRACKET
// =============================================================================

// WithWritable remounts point read-write, runs fn, and remounts read-only on
// every exit path, including when fn fails or panics. If the read-write
// remount fails fn is not run and the error wraps ErrRemount. A failure to
// restore read-only is logged and, when fn succeeded, returned.
func WithWritable(ctx context.Context, r Remounter, point string, fn func() error) (err error) {
	if r == nil {
		r = Noop{}
	}

	log.Printf("MOUNT_RW | point=%s", point)
	if rerr := r.Remount(ctx, point, true); rerr != nil {
		if !errors.Is(rerr, ErrRemount) {
			rerr = fmt.Errorf("%w: %v", ErrRemount, rerr)
		}
		return rerr
	}

	defer func() {
		// Restore even if the caller's context is already done.
		log.Printf("MOUNT_RO | point=%s", point)
		if rerr := r.Remount(context.WithoutCancel(ctx), point, false); rerr != nil {
			log.Printf("MOUNT_RO_FAILED | point=%s error=%v", point, rerr)
			if err == nil {
				if !errors.Is(rerr, ErrRemount) {
					rerr = fmt.Errorf("%w: %v", ErrRemount, rerr)
				}
				err = rerr
			}
		}
	}()

	return fn()
}
