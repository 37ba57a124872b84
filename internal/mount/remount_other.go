// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !linux

package mount

import (
	"context"
	"fmt"
	"runtime"
)

// SyscallRemounter is only implemented on Linux.
type SyscallRemounter struct{}

// Remount always fails off Linux; use MethodCommand or MethodNone.
func (SyscallRemounter) Remount(_ context.Context, point string, _ bool) error {
	return fmt.Errorf("%w: syscall remount of %s not supported on %s", ErrRemount, point, runtime.GOOS)
}
