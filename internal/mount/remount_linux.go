// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build linux

package mount

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// SyscallRemounter changes the mount flags with mount(2) directly, without
// depending on a mount binary being present.
type SyscallRemounter struct{}

// Remount issues MS_REMOUNT with or without MS_RDONLY.
func (SyscallRemounter) Remount(_ context.Context, point string, writable bool) error {
	flags := uintptr(unix.MS_REMOUNT)
	if !writable {
		flags |= unix.MS_RDONLY
	}
	if err := unix.Mount("", point, "", flags, ""); err != nil {
		return fmt.Errorf("%w: mount(2) %s writable=%v: %v", ErrRemount, point, writable, err)
	}
	return nil
}
