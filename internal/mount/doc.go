// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mount brackets writes to the read-only boot volume.
//
// The boot partition is normally mounted read-only. WithWritable flips it to
// read-write for the duration of a callback and always flips it back.
//
//	err := mount.WithWritable(ctx, mount.SyscallRemounter{}, "/flash", func() error {
//	    return util.FileWriter{}.Write("/flash/config.txt", data)
//	})
package mount
