// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !linux

package main

import "errors"

func getFreeDiskSpace(string) (uint64, error) {
	return 0, errors.New("free space check is only supported on linux")
}
