// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package props defines the fixed catalog of config.txt keys rpi-bootcfg manages.
//
// Two variants exist. Classic is the original key set. Extended adds the
// Disabled preset, gpu_mem_256/512/1024 (backfilled from gpu_mem on first
// run), a handful of HDMI keys and the max_usb_current confirmation gate.
//
// Preset values are positional: Preset.Values[i] belongs to Catalog.Overclock[i].
package props
