// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides low-level helpers shared by the rpi-bootcfg packages.
//
// # Key Functions
//
// File Operations:
//   - FileWriter.Write: crash-safe replacement of an existing file (temp + fsync + rename)
//   - AtomicWriteFile: same, for files this program owns, creating parent dirs
//
// External Commands:
//   - Runner / ExecRunner: context-bounded command execution
//
// Logging:
//   - SetupLogging, SetDebug, Debugf: standard logger setup with debug gating
//
// # Usage
//
//	// Replace /flash/config.txt without ever exposing a half-written file
//	err := util.FileWriter{}.Write("/flash/config.txt", []byte(text))
package util
