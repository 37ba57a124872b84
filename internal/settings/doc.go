// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings provides the stored-settings boundary for rpi-bootcfg.
//
// Stored settings are plain strings keyed by name, the way the host settings
// UI persists them. Reader turns them into typed Values.
//
// # Key Types
//
//   - Store: get/set/delete/list raw strings (MemoryStore, TOMLStore, SQLiteStore)
//   - Value: closed variant Absent | Int | Bool | Text
//   - Reader: Store + ParseValue
//
// # Usage
//
//	store, err := settings.Open(settings.BackendTOML, "/storage/.rpi-bootcfg/settings.toml")
//	if err != nil {
//	    return err
//	}
//	v, err := settings.NewReader(store).Read("arm_freq")
package settings
