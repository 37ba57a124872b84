// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads the rpi-bootcfg application configuration.
//
// This is the program's own TOML file (paths, store backend, mount and
// reboot behaviour), not the firmware config.txt it manages.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RPI_BOOTCFG_*)
//   - The TOML file (--config, RPI_BOOTCFG_CONFIG, or DefaultPath)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load(config.ResolvePath(flagPath))
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
