// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the command handlers for
// rpi-bootcfg.
//
// # Key Types
//
//   - Command: the available commands
//   - Args: global flags plus the command's raw arguments
//   - ArgParser: per-command flag and positional parsing
//   - App: config, settings store, catalog and remounter built from one
//     application config
//   - TerminalConfirmer: answers safety prompts on a terminal
//
// # Usage
//
//	os.Exit(cli.Main(ctx, os.Args[1:], cli.Streams{
//	    Stdin:  os.Stdin,
//	    Stdout: os.Stdout,
//	    Stderr: os.Stderr,
//	}))
//
// # Commands
//
//   - service: watch the settings store and reconcile on every change
//   - apply: reconcile once, then offer a reboot
//   - diff: show what apply would change
//   - init: seed settings from config.txt
//   - settings: list, get, set, unset, presets
//   - detect: platform and board information
//   - dump-edid: save the display EDID to the boot partition
//
// apply, diff, init, settings, detect and version support --json.
package cli
