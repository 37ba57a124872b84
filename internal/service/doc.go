// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package service is the long-running rpi-bootcfg daemon.
//
// On start it checks the platform, seeds settings from an existing
// config.txt and records the detected hardware. It then blocks on change
// notifications (from the settings file watcher or SIGHUP) and runs one
// reconciliation per notification through a single-slot Queue, so two
// quick changes never interleave their file access. A committed change is
// followed by the reboot countdown.
package service
