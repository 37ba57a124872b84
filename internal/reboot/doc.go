// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reboot asks before restarting after config.txt changed.
//
// With a terminal attached, InteractiveConfirmer shows a bubbletea countdown
// (default 10 ticks, one second each) that the user can cancel or skip.
// Without one, CountdownConfirmer waits the same time and logs each tick.
// Cancelling never undoes the config change; it only suppresses the restart.
package reboot
