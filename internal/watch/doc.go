// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch delivers a notification whenever the settings store file
// changes on disk. It is the service's equivalent of a host "settings
// changed" callback.
package watch
