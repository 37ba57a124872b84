// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile keeps config.txt in step with the stored settings.
//
// # Forward sync
//
// Reconciler.Apply resolves the stored settings into a Desired config
// (preset or custom overclock values, then the other properties), runs the
// safety gates (overvolt warranty warning, USB current limit), diffs the
// result against config.txt and atomically replaces the file if anything
// changed. The read-modify-write runs inside mount.WithWritable.
//
// Plan is the pure diff and can be used for dry runs.
//
// # Reverse sync
//
// Initialize reads an existing config.txt once and copies its values into
// the settings store, including the gpu_mem backfill for the extended
// property set.
//
// # Errors
//
// Failures wrap ErrRead or ErrWrite:
//
//	out, err := r.Apply(ctx)
//	if errors.Is(err, reconcile.ErrWrite) {
//	    // config.txt unchanged; do not reboot
//	}
package reconcile
