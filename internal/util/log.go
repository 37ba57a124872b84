// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

var debugEnabled atomic.Bool

// SetDebug turns debug-level log output on or off.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether Debugf currently emits output.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf logs through the standard logger only when debug output is enabled.
func Debugf(format string, args ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	log.Output(2, fmt.Sprintf(format, args...))
}

// SetupLogging points the standard logger at path (appending) in addition to
// stderr. An empty path leaves the logger on stderr. The returned closer must
// be called on shutdown.
func SetupLogging(path string, debug bool) (io.Closer, error) {
	SetDebug(debug)
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("rpi-bootcfg: ")

	if path == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}
