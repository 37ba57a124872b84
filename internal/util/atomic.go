// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides low-level helpers shared by the rpi-bootcfg packages.
package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultFileMode is used when the target file does not exist yet.
const DefaultFileMode os.FileMode = 0644

// =============================================================================
// ATOMIC FILE WRITER
// =============================================================================

// FileWriter replaces files atomically.
//
// The sequence is:
//  1. Create a temporary file in the target's directory
//  2. Write the full contents and fsync
//  3. Close the file
//  4. Rename the temp file over the target
//
// Step 4 is the only commit point. A failure before it leaves the target
// byte-identical; a failure after it leaves the new contents in place.
// The temp file lives in the same directory so the rename never crosses
// a filesystem boundary.
type FileWriter struct {
	// Rename replaces the target. Nil means os.Rename.
	Rename func(oldpath, newpath string) error

	// Sync flushes the temp file to stable storage. Nil means (*os.File).Sync.
	Sync func(f *os.File) error
}

// Write atomically replaces path with data. The mode of an existing target
// is preserved; new files get DefaultFileMode.
func (w FileWriter) Write(path string, data []byte) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	perm := DefaultFileMode
	if info, err := os.Stat(absPath); err == nil {
		perm = info.Mode().Perm()
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat target: %w", err)
	}

	return w.write(absPath, data, perm)
}

func (w FileWriter) write(absPath string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(absPath)

	f, err := os.CreateTemp(dir, "."+filepath.Base(absPath)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()
	Debugf("ATOMIC_WRITE | temp=%s target=%s bytes=%d", tempPath, absPath, len(data))

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	sync := w.Sync
	if sync == nil {
		sync = (*os.File).Sync
	}
	if err := sync(f); err != nil {
		return fmt.Errorf("failed to sync data to disk: %w", err)
	}

	// Close before rename - required on some systems (Windows)
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}

	rename := w.Rename
	if rename == nil {
		rename = os.Rename
	}
	Debugf("ATOMIC_RENAME | from=%s to=%s", tempPath, absPath)
	if err := rename(tempPath, absPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// AtomicWriteFile writes data to path atomically with the given permissions,
// creating the parent directory when needed. Used for files owned by this
// program (settings store, app config) where the mode is always known.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	return FileWriter{}.write(absPath, data, perm)
}
