// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for rpi-bootcfg commands.
//
// Handlers always return errors; Main decides how to display them and maps
// them onto an exit code.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/rpi-bootcfg/internal/config"
	"github.com/jeranaias/rpi-bootcfg/internal/reconcile"
	"github.com/jeranaias/rpi-bootcfg/internal/service"
	"github.com/jeranaias/rpi-bootcfg/internal/settings"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates an invalid application config
	ExitConfigError = 3
	// ExitPlatformError indicates the host is not a Raspberry Pi
	ExitPlatformError = 4
	// ExitStoreError indicates the settings store failed
	ExitStoreError = 5
	// ExitReadError indicates config.txt could not be read
	ExitReadError = 6
	// ExitWriteError indicates config.txt could not be written
	ExitWriteError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is a mistake on the command line.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// NewUsageError formats a UsageError.
func NewUsageError(format string, args ...interface{}) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "settings")
	Action  string // Action being performed (e.g., "set")
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError wraps err with the command and action that failed.
func NewCommandError(command, action string, err error) error {
	return &CommandError{Command: command, Action: action, Err: err}
}

// ExitCode maps an error onto a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var verrs config.ValidateErrors
	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &verrs), errors.Is(err, errConfig):
		return ExitConfigError
	case errors.Is(err, service.ErrNotRPi):
		return ExitPlatformError
	case errors.Is(err, settings.ErrStore):
		return ExitStoreError
	case errors.Is(err, reconcile.ErrRead):
		return ExitReadError
	case errors.Is(err, reconcile.ErrWrite):
		return ExitWriteError
	default:
		return ExitGeneralError
	}
}

// errConfig marks failures to load the application config.
var errConfig = errors.New("config error")

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err in the standard human-readable format.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}
