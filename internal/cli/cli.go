// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line parsing and dispatch for rpi-bootcfg.
package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdHelp Command = iota
	CmdService
	CmdApply
	CmdInit
	CmdDiff
	CmdSettings
	CmdDetect
	CmdDumpEDID
	CmdVersion
)

var commandNames = map[Command]string{
	CmdHelp:     "help",
	CmdService:  "service",
	CmdApply:    "apply",
	CmdInit:     "init",
	CmdDiff:     "diff",
	CmdSettings: "settings",
	CmdDetect:   "detect",
	CmdDumpEDID: "dump-edid",
	CmdVersion:  "version",
}

// String returns the command name as typed on the command line.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Debug      bool
	JSON       bool

	// Raw holds everything after the command name, for the command's own
	// ArgParser.
	Raw []string
}

const usageText = `rpi-bootcfg - keep the Raspberry Pi config.txt in sync with stored settings

Usage:
  rpi-bootcfg [global flags] <command> [args]

Commands:
  service                      Run the daemon: reconcile whenever settings change
  apply [--yes|--no] [--no-reboot]
                               Reconcile config.txt once and offer a reboot
  diff                         Show what apply would change, write nothing
  init                         Seed settings from the current config.txt
  settings list                Show every managed setting and its value
  settings get <key>           Print one setting
  settings set <key> <value>   Store a setting ("" unsets it)
  settings unset <key>         Remove a setting
  settings presets             List the overclock presets
  detect                       Show platform and board information
  dump-edid                    Save the display EDID next to config.txt
  version                      Show version information
  help                         Show this help

Global flags:
  --config <path>   Application config (default $RPI_BOOTCFG_CONFIG or
                    /storage/.config/rpi-bootcfg/config.toml)
  --debug           Verbose logging
  --json            Machine-readable output (apply, diff, settings, detect, version)

Apply flags:
  --yes             Answer every safety prompt with the risky choice
  --no              Answer every safety prompt with the safe choice
  --no-reboot       Never reboot, even when config.txt changed
  --countdown <n>   Reboot countdown length in seconds

The service reconciles on every change to the settings store and on SIGHUP.
`

// PrintUsage prints the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "rpi-bootcfg %s\n", Version)
	fmt.Fprintf(w, "  Commit:  %s\n", GitCommit)
	fmt.Fprintf(w, "  Built:   %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// VersionData is the --json form of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// =============================================================================
// PARSING
// =============================================================================

// Parse splits argv (without the program name) into a command and its
// arguments. Global flags may appear before or after the command name.
func Parse(argv []string) (Command, Args, error) {
	remaining, args, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, args, err
	}

	if len(remaining) == 0 {
		return CmdHelp, args, nil
	}

	name := strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch name {
	case "service", "daemon":
		return CmdService, args, nil
	case "apply", "sync":
		return CmdApply, args, nil
	case "init":
		return CmdInit, args, nil
	case "diff", "plan":
		return CmdDiff, args, nil
	case "settings", "setting":
		return CmdSettings, args, nil
	case "detect", "hw":
		return CmdDetect, args, nil
	case "dump-edid", "edid":
		return CmdDumpEDID, args, nil
	case "version", "-v", "--version":
		return CmdVersion, args, nil
	case "help", "-h", "--help":
		return CmdHelp, args, nil
	default:
		return CmdHelp, args, NewUsageError("unknown command %q", remaining[0])
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(argv []string) ([]string, Args, error) {
	var remaining []string
	var args Args

	for i := 0; i < len(argv); i++ {
		arg := argv[i]

		switch {
		case arg == "--debug":
			args.Debug = true
		case arg == "--json":
			args.JSON = true
		case arg == "--config":
			if i+1 >= len(argv) {
				return nil, args, NewUsageError("--config requires a path")
			}
			i++
			args.ConfigPath = argv[i]
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, args, nil
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// Streams are the process's standard streams. Tests substitute buffers.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Main parses argv, runs the command and returns the process exit code.
func Main(ctx context.Context, argv []string, s Streams) int {
	cmd, args, err := Parse(argv)
	if err != nil {
		DisplayError(s.Stderr, err)
		PrintUsage(s.Stderr)
		return ExitCode(err)
	}

	if err := Dispatch(ctx, cmd, args, s); err != nil {
		if args.JSON {
			NewJSONErrorResponse(cmd.String(), err).Print(s.Stdout)
		} else {
			DisplayError(s.Stderr, err)
		}
		return ExitCode(err)
	}
	return ExitSuccess
}

// Dispatch runs one parsed command.
func Dispatch(ctx context.Context, cmd Command, args Args, s Streams) error {
	switch cmd {
	case CmdHelp:
		PrintUsage(s.Stdout)
		return nil
	case CmdVersion:
		return HandleVersion(args, s.Stdout)
	}

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	switch cmd {
	case CmdService:
		return HandleService(ctx, app, args, s)
	case CmdApply:
		return HandleApply(ctx, app, args, s)
	case CmdInit:
		return HandleInit(app, args, s.Stdout)
	case CmdDiff:
		return HandleDiff(ctx, app, args, s.Stdout)
	case CmdSettings:
		return HandleSettings(app, args, s.Stdout)
	case CmdDetect:
		return HandleDetect(ctx, app, args, s.Stdout)
	case CmdDumpEDID:
		return HandleDumpEDID(ctx, app, s.Stdout)
	default:
		return NewUsageError("unhandled command %s", cmd)
	}
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args, w io.Writer) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print(w)
	}
	PrintVersion(w)
	return nil
}
