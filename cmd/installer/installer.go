// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rpi-bootcfg/internal/config"
	"github.com/jeranaias/rpi-bootcfg/internal/detect"
	"github.com/jeranaias/rpi-bootcfg/internal/props"
	"github.com/jeranaias/rpi-bootcfg/internal/reconcile"
	"github.com/jeranaias/rpi-bootcfg/internal/settings"
	"github.com/jeranaias/rpi-bootcfg/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")). // Purple
			Bold(true).
			MarginBottom(1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")). // Emerald
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")). // Red
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")) // Amber

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")) // Gray
)

// =============================================================================
// OPTIONS
// =============================================================================

// minFreeBytes is what the settings store and logs need at the very least.
const minFreeBytes = 1 << 20

// Options controls what the installer writes.
type Options struct {
	ConfigPath string // application config to create
	Variant    string
	Backend    string
	UnitPath   string // systemd unit to create; empty skips it
	BinaryPath string // ExecStart binary

	// Init seeds the settings store from config.txt after installing.
	Init bool

	// Force overwrites an existing application config.
	Force bool
}

// CheckStatus is the outcome of one system check.
type CheckStatus int

const (
	CheckOK CheckStatus = iota
	CheckWarn
	CheckFail
)

// CheckResult is one system check row.
type CheckResult struct {
	Name   string
	Status CheckStatus
	Detail string
}

// Installer sets up rpi-bootcfg on a device.
type Installer struct {
	opts Options
	cfg  *config.Config
	out  io.Writer

	// lookPath finds helper binaries; replaced in tests.
	lookPath func(string) (string, error)
}

// NewInstaller builds the application config the installer will write.
func NewInstaller(opts Options, out io.Writer) (*Installer, error) {
	cfg := config.Default()
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultPath
	}
	if opts.Variant != "" {
		cfg.Boot.Variant = opts.Variant
	}
	if opts.Backend != "" && opts.Backend != cfg.Store.Backend {
		cfg.Store.Backend = opts.Backend
		if opts.Backend == settings.BackendSQLite {
			cfg.Store.Path = strings.TrimSuffix(cfg.Store.Path, filepath.Ext(cfg.Store.Path)) + ".db"
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Installer{opts: opts, cfg: cfg, out: out, lookPath: exec.LookPath}, nil
}

// =============================================================================
// SYSTEM CHECKS
// =============================================================================

// Check runs the system checks. Only CheckFail rows block installation.
func (i *Installer) Check() []CheckResult {
	var results []CheckResult

	arch := detect.Arch(i.cfg.Boot.ArchFile)
	if detect.IsRPi(arch) {
		results = append(results, CheckResult{"Platform", CheckOK, arch})
	} else {
		results = append(results, CheckResult{"Platform", CheckWarn, arch + " (the service refuses to run unless boot.require_rpi = false)"})
	}

	if _, err := os.Stat(i.cfg.Boot.ConfigPath); err == nil {
		results = append(results, CheckResult{"config.txt", CheckOK, i.cfg.Boot.ConfigPath})
	} else {
		results = append(results, CheckResult{"config.txt", CheckWarn, i.cfg.Boot.ConfigPath + " not found, it will be created on first change"})
	}

	results = append(results, i.checkDisk(filepath.Dir(i.cfg.Store.Path)))

	for _, tool := range []string{i.cfg.Hardware.Vcgencmd, i.cfg.Hardware.Tvservice} {
		if p, err := i.lookPath(tool); err == nil {
			results = append(results, CheckResult{tool, CheckOK, p})
		} else {
			results = append(results, CheckResult{tool, CheckWarn, "not found, hardware detection is limited"})
		}
	}
	return results
}

// checkDisk checks the nearest existing ancestor of dir.
func (i *Installer) checkDisk(dir string) CheckResult {
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	free, err := getFreeDiskSpace(dir)
	switch {
	case err != nil:
		return CheckResult{"Disk Space", CheckWarn, err.Error()}
	case free < minFreeBytes:
		return CheckResult{"Disk Space", CheckFail, fmt.Sprintf("%d KB free in %s", free/1024, dir)}
	default:
		return CheckResult{"Disk Space", CheckOK, fmt.Sprintf("%d MB free in %s", free/(1<<20), dir)}
	}
}

// PrintChecks writes the check table and reports whether any check failed.
func (i *Installer) PrintChecks(results []CheckResult) bool {
	failed := false
	for _, r := range results {
		var tag string
		switch r.Status {
		case CheckOK:
			tag = successStyle.Render("[OK]")
		case CheckWarn:
			tag = warningStyle.Render("[!!]")
		default:
			tag = errorStyle.Render("[FAIL]")
			failed = true
		}
		fmt.Fprintf(i.out, "  %s %s: %s\n", tag, r.Name, dimStyle.Render(r.Detail))
	}
	return failed
}

// =============================================================================
// INSTALL
// =============================================================================

// Install writes the application config, the service unit and, when asked,
// seeds the settings store.
func (i *Installer) Install() error {
	if err := i.writeConfig(); err != nil {
		return err
	}
	if i.opts.UnitPath != "" {
		if err := i.writeUnit(); err != nil {
			return err
		}
	}
	if i.opts.Init {
		return i.seedSettings()
	}
	return nil
}

func (i *Installer) writeConfig() error {
	if _, err := os.Stat(i.opts.ConfigPath); err == nil && !i.opts.Force {
		fmt.Fprintf(i.out, "  %s %s exists, keeping it (use --force to replace)\n", warningStyle.Render("[!!]"), i.opts.ConfigPath)
		existing, err := config.Load(i.opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("existing config is invalid: %w", err)
		}
		i.cfg = existing
		return nil
	}

	if err := config.Save(i.cfg, i.opts.ConfigPath); err != nil {
		return err
	}
	fmt.Fprintf(i.out, "  %s Wrote %s\n", successStyle.Render("[OK]"), i.opts.ConfigPath)
	return nil
}

const unitTemplate = `[Unit]
Description=rpi-bootcfg config.txt sync service
After=local-fs.target

[Service]
ExecStart=%s --config %s service
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`

// UnitFile renders the systemd unit for the installed paths.
func (i *Installer) UnitFile() string {
	return fmt.Sprintf(unitTemplate, i.opts.BinaryPath, i.opts.ConfigPath)
}

func (i *Installer) writeUnit() error {
	if err := util.AtomicWriteFile(i.opts.UnitPath, []byte(i.UnitFile()), 0644); err != nil {
		return fmt.Errorf("failed to write service unit: %w", err)
	}
	fmt.Fprintf(i.out, "  %s Wrote %s\n", successStyle.Render("[OK]"), i.opts.UnitPath)
	return nil
}

func (i *Installer) seedSettings() error {
	cat, err := props.ForVariant(i.cfg.Boot.Variant)
	if err != nil {
		return err
	}
	store, err := settings.Open(i.cfg.Store.Backend, i.cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := reconcile.Initialize(cat, store, i.cfg.Boot.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	if !report.FileFound {
		fmt.Fprintf(i.out, "  %s %s not found, nothing to seed\n", warningStyle.Render("[!!]"), i.cfg.Boot.ConfigPath)
		return nil
	}
	fmt.Fprintf(i.out, "  %s Seeded %d settings from %s\n", successStyle.Render("[OK]"),
		len(report.Updated)+len(report.Seeded), i.cfg.Boot.ConfigPath)
	return nil
}

// errCancelled is returned when the user declines to continue.
var errCancelled = errors.New("installation cancelled")
