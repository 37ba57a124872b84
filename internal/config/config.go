// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/rpi-bootcfg/internal/mount"
	"github.com/jeranaias/rpi-bootcfg/internal/props"
	"github.com/jeranaias/rpi-bootcfg/internal/settings"
	"github.com/jeranaias/rpi-bootcfg/internal/util"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RPI_BOOTCFG_"

// DefaultPath is used when neither --config nor RPI_BOOTCFG_CONFIG is set.
const DefaultPath = "/storage/.config/rpi-bootcfg/config.toml"

// Prompt modes.
const (
	PromptTTY    = "tty"
	PromptPolicy = "policy"
)

// Policy answers for the safety gates.
const (
	OvervoltContinue = "continue"
	OvervoltFix      = "fix"
	USBEnable        = "enable"
	USBDisable       = "disable"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the rpi-bootcfg application configuration.
type Config struct {
	Boot     BootConfig     `toml:"boot"`
	Store    StoreConfig    `toml:"store"`
	Mount    MountConfig    `toml:"mount"`
	Reboot   RebootConfig   `toml:"reboot"`
	Prompt   PromptConfig   `toml:"prompt"`
	Watch    WatchConfig    `toml:"watch"`
	Log      LogConfig      `toml:"log"`
	Hardware HardwareConfig `toml:"hardware"`
}

// BootConfig locates config.txt and picks the property set.
type BootConfig struct {
	ConfigPath string `toml:"config_path"`
	// Variant is "classic" or "extended".
	Variant string `toml:"variant"`
	ArchFile   string `toml:"arch_file"`
	RequireRPi bool   `toml:"require_rpi"`
}

// StoreConfig selects the settings store.
type StoreConfig struct {
	// Backend is "toml" or "sqlite".
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// MountConfig controls the read-write bracket around config.txt writes.
type MountConfig struct {
	Point string `toml:"point"`
	// Method is "syscall", "command" or "none".
	Method string `toml:"method"`
}

// RebootConfig controls the restart after a committed change.
type RebootConfig struct {
	Enabled       bool     `toml:"enabled"`
	CountdownSecs int      `toml:"countdown_secs"`
	Command       []string `toml:"command"`
}

// PromptConfig controls how safety gates are answered.
type PromptConfig struct {
	// Mode "tty" asks on a terminal when one is attached and falls back to
	// the policy answers; "policy" never asks.
	Mode          string `toml:"mode"`
	Overvolt      string `toml:"overvolt"`
	MaxUSBCurrent string `toml:"max_usb_current"`
}

// WatchConfig tunes the settings file watcher.
type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// LogConfig controls logging.
type LogConfig struct {
	Debug bool   `toml:"debug"`
	File  string `toml:"file"`
}

// HardwareConfig points at the hardware probe sources.
type HardwareConfig struct {
	CPUInfoPath string `toml:"cpuinfo_path"`
	Vcgencmd    string `toml:"vcgencmd"`
	Tvservice   string `toml:"tvservice"`
	EDIDPath    string `toml:"edid_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Boot: BootConfig{
			ConfigPath: "/flash/config.txt",
			Variant:    props.VariantExtended,
			ArchFile:   "/etc/arch",
			RequireRPi: true,
		},
		Store: StoreConfig{
			Backend: settings.BackendTOML,
			Path:    "/storage/.config/rpi-bootcfg/settings.toml",
		},
		Mount: MountConfig{
			Point:  "/flash",
			Method: mount.MethodSyscall,
		},
		Reboot: RebootConfig{
			Enabled:       true,
			CountdownSecs: 10,
			Command:       []string{"reboot"},
		},
		Prompt: PromptConfig{
			Mode:          PromptTTY,
			Overvolt:      OvervoltFix,
			MaxUSBCurrent: USBDisable,
		},
		Watch: WatchConfig{
			DebounceMS: 250,
		},
		Hardware: HardwareConfig{
			CPUInfoPath: "/proc/cpuinfo",
			Vcgencmd:    "vcgencmd",
			Tvservice:   "tvservice",
			EDIDPath:    "/flash/edid.dat",
		},
	}
}

// Debounce returns the watcher debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// ResolvePath picks the config file: explicit path, then RPI_BOOTCFG_CONFIG,
// then DefaultPath.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads path (defaults when it does not exist), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path over cfg and fills anything left empty.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	fillDefaults(cfg)
	return nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Boot.ConfigPath == "" {
		cfg.Boot.ConfigPath = defaults.Boot.ConfigPath
	}
	if cfg.Boot.Variant == "" {
		cfg.Boot.Variant = defaults.Boot.Variant
	}
	if cfg.Boot.ArchFile == "" {
		cfg.Boot.ArchFile = defaults.Boot.ArchFile
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = defaults.Store.Backend
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaults.Store.Path
	}

	if cfg.Mount.Point == "" {
		cfg.Mount.Point = defaults.Mount.Point
	}
	if cfg.Mount.Method == "" {
		cfg.Mount.Method = defaults.Mount.Method
	}

	if cfg.Reboot.CountdownSecs == 0 {
		cfg.Reboot.CountdownSecs = defaults.Reboot.CountdownSecs
	}
	if len(cfg.Reboot.Command) == 0 {
		cfg.Reboot.Command = defaults.Reboot.Command
	}

	if cfg.Prompt.Mode == "" {
		cfg.Prompt.Mode = defaults.Prompt.Mode
	}
	if cfg.Prompt.Overvolt == "" {
		cfg.Prompt.Overvolt = defaults.Prompt.Overvolt
	}
	if cfg.Prompt.MaxUSBCurrent == "" {
		cfg.Prompt.MaxUSBCurrent = defaults.Prompt.MaxUSBCurrent
	}

	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = defaults.Watch.DebounceMS
	}

	if cfg.Hardware.CPUInfoPath == "" {
		cfg.Hardware.CPUInfoPath = defaults.Hardware.CPUInfoPath
	}
	if cfg.Hardware.Vcgencmd == "" {
		cfg.Hardware.Vcgencmd = defaults.Hardware.Vcgencmd
	}
	if cfg.Hardware.Tvservice == "" {
		cfg.Hardware.Tvservice = defaults.Hardware.Tvservice
	}
	if cfg.Hardware.EDIDPath == "" {
		cfg.Hardware.EDIDPath = defaults.Hardware.EDIDPath
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to path atomically.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# rpi-bootcfg configuration file")
	fmt.Fprintln(&buf, "# Generated by rpi-bootcfg - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

func oneOf(errs ValidateErrors, field, value string, allowed ...string) ValidateErrors {
	for _, a := range allowed {
		if value == a {
			return errs
		}
	}
	return append(errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf("invalid value '%s', must be one of: %s", value, strings.Join(allowed, ", ")),
	})
}

// Validate returns every problem found, as ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Boot.ConfigPath == "" {
		errs = append(errs, ValidationError{Field: "boot.config_path", Message: "must not be empty"})
	}
	errs = oneOf(errs, "boot.variant", c.Boot.Variant, props.VariantClassic, props.VariantExtended)

	errs = oneOf(errs, "store.backend", c.Store.Backend, settings.BackendTOML, settings.BackendSQLite)
	if c.Store.Path == "" {
		errs = append(errs, ValidationError{Field: "store.path", Message: "must not be empty"})
	}

	errs = oneOf(errs, "mount.method", c.Mount.Method, mount.MethodSyscall, mount.MethodCommand, mount.MethodNone)
	if c.Mount.Method != mount.MethodNone && c.Mount.Point == "" {
		errs = append(errs, ValidationError{Field: "mount.point", Message: "required unless method is none"})
	}

	if c.Reboot.CountdownSecs < 1 || c.Reboot.CountdownSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "reboot.countdown_secs",
			Message: fmt.Sprintf("must be between 1 and 300, got %d", c.Reboot.CountdownSecs),
		})
	}
	if c.Reboot.Enabled && len(c.Reboot.Command) == 0 {
		errs = append(errs, ValidationError{Field: "reboot.command", Message: "required when reboot is enabled"})
	}

	errs = oneOf(errs, "prompt.mode", c.Prompt.Mode, PromptTTY, PromptPolicy)
	errs = oneOf(errs, "prompt.overvolt", c.Prompt.Overvolt, OvervoltContinue, OvervoltFix)
	errs = oneOf(errs, "prompt.max_usb_current", c.Prompt.MaxUSBCurrent, USBEnable, USBDisable)

	if c.Watch.DebounceMS < 0 {
		errs = append(errs, ValidationError{Field: "watch.debounce_ms", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func envBool(value string) bool {
	return value == "1" || strings.ToLower(value) == "true"
}

// ApplyEnvOverrides applies RPI_BOOTCFG_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	// RPI_BOOTCFG_CONFIG_TXT
	if p := os.Getenv(EnvPrefix + "CONFIG_TXT"); p != "" {
		c.Boot.ConfigPath = p
	}

	// RPI_BOOTCFG_VARIANT
	if v := os.Getenv(EnvPrefix + "VARIANT"); v != "" {
		c.Boot.Variant = v
	}

	// RPI_BOOTCFG_REQUIRE_RPI
	if v := os.Getenv(EnvPrefix + "REQUIRE_RPI"); v != "" {
		c.Boot.RequireRPi = envBool(v)
	}

	// RPI_BOOTCFG_STORE / RPI_BOOTCFG_STORE_PATH
	if v := os.Getenv(EnvPrefix + "STORE"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv(EnvPrefix + "STORE_PATH"); v != "" {
		c.Store.Path = v
	}

	// RPI_BOOTCFG_MOUNT_METHOD
	if v := os.Getenv(EnvPrefix + "MOUNT_METHOD"); v != "" {
		c.Mount.Method = v
	}

	// RPI_BOOTCFG_REBOOT
	if v := os.Getenv(EnvPrefix + "REBOOT"); v != "" {
		c.Reboot.Enabled = envBool(v)
	}

	// RPI_BOOTCFG_COUNTDOWN
	if v := os.Getenv(EnvPrefix + "COUNTDOWN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Reboot.CountdownSecs = n
		}
	}

	// RPI_BOOTCFG_DEBUG
	if v := os.Getenv(EnvPrefix + "DEBUG"); v != "" {
		c.Log.Debug = envBool(v)
	}

	// RPI_BOOTCFG_LOG_FILE
	if v := os.Getenv(EnvPrefix + "LOG_FILE"); v != "" {
		c.Log.File = v
	}
}
