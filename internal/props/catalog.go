// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package props defines the fixed catalog of config.txt keys rpi-bootcfg manages.
package props

import "fmt"

// Property is a recognized config.txt key.
type Property string

// Setting names that are not config.txt properties.
const (
	SettingOverclockPreset = "overclock_preset"
	SettingDebug           = "debug"

	// Hardware facts seeded by the service when known.
	SettingHWRevision = "hw_revision"
	SettingHWType     = "hw_type"
	SettingHWRAMMB    = "hw_ram_mb"
)

// Properties that the safety gates inspect.
const (
	ForceTurbo    Property = "force_turbo"
	OverVoltage   Property = "over_voltage"
	MaxUSBCurrent Property = "max_usb_current"
	GPUMem        Property = "gpu_mem"
)

// Variant names accepted by ForVariant.
const (
	VariantClassic  = "classic"
	VariantExtended = "extended"
)

// =============================================================================
// CATALOG
// =============================================================================

// Backfill seeds derived settings from a legacy combined key during reverse
// initialization.
type Backfill struct {
	Legacy  Property
	Derived []Property
}

// Catalog is an immutable property set plus its preset table.
type Catalog struct {
	Name string

	// Overclock holds the properties presets assign, in positional order.
	Overclock []Property

	// Other holds every non-preset property, in write order.
	Other []Property

	// Presets in display order. Custom is not a table entry.
	Presets []Preset

	Backfills []Backfill

	// USBCurrentGate enables the max_usb_current confirmation.
	USBCurrentGate bool
}

// All returns the overclock properties followed by the other properties.
func (c *Catalog) All() []Property {
	all := make([]Property, 0, len(c.Overclock)+len(c.Other))
	all = append(all, c.Overclock...)
	all = append(all, c.Other...)
	return all
}

// Has reports whether p belongs to the catalog.
func (c *Catalog) Has(p Property) bool {
	for _, q := range c.Overclock {
		if q == p {
			return true
		}
	}
	for _, q := range c.Other {
		if q == p {
			return true
		}
	}
	return false
}

// Preset looks up a preset by exact name.
func (c *Catalog) Preset(name string) (Preset, bool) {
	for _, p := range c.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// PresetNames returns the table entries followed by Custom.
func (c *Catalog) PresetNames() []string {
	names := make([]string, 0, len(c.Presets)+1)
	for _, p := range c.Presets {
		names = append(names, p.Name)
	}
	return append(names, PresetCustom)
}

// ForVariant returns the catalog for a variant name.
func ForVariant(name string) (*Catalog, error) {
	switch name {
	case VariantClassic:
		return Classic(), nil
	case VariantExtended, "":
		return Extended(), nil
	default:
		return nil, fmt.Errorf("unknown property variant %q", name)
	}
}

// =============================================================================
// VARIANTS
// =============================================================================

var overclockProperties = []Property{
	"arm_freq",
	"core_freq",
	"sdram_freq",
	"over_voltage",
	"over_voltage_sdram",
}

var classicOther = []Property{
	"force_turbo",
	"initial_turbo",
	"gpu_mem",
	"hdmi_force_hotplug",
	"hdmi_drive",
	"hdmi_force_edid_audio",
	"sdtv_mode",
	"sdtv_aspect",
	"disable_overscan",
	"overscan_scale",
	"overscan_left",
	"overscan_right",
	"overscan_top",
	"overscan_bottom",
	"decode_MPG2",
	"decode_WVC1",
	"hdmi_ignore_cec",
	"disable_splash",
}

// Classic returns the original property set: four presets, no backfill,
// no USB current gate.
func Classic() *Catalog {
	return &Catalog{
		Name:      VariantClassic,
		Overclock: clone(overclockProperties),
		Other:     clone(classicOther),
		Presets:   classicPresets(),
	}
}

// Extended returns the newer property set with the Disabled preset, the
// size-specific gpu_mem keys and the max_usb_current gate.
func Extended() *Catalog {
	other := []Property{
		"force_turbo",
		"initial_turbo",
		"gpu_mem",
		"gpu_mem_256",
		"gpu_mem_512",
		"gpu_mem_1024",
		"max_usb_current",
		"hdmi_force_hotplug",
		"hdmi_drive",
		"hdmi_group",
		"hdmi_mode",
		"hdmi_pixel_encoding",
		"config_hdmi_boost",
		"hdmi_force_edid_audio",
		"hdmi_ignore_cec",
		"sdtv_mode",
		"sdtv_aspect",
		"disable_overscan",
		"overscan_scale",
		"overscan_left",
		"overscan_right",
		"overscan_top",
		"overscan_bottom",
		"decode_MPG2",
		"decode_WVC1",
		"start_x",
		"disable_camera_led",
		"disable_splash",
	}

	presets := append([]Preset{disabledPreset()}, classicPresets()...)

	return &Catalog{
		Name:      VariantExtended,
		Overclock: clone(overclockProperties),
		Other:     other,
		Presets:   presets,
		Backfills: []Backfill{
			{Legacy: GPUMem, Derived: []Property{"gpu_mem_256", "gpu_mem_512", "gpu_mem_1024"}},
		},
		USBCurrentGate: true,
	}
}

func clone(p []Property) []Property {
	return append([]Property(nil), p...)
}
