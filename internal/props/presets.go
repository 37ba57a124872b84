// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package props

import "github.com/jeranaias/rpi-bootcfg/internal/settings"

// Preset sentinels that are not table lookups (Custom) or carry no values
// (Disabled).
const (
	PresetCustom   = "Custom"
	PresetDisabled = "Disabled"
)

// Preset maps a name to one value per overclock property, positionally
// aligned with Catalog.Overclock. An Absent slot means the property should
// be unset.
type Preset struct {
	Name   string
	Values []settings.Value
}

// Slot returns the value for position i, Absent when out of range.
func (p Preset) Slot(i int) settings.Value {
	if i < 0 || i >= len(p.Values) {
		return settings.Absent()
	}
	return p.Values[i]
}

func ints(values ...int) []settings.Value {
	out := make([]settings.Value, len(values))
	for i, v := range values {
		out[i] = settings.Int(v)
	}
	return out
}

// Order: arm_freq, core_freq, sdram_freq, over_voltage, over_voltage_sdram
func classicPresets() []Preset {
	return []Preset{
		{Name: "Modest", Values: ints(800, 300, 400, 0, 0)},
		{Name: "Medium", Values: ints(900, 333, 450, 2, 0)},
		{Name: "High", Values: ints(950, 450, 450, 6, 0)},
		{Name: "Turbo", Values: ints(1000, 500, 500, 6, 0)},
	}
}

func disabledPreset() Preset {
	values := make([]settings.Value, len(overclockProperties))
	for i := range values {
		values[i] = settings.Absent()
	}
	return Preset{Name: PresetDisabled, Values: values}
}
