// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"log"

	"github.com/jeranaias/rpi-bootcfg/internal/bootcfg"
	"github.com/jeranaias/rpi-bootcfg/internal/props"
	"github.com/jeranaias/rpi-bootcfg/internal/settings"
	"github.com/jeranaias/rpi-bootcfg/internal/util"
)

// =============================================================================
// DESIRED CONFIG
// =============================================================================

// Entry is one managed property and the value config.txt should carry.
// An Absent value means the property should be unset.
type Entry struct {
	Prop  props.Property
	Value settings.Value
}

// Desired is an insertion-ordered map from property to value. A property
// appears at most once; setting it again overwrites in place.
type Desired struct {
	entries []Entry
	index   map[props.Property]int
}

// NewDesired returns an empty Desired.
func NewDesired() *Desired {
	return &Desired{index: make(map[props.Property]int)}
}

// Set inserts or overwrites p.
func (d *Desired) Set(p props.Property, v settings.Value) {
	if i, ok := d.index[p]; ok {
		d.entries[i].Value = v
		return
	}
	d.index[p] = len(d.entries)
	d.entries = append(d.entries, Entry{Prop: p, Value: v})
}

// Get returns the value for p and whether p is present.
func (d *Desired) Get(p props.Property) (settings.Value, bool) {
	i, ok := d.index[p]
	if !ok {
		return settings.Absent(), false
	}
	return d.entries[i].Value, true
}

// Entries returns a copy of the entries in insertion order.
func (d *Desired) Entries() []Entry {
	return append([]Entry(nil), d.entries...)
}

// Len returns the number of entries.
func (d *Desired) Len() int {
	return len(d.entries)
}

// =============================================================================
// RESOLUTION
// =============================================================================

// resolve builds the desired config from stored settings (no safety gates).
//
// Overclock properties come either all from the selected preset or all from
// per-property settings when the preset is Custom, never a mix. An unknown
// preset name contributes no overclock properties. Other properties are
// included only when their setting is present. A stored value that is not a
// single config.txt value token leaves its key unmanaged.
func resolve(cat *props.Catalog, reader *settings.Reader) (*Desired, error) {
	d := NewDesired()

	preset, err := reader.Raw(props.SettingOverclockPreset)
	if err != nil {
		return nil, err
	}
	util.Debugf("RESOLVE_PRESET | preset=%q", preset)

	switch {
	case preset == props.PresetCustom:
		for _, p := range cat.Overclock {
			v, err := reader.Read(string(p))
			if err != nil {
				return nil, err
			}
			if !manageable(p, v) {
				continue
			}
			d.Set(p, v)
		}
	default:
		if entry, ok := cat.Preset(preset); ok {
			for i, p := range cat.Overclock {
				d.Set(p, entry.Slot(i))
			}
		} else if preset != "" {
			log.Printf("RESOLVE_PRESET_UNKNOWN | preset=%q overclock=unmanaged", preset)
		}
	}

	for _, p := range cat.Other {
		v, err := reader.Read(string(p))
		if err != nil {
			return nil, err
		}
		if v.IsAbsent() || !manageable(p, v) {
			continue
		}
		d.Set(p, v)
	}

	return d, nil
}

// manageable rejects values the line grammar cannot read back, which would
// otherwise be rewritten on every run.
func manageable(p props.Property, v settings.Value) bool {
	if v.IsAbsent() || bootcfg.ValidValue(v.String()) {
		return true
	}
	log.Printf("RECONCILE_INVALID_VALUE | key=%s value=%q action=skip", p, v.String())
	return false
}
