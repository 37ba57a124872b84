// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// settings_cmd.go - Inspecting and editing the settings store.
//
// Changing a setting here is what a running service reacts to: the store
// file changes, the watcher fires and config.txt is reconciled.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/rpi-bootcfg/internal/bootcfg"
	"github.com/jeranaias/rpi-bootcfg/internal/props"
	"github.com/jeranaias/rpi-bootcfg/internal/settings"
)

// SettingEntry is one row of "settings list".
type SettingEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Kind  string `json:"kind"`
	Group string `json:"group"`
}

// PresetEntry is one row of "settings presets".
type PresetEntry struct {
	Name   string            `json:"name"`
	Values map[string]string `json:"values"`
}

// Setting groups shown by "settings list".
const (
	groupControl   = "control"
	groupOverclock = "overclock"
	groupOther     = "other"
	groupHardware  = "hardware"
	groupUnknown   = "unknown"
)

// HandleSettings handles "settings <list|get|set|unset|presets>".
func HandleSettings(app *App, args Args, w io.Writer) error {
	p := NewArgParser(args.Raw, "json", "force")
	jsonMode := args.JSON || p.BoolFlag("json")

	switch p.Subcommand() {
	case "", "list", "ls":
		return settingsList(app, w, jsonMode)
	case "get":
		if p.PositionalCount() != 2 {
			return NewUsageError("usage: settings get <key>")
		}
		return settingsGet(app, w, p.Positional(1), jsonMode)
	case "set":
		if p.PositionalCount() != 3 {
			return NewUsageError("usage: settings set <key> <value>")
		}
		return settingsSet(app, w, p.Positional(1), p.Positional(2), p.BoolFlag("force"))
	case "unset", "rm", "delete":
		if p.PositionalCount() != 2 {
			return NewUsageError("usage: settings unset <key>")
		}
		return settingsUnset(app, w, p.Positional(1))
	case "presets":
		return settingsPresets(app, w, jsonMode)
	default:
		return NewUsageError("unknown settings subcommand %q", p.Subcommand())
	}
}

// settingGroup classifies name for cat. Unknown names return groupUnknown.
func settingGroup(cat *props.Catalog, name string) string {
	switch name {
	case props.SettingOverclockPreset, props.SettingDebug:
		return groupControl
	case props.SettingHWRevision, props.SettingHWType, props.SettingHWRAMMB:
		return groupHardware
	}
	for _, q := range cat.Overclock {
		if string(q) == name {
			return groupOverclock
		}
	}
	if cat.Has(props.Property(name)) {
		return groupOther
	}
	return groupUnknown
}

// knownNames lists every setting name for cat, in display order.
func knownNames(cat *props.Catalog) []string {
	names := []string{props.SettingOverclockPreset, props.SettingDebug}
	for _, prop := range cat.All() {
		names = append(names, string(prop))
	}
	if cat.Name == props.VariantExtended {
		names = append(names, props.SettingHWRevision, props.SettingHWType, props.SettingHWRAMMB)
	}
	return names
}

func settingsList(app *App, w io.Writer, jsonMode bool) error {
	names := knownNames(app.Catalog)
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}

	stored, err := app.Store.Keys()
	if err != nil {
		return NewCommandError("settings", "list", err)
	}
	for _, k := range stored {
		if !seen[k] {
			names = append(names, k)
		}
	}

	entries := make([]SettingEntry, 0, len(names))
	for _, name := range names {
		raw, err := app.Store.Get(name)
		if err != nil {
			return NewCommandError("settings", "list", err)
		}
		entries = append(entries, SettingEntry{
			Name:  name,
			Value: raw,
			Kind:  settings.ParseValue(raw).Kind().String(),
			Group: settingGroup(app.Catalog, name),
		})
	}

	if jsonMode {
		return NewJSONResponse("settings", entries).Print(w)
	}

	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Settings (%s, %s)", app.Catalog.Name, app.Config.Store.Backend)))
	group := ""
	for _, e := range entries {
		if e.Group != group {
			group = e.Group
			fmt.Fprintln(w, SectionStyle.Render(strings.ToUpper(group)))
		}
		value := ValueStyle.Render(e.Value)
		if e.Kind == settings.KindAbsent.String() {
			value = DimStyle.Render("(unset)")
		}
		fmt.Fprintf(w, "  %s%s\n", RenderLabel(e.Name), value)
	}
	return nil
}

func settingsGet(app *App, w io.Writer, name string, jsonMode bool) error {
	raw, err := app.Store.Get(name)
	if err != nil {
		return NewCommandError("settings", "get", err)
	}
	if jsonMode {
		return NewJSONResponse("settings", SettingEntry{
			Name:  name,
			Value: raw,
			Kind:  settings.ParseValue(raw).Kind().String(),
			Group: settingGroup(app.Catalog, name),
		}).Print(w)
	}
	fmt.Fprintln(w, raw)
	return nil
}

// validateSetting rejects names the catalog does not know and preset names
// that do not exist. An empty value is always accepted; it unsets.
func validateSetting(cat *props.Catalog, name, value string) error {
	if settingGroup(cat, name) == groupUnknown {
		return NewUsageError("unknown setting %q (use --force to store it anyway)", name)
	}
	if name == props.SettingOverclockPreset && strings.TrimSpace(value) != "" {
		for _, preset := range cat.PresetNames() {
			if preset == value {
				return nil
			}
		}
		return NewUsageError("unknown preset %q, must be one of: %s", value, strings.Join(cat.PresetNames(), ", "))
	}
	if v := settings.ParseValue(value); !v.IsAbsent() && !bootcfg.ValidValue(v.String()) {
		return NewUsageError("invalid value %q for %s: must be a number or a single word", value, name)
	}
	return nil
}

func settingsSet(app *App, w io.Writer, name, value string, force bool) error {
	if !force {
		if err := validateSetting(app.Catalog, name, value); err != nil {
			return err
		}
	}
	if err := app.Store.Set(name, value); err != nil {
		return NewCommandError("settings", "set", err)
	}
	if strings.TrimSpace(value) == "" {
		fmt.Fprintf(w, "%s %s unset\n", SuccessStyle.Render("[OK]"), name)
		return nil
	}
	fmt.Fprintf(w, "%s %s=%s\n", SuccessStyle.Render("[OK]"), name, value)
	return nil
}

func settingsUnset(app *App, w io.Writer, name string) error {
	if err := app.Store.Delete(name); err != nil {
		return NewCommandError("settings", "unset", err)
	}
	fmt.Fprintf(w, "%s %s unset\n", SuccessStyle.Render("[OK]"), name)
	return nil
}

func settingsPresets(app *App, w io.Writer, jsonMode bool) error {
	cat := app.Catalog
	entries := make([]PresetEntry, 0, len(cat.Presets))
	for _, preset := range cat.Presets {
		values := make(map[string]string, len(cat.Overclock))
		for i, prop := range cat.Overclock {
			values[string(prop)] = preset.Slot(i).String()
		}
		entries = append(entries, PresetEntry{Name: preset.Name, Values: values})
	}

	if jsonMode {
		return NewJSONResponse("presets", entries).Print(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("Overclock presets ("+cat.Name+")"))
	for _, e := range entries {
		parts := make([]string, 0, len(cat.Overclock))
		for _, prop := range cat.Overclock {
			v := e.Values[string(prop)]
			if v == "" {
				v = "-"
			}
			parts = append(parts, fmt.Sprintf("%s=%s", prop, v))
		}
		fmt.Fprintf(w, "  %s%s\n", RenderLabel(e.Name), strings.Join(parts, " "))
	}
	fmt.Fprintf(w, "  %s%s\n", RenderLabel(props.PresetCustom), DimStyle.Render("use the individual settings"))
	return nil
}
