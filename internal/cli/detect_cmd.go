// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// detect_cmd.go - Platform and board information.

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jeranaias/rpi-bootcfg/internal/detect"
	"github.com/jeranaias/rpi-bootcfg/internal/mount"
)

// DetectData is the --json form of detect.
type DetectData struct {
	Arch     string          `json:"arch"`
	IsRPi    bool            `json:"is_rpi"`
	Variant  string          `json:"variant"`
	Hardware detect.Identity `json:"hardware"`
}

// HandleDetect handles "detect".
func HandleDetect(ctx context.Context, app *App, args Args, w io.Writer) error {
	p := NewArgParser(args.Raw, "json")
	hw := app.Config.Hardware

	arch := detect.Arch(app.Config.Boot.ArchFile)
	data := DetectData{
		Arch:     arch,
		IsRPi:    detect.IsRPi(arch),
		Variant:  app.Catalog.Name,
		Hardware: detect.ProbeHardware(ctx, hw.CPUInfoPath, app.Runner, hw.Vcgencmd),
	}

	if args.JSON || p.BoolFlag("json") {
		return NewJSONResponse("detect", data).Print(w)
	}

	status := SuccessStyle.Render("yes")
	if !data.IsRPi {
		status = WarningStyle.Render("no")
	}
	id := data.Hardware

	fmt.Fprintln(w, TitleStyle.Render("Platform"))
	fmt.Fprintf(w, "  %s%s\n", RenderLabel("Arch"), arch)
	fmt.Fprintf(w, "  %s%s\n", RenderLabel("Raspberry Pi"), status)
	fmt.Fprintf(w, "  %s%s\n", RenderLabel("Property set"), data.Variant)

	fmt.Fprintln(w, SectionStyle.Render("Board"))
	fmt.Fprintf(w, "  %s%s\n", RenderLabel("Revision"), orUnknown(id.Revision))
	model := id.Model
	if id.HasType() && model == "" {
		model = fmt.Sprintf("type 0x%02x", id.Type)
	}
	fmt.Fprintf(w, "  %s%s\n", RenderLabel("Model"), orUnknown(model))
	ram := ""
	if id.RAMMB > 0 {
		ram = fmt.Sprintf("%d MB (%s)", id.RAMMB, id.RAMSource)
	}
	fmt.Fprintf(w, "  %s%s\n", RenderLabel("RAM"), orUnknown(ram))
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return DimStyle.Render("unknown")
	}
	return s
}

// HandleDumpEDID handles "dump-edid": save the attached display's EDID to
// the boot partition so config.txt can reference it.
func HandleDumpEDID(ctx context.Context, app *App, w io.Writer) error {
	hw := app.Config.Hardware
	err := mount.WithWritable(ctx, app.Remounter, app.Config.Mount.Point, func() error {
		return detect.DumpEDID(ctx, app.Runner, hw.Tvservice, hw.EDIDPath)
	})
	if err != nil {
		return NewCommandError("dump-edid", "tvservice", err)
	}
	fmt.Fprintf(w, "%s EDID written to %s\n", SuccessStyle.Render("[OK]"), hw.EDIDPath)
	return nil
}
