// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// apply_cmd.go - One-shot reconciliation commands: apply, diff and init.

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jeranaias/rpi-bootcfg/internal/props"
	"github.com/jeranaias/rpi-bootcfg/internal/reboot"
	"github.com/jeranaias/rpi-bootcfg/internal/reconcile"
)

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// ApplyData is the --json form of apply.
type ApplyData struct {
	RunID        string             `json:"run_id"`
	Path         string             `json:"path"`
	Committed    bool               `json:"committed"`
	RebootNeeded bool               `json:"reboot_needed"`
	Actions      []reconcile.Action `json:"actions"`
}

// DiffData is the --json form of diff.
type DiffData struct {
	Path    string             `json:"path"`
	Exists  bool               `json:"exists"`
	Changed bool               `json:"changed"`
	Actions []reconcile.Action `json:"actions"`
	Text    string             `json:"text,omitempty"`
}

// InitData is the --json form of init.
type InitData struct {
	Path      string           `json:"path"`
	FileFound bool             `json:"file_found"`
	Updated   []props.Property `json:"updated"`
	Seeded    []props.Property `json:"seeded"`
	NotSet    []props.Property `json:"not_set"`
}

// =============================================================================
// APPLY
// =============================================================================

// answerFlags reads --yes/--no. Both at once is a usage error.
func answerFlags(p *ArgParser) (force, answer bool, err error) {
	yes, no := p.BoolFlag("yes"), p.BoolFlag("no")
	if yes && no {
		return false, false, NewUsageError("--yes and --no are mutually exclusive")
	}
	return yes || no, yes, nil
}

// HandleApply handles "apply": reconcile config.txt once and, when it
// changed, run the reboot confirmation.
func HandleApply(ctx context.Context, app *App, args Args, s Streams) error {
	p := NewArgParser(args.Raw, "yes", "no", "no-reboot", "json")
	jsonMode := args.JSON || p.BoolFlag("json")

	force, answer, err := answerFlags(p)
	if err != nil {
		return err
	}
	countdown := 0
	if p.HasFlag("countdown") {
		if countdown, err = p.FlagInt("countdown"); err != nil {
			return err
		}
	}

	interactive := !jsonMode && isTerminal(s.Stdin, s.Stdout)
	confirmer := NewConfirmer(ConfirmerOptions{
		Prompt:      app.Config.Prompt,
		Force:       force,
		Answer:      answer,
		Interactive: interactive,
		In:          s.Stdin,
		Out:         s.Stdout,
	})

	out, err := app.Reconciler(confirmer).Apply(ctx)
	if err != nil {
		return NewCommandError("apply", "reconcile", err)
	}

	if jsonMode {
		data := ApplyData{
			RunID:        out.RunID,
			Path:         app.Config.Boot.ConfigPath,
			Committed:    out.Committed,
			RebootNeeded: out.RebootNeeded,
			Actions:      out.Actions,
		}
		if err := NewJSONResponse("apply", data).Print(s.Stdout); err != nil {
			return err
		}
	} else {
		printActions(s.Stdout, app.Config.Boot.ConfigPath, out.Result)
	}

	if !out.RebootNeeded {
		return nil
	}
	if !app.Config.Reboot.Enabled || p.BoolFlag("no-reboot") {
		if !jsonMode {
			fmt.Fprintln(s.Stdout, WarningStyle.Render("Reboot required for the changes to take effect."))
		}
		return nil
	}

	if _, err := reboot.MaybeReboot(ctx, app.RebootConfirmer(interactive, countdown), app.Rebooter()); err != nil {
		return NewCommandError("apply", "reboot", err)
	}
	return nil
}

// =============================================================================
// DIFF
// =============================================================================

// HandleDiff handles "diff": show what apply would do without writing.
// Safety prompts are answered from policy unless --yes/--no is given.
func HandleDiff(ctx context.Context, app *App, args Args, w io.Writer) error {
	p := NewArgParser(args.Raw, "yes", "no", "text", "json")
	jsonMode := args.JSON || p.BoolFlag("json")

	force, answer, err := answerFlags(p)
	if err != nil {
		return err
	}
	confirmer := NewConfirmer(ConfirmerOptions{Prompt: app.Config.Prompt, Force: force, Answer: answer})

	res, err := app.Reconciler(confirmer).Reconcile(ctx)
	if err != nil {
		return NewCommandError("diff", "reconcile", err)
	}

	if jsonMode {
		data := DiffData{
			Path:    app.Config.Boot.ConfigPath,
			Exists:  res.Exists,
			Changed: res.Changed,
			Actions: res.Actions,
		}
		if p.BoolFlag("text") {
			data.Text = res.Text
		}
		return NewJSONResponse("diff", data).Print(w)
	}

	printActions(w, app.Config.Boot.ConfigPath, res)
	if p.BoolFlag("text") && res.Changed {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SectionStyle.Render("Resulting file"))
		fmt.Fprint(w, res.Text)
	}
	return nil
}

// printActions lists every property that changes, then a summary line.
func printActions(w io.Writer, path string, res reconcile.Result) {
	fmt.Fprintln(w, TitleStyle.Render("config.txt: "+path))
	if !res.Exists {
		fmt.Fprintln(w, DimStyle.Render("(file does not exist and will be created)"))
	}

	changes := 0
	for _, a := range res.Actions {
		switch a.Kind {
		case reconcile.ActionUnchanged, reconcile.ActionSkip:
			continue
		}
		changes++
		switch a.Kind {
		case reconcile.ActionComment:
			fmt.Fprintf(w, "  %s %s%s\n", RenderAction(a.Kind), RenderLabel(string(a.Prop)), DimStyle.Render("#"+a.Old))
		case reconcile.ActionUpdate:
			if a.Old != "" && a.Old != a.New {
				fmt.Fprintf(w, "  %s %s%s -> %s\n", RenderAction(a.Kind), RenderLabel(string(a.Prop)), a.Old, ValueStyle.Render(a.New))
			} else {
				fmt.Fprintf(w, "  %s %s%s\n", RenderAction(a.Kind), RenderLabel(string(a.Prop)), ValueStyle.Render(a.New))
			}
		default:
			fmt.Fprintf(w, "  %s %s%s\n", RenderAction(a.Kind), RenderLabel(string(a.Prop)), ValueStyle.Render(a.New))
		}
	}

	switch {
	case changes == 0 && !res.Changed:
		fmt.Fprintln(w, SuccessStyle.Render("No changes."))
	case changes == 1:
		fmt.Fprintln(w, "1 change.")
	default:
		fmt.Fprintf(w, "%d changes.\n", changes)
	}
}

// =============================================================================
// INIT
// =============================================================================

// HandleInit handles "init": seed the settings store from config.txt.
func HandleInit(app *App, args Args, w io.Writer) error {
	p := NewArgParser(args.Raw, "json")
	path := app.Config.Boot.ConfigPath

	report, err := reconcile.Initialize(app.Catalog, app.Store, path)
	if err != nil {
		return NewCommandError("init", "seed", err)
	}

	if args.JSON || p.BoolFlag("json") {
		return NewJSONResponse("init", InitData{
			Path:      path,
			FileFound: report.FileFound,
			Updated:   report.Updated,
			Seeded:    report.Seeded,
			NotSet:    report.NotSet,
		}).Print(w)
	}

	if !report.FileFound {
		fmt.Fprintf(w, "%s not found; settings left unchanged.\n", path)
		return nil
	}
	fmt.Fprintln(w, TitleStyle.Render("Seeded settings from "+path))
	for _, prop := range report.Updated {
		fmt.Fprintf(w, "  %s %s\n", SuccessStyle.Render("[UPDATED]"), prop)
	}
	for _, prop := range report.Seeded {
		fmt.Fprintf(w, "  %s %s\n", SuccessStyle.Render("[SEEDED]"), prop)
	}
	fmt.Fprintf(w, "%d updated, %d seeded, %d not in file.\n", len(report.Updated), len(report.Seeded), len(report.NotSet))
	return nil
}
