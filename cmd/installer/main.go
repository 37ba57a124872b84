// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/rpi-bootcfg/internal/config"
)

const version = "1.0.0"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errCancelled) {
			fmt.Println("Installation cancelled.")
			return
		}
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[ERROR]"), err)
		os.Exit(1)
	}
}

func run(argv []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("rpi-bootcfg-installer", flag.ContinueOnError)
	fs.SetOutput(stdout)

	var opts Options
	var yes, showVersion bool
	fs.StringVar(&opts.ConfigPath, "config", config.DefaultPath, "application config to create")
	fs.StringVar(&opts.Variant, "variant", "", "property set: classic or extended")
	fs.StringVar(&opts.Backend, "store", "", "settings store backend: toml or sqlite")
	fs.StringVar(&opts.UnitPath, "unit", "/storage/.config/system.d/rpi-bootcfg.service", "systemd unit to create (empty to skip)")
	fs.StringVar(&opts.BinaryPath, "binary", "/storage/.local/bin/rpi-bootcfg", "path of the rpi-bootcfg binary")
	fs.BoolVar(&opts.Init, "init", false, "seed settings from the current config.txt")
	fs.BoolVar(&opts.Force, "force", false, "replace an existing application config")
	fs.BoolVar(&yes, "yes", false, "do not ask for confirmation")
	fs.BoolVar(&showVersion, "version", false, "show version")
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if showVersion {
		fmt.Fprintf(stdout, "rpi-bootcfg installer v%s\n", version)
		return nil
	}

	inst, err := NewInstaller(opts, stdout)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, titleStyle.Render("rpi-bootcfg installer"))
	fmt.Fprintln(stdout, "System check:")
	if inst.PrintChecks(inst.Check()) {
		return errors.New("system check failed")
	}
	fmt.Fprintln(stdout)

	if !yes {
		if !isTerminal(stdin) {
			return errors.New("not a terminal; rerun with --yes")
		}
		fmt.Fprint(stdout, "Continue with installation? [y/N]: ")
		input, _ := bufio.NewReader(stdin).ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(input))
		if answer != "y" && answer != "yes" {
			return errCancelled
		}
	}

	if err := inst.Install(); err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, successStyle.Render("Done."))
	if opts.UnitPath != "" {
		fmt.Fprintln(stdout, dimStyle.Render("Enable the service with: systemctl enable --now rpi-bootcfg"))
	}
	return nil
}

// isTerminal checks if r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
