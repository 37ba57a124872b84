// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// service_cmd.go - The long-running daemon.

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jeranaias/rpi-bootcfg/internal/service"
	"github.com/jeranaias/rpi-bootcfg/internal/watch"
)

// HandleService handles "service". It watches the settings store, reconciles
// on every change and on SIGHUP, and stops on SIGINT or SIGTERM.
func HandleService(ctx context.Context, app *App, args Args, s Streams) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := app.Config
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return NewCommandError("service", "watch", err)
	}
	watcher, err := watch.New(cfg.Store.Path, cfg.Debounce())
	if err != nil {
		return NewCommandError("service", "watch", err)
	}
	defer watcher.Close()

	interactive := isTerminal(s.Stdin, s.Stdout)
	reconciler := app.Reconciler(NewConfirmer(ConfirmerOptions{
		Prompt:      cfg.Prompt,
		Interactive: interactive,
		In:          s.Stdin,
		Out:         s.Stdout,
	}))

	svc := service.New(service.Options{
		Catalog:         app.Catalog,
		Store:           app.Store,
		Reconciler:      reconciler,
		ArchFile:        cfg.Boot.ArchFile,
		RequireRPi:      cfg.Boot.RequireRPi,
		CPUInfoPath:     cfg.Hardware.CPUInfoPath,
		Vcgencmd:        cfg.Hardware.Vcgencmd,
		Runner:          app.Runner,
		ForceDebug:      cfg.Log.Debug,
		RebootEnabled:   cfg.Reboot.Enabled,
		RebootConfirmer: app.RebootConfirmer(interactive, 0),
		Rebooter:        app.Rebooter(),
	})

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				log.Printf("SERVICE_SIGHUP")
				svc.Notify()
			}
		}
	}()

	if err := svc.Run(ctx, watcher.Events()); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	return nil
}
