// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring the application config into the working parts.

package cli

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jeranaias/rpi-bootcfg/internal/config"
	"github.com/jeranaias/rpi-bootcfg/internal/mount"
	"github.com/jeranaias/rpi-bootcfg/internal/props"
	"github.com/jeranaias/rpi-bootcfg/internal/reboot"
	"github.com/jeranaias/rpi-bootcfg/internal/reconcile"
	"github.com/jeranaias/rpi-bootcfg/internal/settings"
	"github.com/jeranaias/rpi-bootcfg/internal/util"
)

// App holds everything a command needs, built from one Config.
type App struct {
	Config    *config.Config
	Catalog   *props.Catalog
	Store     settings.Store
	Runner    util.Runner
	Remounter mount.Remounter

	logCloser io.Closer
}

// NewApp loads the application config named by args and builds the App.
func NewApp(args Args) (*App, error) {
	path := config.ResolvePath(args.ConfigPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errConfig, path, err)
	}
	if args.Debug {
		cfg.Log.Debug = true
	}

	closer, err := util.SetupLogging(cfg.Log.File, cfg.Log.Debug)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}

	app, err := NewAppFromConfig(cfg, util.ExecRunner{})
	if err != nil {
		closer.Close()
		return nil, err
	}
	app.logCloser = closer
	util.Debugf("APP_CONFIG | path=%s variant=%s store=%s:%s", path, cfg.Boot.Variant, cfg.Store.Backend, cfg.Store.Path)
	return app, nil
}

// NewAppFromConfig builds the App for cfg, running external commands with
// runner.
func NewAppFromConfig(cfg *config.Config, runner util.Runner) (*App, error) {
	cat, err := props.ForVariant(cfg.Boot.Variant)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}

	remounter, err := mount.New(cfg.Mount.Method, runner)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}

	store, err := settings.Open(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Catalog:   cat,
		Store:     store,
		Runner:    runner,
		Remounter: remounter,
	}, nil
}

// Close releases the store and the log file.
func (a *App) Close() error {
	err := a.Store.Close()
	if err != nil {
		log.Printf("STORE_CLOSE_FAILED | error=%v", err)
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
	return err
}

// Reconciler returns a Reconciler for config.txt that answers safety
// prompts with confirmer.
func (a *App) Reconciler(confirmer reconcile.Confirmer) *reconcile.Reconciler {
	return reconcile.New(reconcile.Options{
		Catalog:    a.Catalog,
		Store:      a.Store,
		Confirmer:  confirmer,
		Path:       a.Config.Boot.ConfigPath,
		MountPoint: a.Config.Mount.Point,
		Remounter:  a.Remounter,
	})
}

// Rebooter returns the configured reboot command.
func (a *App) Rebooter() reboot.Rebooter {
	return reboot.CommandRebooter{Runner: a.Runner, Command: a.Config.Reboot.Command}
}

// RebootConfirmer returns the on-screen countdown when interactive and the
// logged countdown otherwise. seconds overrides the configured length when
// positive.
func (a *App) RebootConfirmer(interactive bool, seconds int) reboot.Confirmer {
	if seconds <= 0 {
		seconds = a.Config.Reboot.CountdownSecs
	}
	if interactive {
		return reboot.InteractiveConfirmer{Ticks: seconds, Interval: time.Second}
	}
	return reboot.CountdownConfirmer{Countdown: reboot.Countdown{Ticks: seconds, Interval: time.Second}}
}
