// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/jeranaias/rpi-bootcfg/internal/detect"
	"github.com/jeranaias/rpi-bootcfg/internal/props"
	"github.com/jeranaias/rpi-bootcfg/internal/reboot"
	"github.com/jeranaias/rpi-bootcfg/internal/reconcile"
	"github.com/jeranaias/rpi-bootcfg/internal/settings"
	"github.com/jeranaias/rpi-bootcfg/internal/util"
)

// ErrNotRPi is returned by Start when the platform gate rejects the host.
var ErrNotRPi = errors.New("not a Raspberry Pi")

// Options wires a Service.
type Options struct {
	Catalog    *props.Catalog
	Store      settings.Store
	Reconciler *reconcile.Reconciler

	// ArchFile is checked when RequireRPi is set.
	ArchFile   string
	RequireRPi bool

	// Hardware probe inputs. The probe only runs for the extended catalog.
	CPUInfoPath string
	Vcgencmd    string
	Runner      util.Runner

	// ForceDebug keeps debug logging on regardless of the debug setting.
	ForceDebug bool

	RebootEnabled   bool
	RebootConfirmer reboot.Confirmer
	Rebooter        reboot.Rebooter

	// OnApplied, when set, is called after every reconciliation.
	OnApplied func(reconcile.Outcome, error)
}

// Service waits for settings-changed notifications and reconciles
// config.txt after each one, strictly one at a time.
type Service struct {
	opts   Options
	reader *settings.Reader
	queue  *Queue
}

// New returns a Service. A nil Catalog means props.Extended().
func New(opts Options) *Service {
	if opts.Catalog == nil {
		opts.Catalog = props.Extended()
	}
	return &Service{
		opts:   opts,
		reader: settings.NewReader(opts.Store),
		queue:  NewQueue(),
	}
}

// Notify reports a settings change. Safe from any goroutine.
func (s *Service) Notify() {
	if !s.queue.Notify() {
		util.Debugf("SERVICE_NOTIFY_COALESCED")
	}
}

// Queue returns the notification queue.
func (s *Service) Queue() *Queue {
	return s.queue
}

// =============================================================================
// STARTUP
// =============================================================================

// Start runs the one-time startup steps: the platform gate, reverse
// initialization from config.txt and the hardware probe. Only the gate can
// fail; the other steps log and continue.
func (s *Service) Start(ctx context.Context) error {
	if s.opts.RequireRPi {
		arch := detect.Arch(s.opts.ArchFile)
		if !detect.IsRPi(arch) {
			log.Printf("SERVICE_REFUSED | arch=%s", arch)
			return fmt.Errorf("%w: arch %s", ErrNotRPi, arch)
		}
	}

	s.applyDebug()
	log.Printf("SERVICE_START | catalog=%s path=%s", s.opts.Catalog.Name, s.opts.Reconciler.Path())

	report, err := reconcile.Initialize(s.opts.Catalog, s.opts.Store, s.opts.Reconciler.Path())
	if err != nil {
		log.Printf("SERVICE_INIT_FAILED | error=%v", err)
	} else {
		log.Printf("SERVICE_INIT | found=%v updated=%d seeded=%d", report.FileFound, len(report.Updated), len(report.Seeded))
	}

	if s.opts.Catalog.Name == props.VariantExtended {
		id := detect.ProbeHardware(ctx, s.opts.CPUInfoPath, s.opts.Runner, s.opts.Vcgencmd)
		if err := SeedHardware(s.opts.Store, id); err != nil {
			log.Printf("SERVICE_HW_SEED_FAILED | error=%v", err)
		}
	}
	return nil
}

// SeedHardware stores the known facts of id. Unknown facts leave their
// settings untouched.
func SeedHardware(store settings.Store, id detect.Identity) error {
	facts := map[string]string{}
	if id.Revision != "" {
		facts[props.SettingHWRevision] = id.Revision
	}
	if id.HasType() {
		facts[props.SettingHWType] = strconv.Itoa(id.Type)
	}
	if id.RAMMB > 0 {
		facts[props.SettingHWRAMMB] = strconv.Itoa(id.RAMMB)
	}

	for _, name := range []string{props.SettingHWRevision, props.SettingHWType, props.SettingHWRAMMB} {
		value, ok := facts[name]
		if !ok {
			continue
		}
		current, err := store.Get(name)
		if err != nil {
			return err
		}
		if current == value {
			continue
		}
		if err := store.Set(name, value); err != nil {
			return err
		}
		log.Printf("SERVICE_HW_SEED | key=%s value=%s", name, value)
	}
	return nil
}

// applyDebug turns debug logging on or off from the debug setting.
func (s *Service) applyDebug() {
	enabled := s.opts.ForceDebug
	if !enabled {
		v, err := s.reader.Read(props.SettingDebug)
		if err != nil {
			log.Printf("SERVICE_DEBUG_READ_FAILED | error=%v", err)
		} else if n, ok := v.Number(); ok && n == 1 {
			enabled = true
		}
	}
	util.SetDebug(enabled)
}

// =============================================================================
// MAIN LOOP
// =============================================================================

// Run starts the service and then handles notifications until ctx is done.
// Notifications arrive from events (may be nil) and from Notify.
func (s *Service) Run(ctx context.Context, events <-chan struct{}) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	if events != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-events:
					if !ok {
						return
					}
					s.Notify()
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			received, coalesced := s.queue.Stats()
			log.Printf("SERVICE_STOP | notifications=%d coalesced=%d", received, coalesced)
			return nil
		case <-s.queue.C():
			s.handle(ctx)
		}
	}
}

// handle runs one reconciliation and, if config.txt changed, the reboot
// confirmation.
func (s *Service) handle(ctx context.Context) {
	s.applyDebug()

	out, err := s.opts.Reconciler.Apply(ctx)
	if s.opts.OnApplied != nil {
		s.opts.OnApplied(out, err)
	}
	if err != nil {
		log.Printf("SERVICE_APPLY_FAILED | run=%s error=%v", out.RunID, err)
		return
	}
	if !out.RebootNeeded {
		return
	}
	if !s.opts.RebootEnabled || s.opts.Rebooter == nil || s.opts.RebootConfirmer == nil {
		log.Printf("SERVICE_REBOOT_SKIPPED | run=%s reason=disabled", out.RunID)
		return
	}

	if _, err := reboot.MaybeReboot(ctx, s.opts.RebootConfirmer, s.opts.Rebooter); err != nil {
		log.Printf("SERVICE_REBOOT_FAILED | run=%s error=%v", out.RunID, err)
	}
}
