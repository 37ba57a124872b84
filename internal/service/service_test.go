// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rpi-bootcfg/internal/detect"
	"github.com/jeranaias/rpi-bootcfg/internal/props"
	"github.com/jeranaias/rpi-bootcfg/internal/reconcile"
	"github.com/jeranaias/rpi-bootcfg/internal/settings"
	"github.com/jeranaias/rpi-bootcfg/internal/util"
)

// =============================================================================
// HELPERS
// =============================================================================

type answer bool

func (a answer) ConfirmReboot(context.Context) bool { return bool(a) }

type countingRebooter struct {
	mu    sync.Mutex
	count int
}

func (r *countingRebooter) Reboot(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return nil
}

func (r *countingRebooter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

type failingRunner struct{}

func (failingRunner) Run(context.Context, string, ...string) ([]byte, error) {
	return nil, errors.New("not found")
}

type env struct {
	dir      string
	config   string
	store    *settings.MemoryStore
	rebooter *countingRebooter
	applied  chan reconcile.Outcome
	opts     Options
}

func newEnv(t *testing.T, config string, values map[string]string) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		dir:      dir,
		config:   filepath.Join(dir, "config.txt"),
		store:    settings.NewMemoryStore(values),
		rebooter: &countingRebooter{},
		applied:  make(chan reconcile.Outcome, 8),
	}
	if config != "" {
		require.NoError(t, os.WriteFile(e.config, []byte(config), 0644))
	}

	cat := props.Extended()
	e.opts = Options{
		Catalog: cat,
		Store:   e.store,
		Reconciler: reconcile.New(reconcile.Options{
			Catalog:   cat,
			Store:     e.store,
			Confirmer: reconcile.PolicyConfirmer{Default: true},
			Path:      e.config,
		}),
		CPUInfoPath:     filepath.Join(dir, "cpuinfo"),
		Runner:          failingRunner{},
		RebootEnabled:   true,
		RebootConfirmer: answer(true),
		Rebooter:        e.rebooter,
		OnApplied: func(out reconcile.Outcome, err error) {
			if err == nil {
				e.applied <- out
			}
		},
	}
	return e
}

func (e *env) waitApplied(t *testing.T) reconcile.Outcome {
	t.Helper()
	select {
	case out := <-e.applied:
		return out
	case <-time.After(3 * time.Second):
		t.Fatal("no reconciliation ran")
		return reconcile.Outcome{}
	}
}

// =============================================================================
// QUEUE
// =============================================================================

func TestQueue_Coalesces(t *testing.T) {
	q := NewQueue()

	assert.True(t, q.Notify())
	assert.False(t, q.Notify())
	assert.False(t, q.Notify())

	<-q.C()
	select {
	case <-q.C():
		t.Fatal("burst must collapse into one notification")
	default:
	}

	assert.True(t, q.Notify())
	received, coalesced := q.Stats()
	assert.Equal(t, int64(4), received)
	assert.Equal(t, int64(2), coalesced)
}

// =============================================================================
// STARTUP
// =============================================================================

func TestStart_RefusesNonRPi(t *testing.T) {
	e := newEnv(t, "", nil)
	arch := filepath.Join(e.dir, "arch")
	require.NoError(t, os.WriteFile(arch, []byte("Generic.x86_64\n"), 0644))
	e.opts.ArchFile = arch
	e.opts.RequireRPi = true

	err := New(e.opts).Start(context.Background())
	assert.ErrorIs(t, err, ErrNotRPi)
}

func TestStart_InitializesAndSeedsHardware(t *testing.T) {
	e := newEnv(t, "arm_freq=900\ngpu_mem=128\n", nil)
	require.NoError(t, os.WriteFile(e.opts.CPUInfoPath, []byte("Revision\t: c03111\n"), 0644))
	e.opts.RequireRPi = true
	e.opts.ArchFile = filepath.Join(e.dir, "missing-arch")

	require.NoError(t, New(e.opts).Start(context.Background()))

	get := func(k string) string {
		v, _ := e.store.Get(k)
		return v
	}
	assert.Equal(t, "900", get("arm_freq"))
	assert.Equal(t, "128", get("gpu_mem_512"))
	assert.Equal(t, "c03111", get(props.SettingHWRevision))
	assert.Equal(t, "17", get(props.SettingHWType))
	assert.Equal(t, "4096", get(props.SettingHWRAMMB))
}

func TestSeedHardware_UnknownLeavesSettings(t *testing.T) {
	store := settings.NewMemoryStore(map[string]string{props.SettingHWRAMMB: "512"})

	require.NoError(t, SeedHardware(store, detect.Identity{Type: detect.TypeUnknown}))

	v, _ := store.Get(props.SettingHWRAMMB)
	assert.Equal(t, "512", v)
	v, _ = store.Get(props.SettingHWType)
	assert.Empty(t, v)
}

// =============================================================================
// MAIN LOOP
// =============================================================================

func TestRun_ReconcilesOnNotification(t *testing.T) {
	e := newEnv(t, "arm_freq=700\n", nil)
	svc := New(e.opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, events) }()

	// Start seeded arm_freq=700; now pick a preset.
	require.Eventually(t, func() bool {
		v, _ := e.store.Get("arm_freq")
		return v == "700"
	}, 3*time.Second, 10*time.Millisecond)
	require.NoError(t, e.store.Set(props.SettingOverclockPreset, "Medium"))
	events <- struct{}{}

	out := e.waitApplied(t)
	assert.True(t, out.Committed)
	assert.Eventually(t, func() bool { return e.rebooter.Count() == 1 }, 3*time.Second, 10*time.Millisecond)

	data, err := os.ReadFile(e.config)
	require.NoError(t, err)
	assert.Contains(t, string(data), "  arm_freq=900\n")

	// No setting changed: the next notification is a no-op.
	svc.Notify()
	out = e.waitApplied(t)
	assert.False(t, out.Changed)
	assert.Equal(t, 1, e.rebooter.Count())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_CancelledRebootKeepsChange(t *testing.T) {
	e := newEnv(t, "", map[string]string{"gpu_mem": "128"})
	e.opts.RebootConfirmer = answer(false)
	svc := New(e.opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx, nil)

	svc.Notify()
	out := e.waitApplied(t)
	assert.True(t, out.RebootNeeded)
	assert.Equal(t, 0, e.rebooter.Count())

	data, err := os.ReadFile(e.config)
	require.NoError(t, err)
	assert.Equal(t, "  gpu_mem=128\n", string(data))
}

func TestApplyDebug_FollowsSetting(t *testing.T) {
	e := newEnv(t, "", map[string]string{props.SettingDebug: "true"})
	svc := New(e.opts)

	svc.applyDebug()
	assert.True(t, util.DebugEnabled())

	require.NoError(t, e.store.Set(props.SettingDebug, "false"))
	svc.applyDebug()
	assert.False(t, util.DebugEnabled())

	e.opts.ForceDebug = true
	New(e.opts).applyDebug()
	assert.True(t, util.DebugEnabled())
	util.SetDebug(false)
}
