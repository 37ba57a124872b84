// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/rpi-bootcfg/internal/bootcfg"
	"github.com/jeranaias/rpi-bootcfg/internal/mount"
	"github.com/jeranaias/rpi-bootcfg/internal/props"
	"github.com/jeranaias/rpi-bootcfg/internal/settings"
	"github.com/jeranaias/rpi-bootcfg/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrRead means config.txt exists but could not be read. Nothing was
	// written.
	ErrRead = errors.New("config read failed")

	// ErrWrite means the new config.txt was not committed. The file on disk
	// is either untouched or fully replaced, never partial.
	ErrWrite = errors.New("config write failed")
)

// =============================================================================
// ACTIONS
// =============================================================================

// ActionKind describes what reconciliation did to one property.
type ActionKind int

const (
	// ActionUnchanged: line present, active, same value.
	ActionUnchanged ActionKind = iota
	// ActionComment: active line disabled, existing value kept.
	ActionComment
	// ActionUpdate: line (re)activated or value changed.
	ActionUpdate
	// ActionAppend: new line added at the end.
	ActionAppend
	// ActionSkip: unset and not in the file, or already commented out.
	ActionSkip
	// ActionCreate: emitted into a newly created file.
	ActionCreate
)

// String returns the action name.
func (k ActionKind) String() string {
	switch k {
	case ActionUnchanged:
		return "unchanged"
	case ActionComment:
		return "comment"
	case ActionUpdate:
		return "update"
	case ActionAppend:
		return "append"
	case ActionSkip:
		return "skip"
	case ActionCreate:
		return "create"
	default:
		return "unknown"
	}
}

// Action is the outcome for one property.
type Action struct {
	Prop props.Property `json:"prop"`
	Kind ActionKind     `json:"-"`
	Name string         `json:"action"`
	Old  string         `json:"old,omitempty"`
	New  string         `json:"new,omitempty"`
}

func newAction(p props.Property, kind ActionKind, oldValue, newValue string) Action {
	return Action{Prop: p, Kind: kind, Name: kind.String(), Old: oldValue, New: newValue}
}

// Result is the outcome of diffing desired config against the file text.
type Result struct {
	Text    string
	Changed bool
	Exists  bool
	Actions []Action
}

// =============================================================================
// PLAN (PURE DIFF)
// =============================================================================

// Plan diffs d against text and returns the new text. When exists is false
// text is ignored and a fresh file is rendered from the present entries.
//
// Per property, in d's order:
//   - found, value absent, line active: comment it out keeping the file value
//   - found, value absent, line commented: leave it
//   - found, value present, commented or different: rewrite as active
//   - found, value present, active and equal: leave it
//   - not found, value present: append
//   - not found, value absent: nothing
//
// Only the first matching line of a key is ever touched.
func Plan(d *Desired, text string, exists bool) Result {
	if !exists {
		return planNewFile(d)
	}

	doc := bootcfg.Parse(text)
	var plan bootcfg.Plan
	actions := make([]Action, 0, d.Len())

	for _, e := range d.Entries() {
		key := string(e.Prop)
		m, found := doc.Find(key)

		switch {
		case found && e.Value.IsAbsent():
			if m.Commented {
				util.Debugf("RECONCILE_SKIP | key=%s reason=already_commented", key)
				actions = append(actions, newAction(e.Prop, ActionSkip, m.Value, ""))
				continue
			}
			log.Printf("RECONCILE_COMMENT | key=%s value=%s", key, m.Value)
			plan.Replace(m, bootcfg.CommentLine(key, m.Value))
			actions = append(actions, newAction(e.Prop, ActionComment, m.Value, ""))

		case found:
			want := e.Value.String()
			if !m.Commented && m.Value == want {
				util.Debugf("RECONCILE_UNCHANGED | key=%s value=%s", key, want)
				actions = append(actions, newAction(e.Prop, ActionUnchanged, m.Value, want))
				continue
			}
			log.Printf("RECONCILE_UPDATE | key=%s old=%s new=%s was_commented=%v", key, m.Value, want, m.Commented)
			plan.Replace(m, bootcfg.ActiveLine(key, want))
			actions = append(actions, newAction(e.Prop, ActionUpdate, m.Value, want))

		case !e.Value.IsAbsent():
			want := e.Value.String()
			log.Printf("RECONCILE_APPEND | key=%s value=%s", key, want)
			plan.Append(bootcfg.ActiveLine(key, want))
			actions = append(actions, newAction(e.Prop, ActionAppend, "", want))

		default:
			actions = append(actions, newAction(e.Prop, ActionSkip, "", ""))
		}
	}

	if plan.Empty() {
		return Result{Text: text, Exists: true, Actions: actions}
	}
	return Result{Text: doc.Apply(&plan), Changed: true, Exists: true, Actions: actions}
}

func planNewFile(d *Desired) Result {
	entries := d.Entries()
	kvs := make([]bootcfg.KeyValue, 0, len(entries))
	actions := make([]Action, 0, len(entries))

	for _, e := range entries {
		if e.Value.IsAbsent() {
			actions = append(actions, newAction(e.Prop, ActionSkip, "", ""))
			continue
		}
		kvs = append(kvs, bootcfg.KeyValue{Key: string(e.Prop), Value: e.Value.String()})
		actions = append(actions, newAction(e.Prop, ActionCreate, "", e.Value.String()))
	}

	return Result{Text: bootcfg.Render(kvs), Changed: true, Exists: false, Actions: actions}
}

// =============================================================================
// RECONCILER
// =============================================================================

// Options configures a Reconciler.
type Options struct {
	Catalog   *props.Catalog
	Store     settings.Store
	Confirmer Confirmer

	// Path is config.txt.
	Path string

	// MountPoint is the volume remounted read-write around writes.
	MountPoint string
	Remounter  mount.Remounter

	Writer util.FileWriter
}

// Reconciler syncs stored settings into config.txt. Calls to Reconcile and
// Apply are serialized so two notifications never interleave file access.
type Reconciler struct {
	opts   Options
	reader *settings.Reader
	mu     sync.Mutex
}

// New returns a Reconciler. A nil Catalog means props.Extended(); a nil
// Remounter means mount.Noop.
func New(opts Options) *Reconciler {
	if opts.Catalog == nil {
		opts.Catalog = props.Extended()
	}
	if opts.Remounter == nil {
		opts.Remounter = mount.Noop{}
	}
	return &Reconciler{opts: opts, reader: settings.NewReader(opts.Store)}
}

// Path returns the managed config.txt path.
func (r *Reconciler) Path() string {
	return r.opts.Path
}

// Desired resolves stored settings into the desired config and runs the
// safety gates, which may prompt.
func (r *Reconciler) Desired(ctx context.Context) (*Desired, error) {
	d, err := resolve(r.opts.Catalog, r.reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	applyGates(ctx, r.opts.Catalog, r.opts.Confirmer, d)
	return d, nil
}

// Reconcile computes the new config.txt text without writing anything.
func (r *Reconciler) Reconcile(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, err := r.Desired(ctx)
	if err != nil {
		return Result{}, err
	}
	return r.diff(d)
}

func (r *Reconciler) diff(d *Desired) (Result, error) {
	text, exists, err := readConfig(r.opts.Path)
	if err != nil {
		return Result{}, err
	}
	if !exists {
		log.Printf("RECONCILE_NEW_FILE | path=%s", r.opts.Path)
	}
	return Plan(d, text, exists), nil
}

// readConfig returns the file text and whether it exists.
func readConfig(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %s: %v", ErrRead, path, err)
	}
	return string(data), true, nil
}

// Outcome is the result of Apply.
type Outcome struct {
	RunID string
	Result

	// Committed is true once the new text has replaced config.txt.
	Committed bool

	// RebootNeeded is true only when a change was committed.
	RebootNeeded bool
}

// Apply runs a full reconciliation: resolve settings and gates, then under
// the write bracket read config.txt, diff, and atomically replace it when
// something changed.
//
// Errors wrap ErrRead or ErrWrite. On any error RebootNeeded is false.
func (r *Reconciler) Apply(ctx context.Context) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Outcome{RunID: uuid.NewString()}
	log.Printf("RECONCILE_START | run=%s path=%s catalog=%s", out.RunID, r.opts.Path, r.opts.Catalog.Name)

	d, err := r.Desired(ctx)
	if err != nil {
		log.Printf("RECONCILE_FAILED | run=%s error=%v", out.RunID, err)
		return out, err
	}

	err = mount.WithWritable(ctx, r.opts.Remounter, r.opts.MountPoint, func() error {
		res, err := r.diff(d)
		if err != nil {
			return err
		}
		out.Result = res
		if !res.Changed {
			return nil
		}
		if err := r.opts.Writer.Write(r.opts.Path, []byte(res.Text)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrWrite, r.opts.Path, err)
		}
		out.Committed = true
		return nil
	})

	if err != nil && out.Committed && errors.Is(err, mount.ErrRemount) {
		// The new file is in place; only the read-only restore failed.
		log.Printf("RECONCILE_RESTORE_RO_FAILED | run=%s error=%v", out.RunID, err)
		err = nil
	}
	if err != nil {
		if errors.Is(err, mount.ErrRemount) && !errors.Is(err, ErrWrite) {
			err = fmt.Errorf("%w: %w", ErrWrite, err)
		}
		log.Printf("RECONCILE_FAILED | run=%s committed=%v error=%v", out.RunID, out.Committed, err)
		return out, err
	}

	out.RebootNeeded = out.Committed
	if out.Committed {
		log.Printf("RECONCILE_COMMITTED | run=%s path=%s", out.RunID, r.opts.Path)
	} else {
		log.Printf("RECONCILE_NO_CHANGES | run=%s", out.RunID)
	}
	return out, nil
}
