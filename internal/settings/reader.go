// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

// Reader turns raw stored strings into typed Values.
type Reader struct {
	store Store
}

// NewReader returns a Reader over store.
func NewReader(store Store) *Reader {
	return &Reader{store: store}
}

// Store returns the underlying store.
func (r *Reader) Store() Store {
	return r.store
}

// Read returns the typed value of the named setting. Errors come only from
// the store itself; malformed values degrade per ParseValue.
func (r *Reader) Read(name string) (Value, error) {
	raw, err := r.store.Get(name)
	if err != nil {
		return Absent(), err
	}
	return ParseValue(raw), nil
}

// Raw returns the untyped stored string.
func (r *Reader) Raw(name string) (string, error) {
	return r.store.Get(name)
}
