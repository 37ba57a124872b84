// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/rpi-bootcfg/internal/util"
)

// =============================================================================
// TOML STORE
// =============================================================================

// TOMLStore keeps settings as a flat table of strings in a TOML file:
//
//	overclock_preset = "Medium"
//	force_turbo = "false"
//
// The file is re-read on every access so edits made by other processes (the
// settings UI, a text editor) are picked up without a restart. Writes go
// through util.AtomicWriteFile.
type TOMLStore struct {
	path string
	mu   sync.Mutex
}

// OpenTOMLStore returns a store backed by path. The file is created lazily
// on the first Set.
func OpenTOMLStore(path string) (*TOMLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty TOML store path", ErrStore)
	}
	s := &TOMLStore{path: path}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *TOMLStore) Path() string {
	return s.path
}

func (s *TOMLStore) load() (map[string]string, error) {
	values := make(map[string]string)

	raw := make(map[string]interface{})
	if _, err := toml.DecodeFile(s.path, &raw); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrStore, s.path, err)
	}

	// Hand-edited files may carry bare ints or bools; normalize to the
	// host's string representation.
	for k, v := range raw {
		switch tv := v.(type) {
		case string:
			values[k] = tv
		case bool:
			if tv {
				values[k] = TrueString
			} else {
				values[k] = FalseString
			}
		default:
			values[k] = fmt.Sprint(tv)
		}
	}
	return values, nil
}

func (s *TOMLStore) save(values map[string]string) error {
	var buf bytes.Buffer
	buf.WriteString("# rpi-bootcfg settings\n")
	buf.WriteString("# Managed by rpi-bootcfg; values are strings.\n\n")
	if err := toml.NewEncoder(&buf).Encode(values); err != nil {
		return fmt.Errorf("%w: failed to encode settings: %v", ErrStore, err)
	}
	if err := util.AtomicWriteFile(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// Get returns the stored value or "".
func (s *TOMLStore) Get(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	return values[name], nil
}

// Set stores value under name and rewrites the file.
func (s *TOMLStore) Set(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if current, ok := values[name]; ok && current == value {
		return nil
	}
	values[name] = value
	return s.save(values)
}

// Delete removes name and rewrites the file.
func (s *TOMLStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[name]; !ok {
		return nil
	}
	delete(values, name)
	return s.save(values)
}

// Keys returns the stored names in sorted order.
func (s *TOMLStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return nil, err
	}
	return sortedKeys(values), nil
}

// Close is a no-op; the file is not held open.
func (s *TOMLStore) Close() error { return nil }
