// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// VALUE TESTS
// =============================================================================

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want Value
	}{
		{"", Absent()},
		{"   ", Absent()},
		{"true", Bool(true)},
		{"false", Bool(false)},
		{"True", Text("True")},
		{"900", Int(900)},
		{" 900 ", Int(900)},
		{"-2", Int(-2)},
		{"Medium", Text("Medium")},
		{"  PAL  ", Text("PAL")},
		{"0x10", Text("0x10")},
	}

	for _, tc := range tests {
		got := ParseValue(tc.raw)
		assert.Truef(t, got.Equal(tc.want), "ParseValue(%q) = %v (%s), want %v (%s)",
			tc.raw, got, got.Kind(), tc.want, tc.want.Kind())
	}
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "", Absent().String())
	assert.Equal(t, "1", Bool(true).String())
	assert.Equal(t, "0", Bool(false).String())
	assert.Equal(t, "333", Int(333).String())
	assert.Equal(t, "abc", Text("abc").String())
}

func TestValue_Number(t *testing.T) {
	n, ok := Bool(true).Number()
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	n, ok = Int(6).Number()
	assert.True(t, ok)
	assert.Equal(t, 6, n)

	_, ok = Text("6x").Number()
	assert.False(t, ok)

	_, ok = Absent().Number()
	assert.False(t, ok)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "absent", KindAbsent.String())
	assert.Equal(t, "text", KindText.String())
	assert.Equal(t, "unknown", Kind(42).String())
}

// =============================================================================
// READER TESTS
// =============================================================================

func TestReader_Read(t *testing.T) {
	store := NewMemoryStore(map[string]string{
		"force_turbo": "true",
		"arm_freq":    "900",
		"sdtv_mode":   " 2",
		"hdmi_drive":  "",
	})
	r := NewReader(store)

	v, err := r.Read("force_turbo")
	require.NoError(t, err)
	assert.Equal(t, KindBool, v.Kind())

	v, err = r.Read("arm_freq")
	require.NoError(t, err)
	assert.True(t, v.Equal(Int(900)))

	v, err = r.Read("sdtv_mode")
	require.NoError(t, err)
	assert.True(t, v.Equal(Int(2)))

	v, err = r.Read("hdmi_drive")
	require.NoError(t, err)
	assert.True(t, v.IsAbsent())

	v, err = r.Read("never_set")
	require.NoError(t, err)
	assert.True(t, v.IsAbsent())
}

// =============================================================================
// STORE BACKEND TESTS
// =============================================================================

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	v, err := s.Get("arm_freq")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, s.Set("arm_freq", "900"))
	require.NoError(t, s.Set("overclock_preset", "Custom"))
	require.NoError(t, s.Set("arm_freq", "950"))

	v, err = s.Get("arm_freq")
	require.NoError(t, err)
	assert.Equal(t, "950", v)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"arm_freq", "overclock_preset"}, keys)

	require.NoError(t, s.Delete("arm_freq"))
	v, err = s.Get("arm_freq")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, s.Delete("not_there"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(nil))
}

func TestTOMLStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	s, err := OpenTOMLStore(path)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `overclock_preset = "Custom"`)
}

func TestTOMLStore_ExternalEditsVisible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	s, err := OpenTOMLStore(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("arm_freq = 800\nforce_turbo = true\n"), 0644))

	v, err := s.Get("arm_freq")
	require.NoError(t, err)
	assert.Equal(t, "800", v)

	v, err = s.Get("force_turbo")
	require.NoError(t, err)
	assert.Equal(t, "true", v)
}

func TestTOMLStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is = = not toml"), 0644))

	_, err := OpenTOMLStore(path)
	assert.ErrorIs(t, err, ErrStore)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "settings.db")
	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("gpu_mem", "128"))
	require.NoError(t, s.Close())

	s, err = OpenSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get("gpu_mem")
	require.NoError(t, err)
	assert.Equal(t, "128", v)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("etcd", "/tmp/x")
	assert.ErrorIs(t, err, ErrStore)
}
