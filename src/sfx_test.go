package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, size int) (*SfxRegistry, string) {
	t.Helper()
	errLog, _ := newTestLogger()
	return newSfxRegistry(size, errLog), t.TempDir()
}

func writeFile(t *testing.T, path string, data []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestSfxLoadAutoSlot(t *testing.T) {
	r, dir := newTestRegistry(t, 3)
	a := writeFile(t, filepath.Join(dir, "a.wav"), []byte("aaaa"))

	for want := 0; want < 3; want++ {
		id, err := r.Load(a, "a", SlotAuto, 0, SS_Global)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	_, err := r.Load(a, "a", SlotAuto, 0, SS_Global)
	assert.ErrorIs(t, err, ErrNoFreeSlot)
}

func TestSfxLoadExplicitSlot(t *testing.T) {
	r, dir := newTestRegistry(t, 4)
	a := writeFile(t, filepath.Join(dir, "a.wav"), []byte("aaaa"))
	b := writeFile(t, filepath.Join(dir, "b.wav"), []byte("bbbbbb"))

	id, err := r.Load(a, "a", 2, 3, SS_Stage)
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	s := r.Get(2)
	require.NotNil(t, s)
	assert.Equal(t, "a", s.Name())
	assert.Equal(t, SS_Stage, s.Scope())
	assert.Equal(t, 3, s.MaxPlays())
	assert.Equal(t, []byte("aaaa"), s.Buffer())

	// Overwriting replaces the entry in place.
	_, err = r.Load(b, "b", 2, 0, SS_None)
	require.NoError(t, err)
	assert.Equal(t, "b", r.Get(2).Name())
	assert.Equal(t, SS_Global, r.Get(2).Scope())
	assert.Len(t, r.Get(2).Buffer(), 6)

	_, err = r.Load(a, "a", 4, 0, SS_Global)
	assert.ErrorIs(t, err, ErrSlotOutOfRange)
	_, err = r.Load(a, "a", -5, 0, SS_Global)
	assert.ErrorIs(t, err, ErrSlotOutOfRange)
}

func TestSfxLoadFailureKeepsSlot(t *testing.T) {
	r, dir := newTestRegistry(t, 2)
	a := writeFile(t, filepath.Join(dir, "a.wav"), []byte("aaaa"))
	_, err := r.Load(a, "a", 1, 0, SS_Global)
	require.NoError(t, err)

	_, err = r.Load(filepath.Join(dir, "missing.wav"), "x", 1, 0, SS_Global)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, "a", r.Get(1).Name())
	assert.Equal(t, []byte("aaaa"), r.Get(1).Buffer())

	empty := writeFile(t, filepath.Join(dir, "empty.wav"), nil)
	_, err = r.Load(empty, "e", 1, 0, SS_Global)
	assert.ErrorIs(t, err, ErrAllocationFailure)
	assert.Equal(t, "a", r.Get(1).Name())
}

func TestSfxNameTruncated(t *testing.T) {
	errLog, logs := newTestLogger()
	r := newSfxRegistry(1, errLog)
	a := writeFile(t, filepath.Join(t.TempDir(), "a.wav"), []byte("aaaa"))
	long := strings.Repeat("n", MaxNameLen+40)
	_, err := r.Load(a, long, SlotAuto, 0, SS_Global)
	require.NoError(t, err)
	assert.Len(t, r.Get(0).Name(), MaxNameLen)
	assert.Contains(t, logs.String(), "truncated")
	assert.Equal(t, 0, r.Find(long[:MaxNameLen]))
}

func TestSfxFind(t *testing.T) {
	r, dir := newTestRegistry(t, 4)
	a := writeFile(t, filepath.Join(dir, "a.wav"), []byte("aaaa"))
	_, err := r.Load(a, "punch", 1, 0, SS_Global)
	require.NoError(t, err)
	_, err = r.Load(a, "kick", 3, 0, SS_Global)
	require.NoError(t, err)

	assert.Equal(t, 1, r.Find("punch"))
	assert.Equal(t, 3, r.Find("kick"))
	assert.Equal(t, -1, r.Find("Punch"))
	assert.Equal(t, -1, r.Find(""))
	assert.Nil(t, r.Get(0))
	assert.Nil(t, r.Get(-1))
	assert.Nil(t, r.Get(4))
}

func TestSfxClearScope(t *testing.T) {
	r, dir := newTestRegistry(t, 4)
	a := writeFile(t, filepath.Join(dir, "a.wav"), []byte("aaaa"))
	r.Load(a, "g0", 0, 0, SS_Global)
	r.Load(a, "s1", 1, 0, SS_Stage)
	r.Load(a, "s2", 2, 0, SS_Stage)

	assert.Equal(t, 2, r.Clear(SS_Stage))
	assert.Equal(t, -1, r.Find("s1"))
	assert.Equal(t, 0, r.Find("g0"))
	assert.Equal(t, 0, r.Clear(SS_None))

	// Freed slots are reused by automatic placement.
	id, err := r.Load(a, "again", SlotAuto, 0, SS_Global)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}

func TestSfxLoadInvalidScope(t *testing.T) {
	r, dir := newTestRegistry(t, 2)
	a := writeFile(t, filepath.Join(dir, "a.wav"), []byte("aaaa"))
	_, err := r.Load(a, "a", 0, 0, SfxScope(7))
	assert.ErrorIs(t, err, ErrInvalidScope)
	assert.Nil(t, r.Get(0))
}
