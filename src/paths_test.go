package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathResolverPrecedence(t *testing.T) {
	root := t.TempDir()
	modA := filepath.Join(root, "modA")
	modB := filepath.Join(root, "modB")
	pack := filepath.Join(root, "data")
	writeFile(t, filepath.Join(pack, "Data/Sound/hit.wav"), []byte("pack"))
	writeFile(t, filepath.Join(pack, "Data/Sound/miss.wav"), []byte("pack"))
	writeFile(t, filepath.Join(modB, pack, "Data/Sound/hit.wav"), []byte("modB"))

	r := PathResolver{ModPaths: []string{modA, " ", modB}, DataPack: pack}
	assert.Equal(t, filepath.Join(modB, pack, "Data", "Sound", "hit.wav"), r.Resolve("Data/Sound", "hit.wav"))
	assert.Equal(t, filepath.Join(pack, "Data", "Sound", "miss.wav"), r.Resolve("Data/Sound", "miss.wav"))
	assert.Equal(t, filepath.Join(pack, "Data", "Sound", "miss.wav"), r.Resolve("Data/Sound", "\\miss.wav"))
	assert.Empty(t, r.Resolve("Data/Sound", "none.wav"))
	assert.Empty(t, r.Resolve("Data/Sound", ""))
}

func TestPathResolverAnyExt(t *testing.T) {
	root := t.TempDir()
	mod := filepath.Join(root, "mod")
	pack := filepath.Join(root, "data")
	writeFile(t, filepath.Join(pack, "Music/stage1.wav"), []byte("pack"))
	writeFile(t, filepath.Join(pack, "Music/boss/theme.mp3"), []byte("pack"))
	writeFile(t, filepath.Join(mod, pack, "Music/stage1.ogg"), []byte("mod"))
	writeFile(t, filepath.Join(mod, pack, "Music/stage1.ogg.bak"), []byte("mod"))

	r := PathResolver{ModPaths: []string{mod}, DataPack: pack}
	assert.Equal(t, filepath.Join(mod, pack, "Music", "stage1.ogg"), r.ResolveAnyExt("Music", "stage1.wav"))
	assert.Equal(t, filepath.Join(pack, "Music", "boss", "theme.mp3"), r.ResolveAnyExt("Music", "boss\\theme.ogg"))
	assert.Equal(t, filepath.Join(pack, "Music", "boss", "theme.mp3"), r.ResolveAnyExt("Music", "boss/THEME"))
	assert.Empty(t, r.ResolveAnyExt("Music", "stage2.wav"))

	// Without mods the data pack's exact file wins.
	r.ModPaths = nil
	assert.Equal(t, filepath.Join(pack, "Music", "stage1.wav"), r.ResolveAnyExt("Music", "stage1.wav"))
}
