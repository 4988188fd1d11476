package main

import (
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/ini.v1"
)

// LoopOverride replaces the loop points the host sends for a track. Values
// are samples at 44.1 kHz, -1 when unset.
type LoopOverride struct {
	Start int64
	End   int64
}

// LoopTable holds the overrides of one MusicLoops.ini, keyed by lower-case
// track name without extension. Two layouts are accepted:
//
//	[song]
//	loopstart = 123456
//	loopend   = 654321
//
// and the legacy one-liner in the default section:
//
//	song = 123456
type LoopTable map[string]LoopOverride

func parseLoopTable(source interface{}) (LoopTable, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:             true,
		Loose:                   true,
		SkipUnrecognizableLines: true,
	}, source)
	if err != nil {
		return nil, err
	}
	lt := make(LoopTable)
	for _, section := range f.Sections() {
		if strings.EqualFold(section.Name(), ini.DefaultSection) {
			for _, key := range section.Keys() {
				name := strings.TrimSpace(key.Name())
				if name == "" {
					continue
				}
				lt[name] = LoopOverride{Start: key.MustInt64(-1), End: -1}
			}
			continue
		}
		lo := LoopOverride{Start: -1, End: -1}
		for _, key := range section.Keys() {
			// Synonyms follow the bgm.* keys of stage and motif definitions.
			switch strings.TrimSpace(key.Name()) {
			case "loopstart", "bgm.loopstart", "bgmloopstart":
				lo.Start = key.MustInt64(-1)
			case "loopend", "bgm.loopend", "bgmloopend":
				lo.End = key.MustInt64(-1)
			}
		}
		lt[strings.TrimSpace(section.Name())] = lo
	}
	return lt, nil
}

// Lookup finds the override for a track path or name.
func (lt LoopTable) Lookup(track string) (LoopOverride, bool) {
	name := strings.ToLower(filepath.Base(TrimExtension(filepath.FromSlash(normalizePath(track)))))
	lo, ok := lt[name]
	return lo, ok
}

// Apply replaces the set fields of an override.
func (lo LoopOverride) Apply(loopStart, loopEnd int64) (int64, int64) {
	if lo.Start >= 0 {
		loopStart = lo.Start
	}
	if lo.End >= 0 {
		loopEnd = lo.End
	}
	return loopStart, loopEnd
}

// LoopCache loads loop tables lazily, one per music directory.
type LoopCache struct {
	FileName string
	mu       sync.Mutex
	tables   map[string]LoopTable
}

func NewLoopCache(fileName string) *LoopCache {
	return &LoopCache{FileName: fileName, tables: make(map[string]LoopTable)}
}

// For returns the table next to the given track file. A missing file yields
// an empty table; a broken one is reported and also cached as empty.
func (lc *LoopCache) For(track string) (LoopTable, error) {
	dir := filepath.Dir(track)
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lt, ok := lc.tables[dir]; ok {
		return lt, nil
	}
	lt, err := parseLoopTable(filepath.Join(dir, lc.FileName))
	if err != nil {
		lt = LoopTable{}
	}
	lc.tables[dir] = lt
	return lt, err
}

// Reset drops every cached table.
func (lc *LoopCache) Reset() {
	lc.mu.Lock()
	lc.tables = make(map[string]LoopTable)
	lc.mu.Unlock()
}
