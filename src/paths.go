package main

import (
	"os"
	"path/filepath"
	"strings"
)

// PathResolver finds host data files in the installed mods first, then in
// the data pack itself.
type PathResolver struct {
	ModPaths []string
	DataPack string
}

// dirs lists the directories searched for files under sub, in priority
// order.
func (r *PathResolver) dirs(sub string) []string {
	var dirs []string
	for _, mod := range r.ModPaths {
		if mod = strings.TrimSpace(mod); mod != "" {
			dirs = append(dirs, filepath.Join(mod, r.DataPack, sub))
		}
	}
	return append(dirs, filepath.Join(r.DataPack, sub))
}

// Resolve returns the first existing sub/rel, or "".
func (r *PathResolver) Resolve(sub, rel string) string {
	if rel == "" {
		return ""
	}
	return SearchFile(normalizePath(rel), r.dirs(sub))
}

// ResolveAnyExt is Resolve for a file whose extension may differ from the
// one asked for: song.wav finds song.ogg. An exact match wins within a
// directory; otherwise entries are tried in name order.
func (r *PathResolver) ResolveAnyExt(sub, rel string) string {
	if rel == "" {
		return ""
	}
	rel = filepath.FromSlash(normalizePath(rel))
	want := filepath.Base(TrimExtension(rel))
	for _, dir := range r.dirs(sub) {
		full := filepath.Join(dir, rel)
		if FileExist(full) != "" {
			return full
		}
		entries, err := os.ReadDir(filepath.Dir(full))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(TrimExtension(e.Name()), want) && filepath.Ext(e.Name()) != "" {
				return filepath.Join(filepath.Dir(full), e.Name())
			}
		}
	}
	return ""
}

func normalizePath(p string) string {
	return strings.TrimLeft(strings.ReplaceAll(p, "\\", "/"), "/")
}
