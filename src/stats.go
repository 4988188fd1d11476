package main

import (
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// StatsChannel is the status view of one channel.
type StatsChannel struct {
	Index    int     `json:"index"`
	State    string  `json:"state"`
	Paused   bool    `json:"paused"`
	SoundID  int     `json:"soundId"` // -1 if none
	Name     string  `json:"name"`
	Volume   float32 `json:"volume"`
	Speed    float32 `json:"speed"`
	Position int64   `json:"position"` // source samples
	Length   int64   `json:"length"`   // source samples
}

// StatsSfx is the status view of one loaded registry slot.
type StatsSfx struct {
	Slot     int    `json:"slot"`
	Name     string `json:"name"`
	Scope    string `json:"scope"`
	MaxPlays int    `json:"maxPlays"`
	Size     int    `json:"size"` // bytes
}

func (s SfxScope) String() string {
	switch s {
	case SS_Global:
		return "global"
	case SS_Stage:
		return "stage"
	}
	return "none"
}

// jsonKey escapes a name for use as one gjson/sjson path component.
var jsonKey = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`).Replace

// StatusJSON renders the pool and the registry as a JSON document:
//
//	{"globalVolume":0.5,"channels":[...],"sfx":[...]}
func (a *AudioSystem) StatusJSON() []byte {
	a.lock()
	defer a.mu.Unlock()
	data := []byte(`{}`)
	data, _ = sjson.SetBytes(data, "globalVolume", a.globalVolume)
	data, _ = sjson.SetRawBytes(data, "channels", []byte(`[]`))
	for i := range a.channels {
		ci := a.info(i)
		data, _ = sjson.SetBytes(data, "channels.-1", StatsChannel{
			Index:    ci.Index,
			State:    ci.State.Kind().String(),
			Paused:   ci.State.IsPaused(),
			SoundID:  ci.SoundID,
			Name:     ci.Name,
			Volume:   ci.Volume,
			Speed:    ci.Speed,
			Position: ci.Position,
			Length:   ci.Length,
		})
	}
	data, _ = sjson.SetRawBytes(data, "sfx", []byte(`[]`))
	for i := range a.sfx.slots {
		s := &a.sfx.slots[i]
		if !s.IsLoaded() {
			continue
		}
		data, _ = sjson.SetBytes(data, "sfx.-1", StatsSfx{
			Slot:     i,
			Name:     s.name,
			Scope:    s.scope.String(),
			MaxPlays: s.maxConcurrentPlays,
			Size:     len(s.buffer),
		})
	}
	return data
}

// StatusQuery looks a gjson path up in the current status, e.g.
// "channels.3.state" or "sfx.#(name==hit).slot".
func (a *AudioSystem) StatusQuery(path string) gjson.Result {
	return gjson.GetBytes(a.StatusJSON(), path)
}

// StatsLog counts plays for the lifetime of the process, e.g.
//
//	{"music":{"plays":2,"tracks":{"stage1.ogg":2}}}
type StatsLog struct {
	mu   sync.Mutex
	data []byte
}

func newStatsLog() *StatsLog {
	return &StatsLog{data: []byte(`{}`)}
}

func (s *StatsLog) add(path string, n int64) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := gjson.GetBytes(s.data, path).Int()
	s.data, _ = sjson.SetBytes(s.data, path, cur+n)
}

func (s *StatsLog) countPlay(kind, name string) {
	if name == "" {
		return
	}
	s.add(kind+".plays", 1)
	s.add(kind+".tracks."+jsonKey(name), 1)
}

func (s *StatsLog) Get(path string) gjson.Result {
	if s == nil {
		return gjson.Result{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return gjson.GetBytes(s.data, path)
}

