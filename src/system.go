package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	lua "github.com/yuin/gopher-lua"
)

var sys = System{
	errLog: log.New(NewLogWriter(), "", log.LstdFlags),
}

// System struct, holds the data that is accessed globally through the program.
type System struct {
	cfg       Config
	cmdFlags  map[string]string
	errLog    *log.Logger
	logFile   *os.File
	engine    *BeepEngine
	audio     *AudioSystem
	host      *HostAdapter
	stats     *StatsLog
	luaLState *lua.LState
}

func (s *System) flag(name string) (string, bool) {
	v, ok := s.cmdFlags[name]
	return v, ok
}

// init brings up the audio engine, the channel pool and the Lua state.
func (s *System) init() (*lua.LState, error) {
	if p, ok := s.flag("-log"); ok && p != "" && p != "true" {
		f, err := os.Create(p)
		if err != nil {
			return nil, fmt.Errorf("failed to create log %v: %w", p, err)
		}
		s.logFile = f
		s.errLog.SetOutput(io.MultiWriter(NewLogWriter(), f))
	}
	var sink AudioSink = speakerSink{}
	if _, ok := s.flag("-nosound"); ok {
		sink = &manualSink{}
	}
	engine, err := NewBeepEngine(sink, beep.SampleRate(s.cfg.Sound.SampleRate),
		s.cfg.Sound.BufferSize, s.cfg.Sound.ResampleQuality, s.cfg.Sound.SoundFont)
	if err != nil {
		return nil, err
	}
	s.engine = engine
	s.audio = NewAudioSystem(engine, s.cfg.AudioOptions(), s.errLog)
	s.stats = newStatsLog()
	_, noMusic := s.flag("-nomusic")
	s.host = NewHostAdapter(s.audio, HostOptions{
		Paths:    PathResolver{ModPaths: s.cfg.Paths.ModPaths, DataPack: s.cfg.Paths.DataPack},
		Tempo:    s.cfg.TempoConfig(),
		MusicDir: s.cfg.Paths.MusicDir,
		SoundDir: s.cfg.Paths.SoundDir,
		LoopFile: s.cfg.Paths.LoopFile,
		NoMusic:  noMusic,
		Stats:    s.stats,
	}, s.errLog)
	s.errLog.Printf("Audio up: %v Hz, %v channels, %v sfx slots, mods %q, data pack %q",
		s.cfg.Sound.SampleRate, s.cfg.Sound.Channels, s.cfg.Sound.SfxSlots,
		s.cfg.Paths.ModPaths, s.cfg.Paths.DataPack)

	l := lua.NewState()
	l.Options.IncludeGoStackTrace = true
	l.OpenLibs()
	hostScriptInit(l, s.host, s.wait)
	return l, nil
}

// wait lets time pass for the script. Without a sound device the mix is
// pumped by hand instead of sleeping.
func (s *System) wait(d time.Duration) {
	if _, ok := s.engine.sink.(*manualSink); ok {
		s.engine.Pump(int(d.Seconds() * float64(s.cfg.Sound.SampleRate)))
		return
	}
	time.Sleep(d)
}

func (s *System) shutdown() {
	if s.luaLState != nil {
		s.luaLState.Close()
	}
	if s.audio != nil {
		s.audio.ResetChannels()
	}
	if s.engine != nil {
		s.engine.Close()
	}
	if s.stats != nil {
		s.errLog.Printf("Played %v music tracks, %v sound effects",
			s.stats.Get("music.plays").Int(), s.stats.Get("sfx.plays").Int())
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
}
