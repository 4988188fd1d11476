package main

import (
	"log"
	"path/filepath"
)

// HostAdapter is the surface the host's intercepted audio calls land on.
// Failures come back as the sentinels the host already understands: -1 for
// slots and channels, false and 0 for queries.
type HostAdapter struct {
	audio    *AudioSystem
	paths    *PathResolver
	loops    *LoopCache
	tempo    TempoConfig
	musicDir string
	soundDir string
	music    bool
	stats    *StatsLog
	errLog   *log.Logger
}

type HostOptions struct {
	Paths    PathResolver
	Tempo    TempoConfig
	MusicDir string
	SoundDir string
	LoopFile string
	NoMusic  bool
	Stats    *StatsLog
}

func NewHostAdapter(audio *AudioSystem, opts HostOptions, errLog *log.Logger) *HostAdapter {
	paths := opts.Paths
	return &HostAdapter{
		audio:    audio,
		paths:    &paths,
		loops:    NewLoopCache(opts.LoopFile),
		tempo:    opts.Tempo,
		musicDir: opts.MusicDir,
		soundDir: opts.SoundDir,
		music:    !opts.NoMusic,
		stats:    opts.Stats,
		errLog:   errLog,
	}
}

func (h *HostAdapter) Audio() *AudioSystem { return h.audio }

func (h *HostAdapter) GetSfx(name string) int {
	return h.audio.FindSfx(name)
}

// LoadSfx reads a sound file into the registry. Relative paths are looked up
// in the mods and the data pack first.
func (h *HostAdapter) LoadSfx(filePath, name string, slot, maxConcurrentPlays int, scope SfxScope) int {
	if filePath == "" {
		return -1
	}
	path := filePath
	if !filepath.IsAbs(path) {
		if p := h.paths.Resolve(h.soundDir, filePath); p != "" {
			path = p
		} else if p := h.paths.Resolve("", filePath); p != "" {
			path = p
		}
	}
	id, err := h.audio.LoadSfx(path, name, slot, maxConcurrentPlays, scope)
	if err != nil {
		return -1
	}
	return id
}

func (h *HostAdapter) PlaySfx(id int, loopPoint int64, priority int32) {
	if h.audio.PlaySfx(id, loopPoint, priority) >= 0 {
		if sfx, ok := h.audio.Sfx(id); ok {
			h.stats.countPlay("sfx", sfx.Name())
		}
	}
}

// PlayStream plays a music file on channel and returns the channel, or -1.
// A tempo variant of the track already on the channel only changes its speed.
// async is accepted for call compatibility; loading is always synchronous.
func (h *HostAdapter) PlayStream(filename string, channel int, startSample, loopSample int64, async bool) int {
	if filename == "" {
		return -1
	}
	if channel < 0 || channel >= h.audio.ChannelCount() {
		h.errLog.Printf("Attempt to play stream on channel out of bounds: %v", channel)
		return -1
	}
	if !h.music {
		return -1
	}
	v := h.tempo.ParseTrackVariant(filename)
	if tc, ok := h.audio.TransitionTempo(channel, v.Name, v.Speed); ok {
		if tc.Changed() {
			h.errLog.Printf("Music %v on channel %v continues at %v, loop %v",
				v.Request, channel, tc.Position, tc.LoopPoint)
		}
		return channel
	}
	path := h.paths.ResolveAnyExt(h.musicDir, v.Name)
	if path == "" {
		h.errLog.Printf("Music not found: %v", v.Name)
		return -1
	}
	loopStart, loopEnd := int64(-1), int64(-1)
	if loopSample > 0 {
		loopStart = toSourceSamples(loopSample, v.Speed)
	}
	lt, err := h.loops.For(path)
	if err != nil {
		h.errLog.Printf("Loop overrides next to %v: %v", path, err)
	}
	if lo, ok := lt.Lookup(v.Name); ok {
		loopStart, loopEnd = lo.Apply(loopStart, loopEnd)
	}
	if err := h.audio.LoadStream(channel, path, v.Name, loopStart, loopEnd); err != nil {
		return -1
	}
	if v.Speed != 1 {
		h.audio.SetChannelSpeed(channel, v.Speed)
	}
	h.audio.PlayChannel(channel, toSourceSamples(startSample, v.Speed))
	h.stats.countPlay("music", v.Name)
	return channel
}

func (h *HostAdapter) SetChannelAttributes(ch int, volume, pan, speed float32) {
	h.audio.SetChannelAttributes(ch, volume, pan, speed)
}

func (h *HostAdapter) StopChannel(ch int) { h.audio.StopChannel(ch) }
func (h *HostAdapter) PauseChannel(ch int) { h.audio.PauseChannel(ch) }
func (h *HostAdapter) ResumeChannel(ch int) { h.audio.ResumeChannel(ch) }

func (h *HostAdapter) IsChannelActive(ch int) bool {
	return h.audio.IsChannelActive(ch)
}

// GetChannelPosition is the position in samples of the track variant the
// host asked for.
func (h *HostAdapter) GetChannelPosition(ch int) int64 {
	ci, ok := h.audio.Channel(ch)
	if !ok {
		h.errLog.Printf("Attempt to get position of channel out of bounds: %v", ch)
		return 0
	}
	if ci.State == CS_Idle {
		return 0
	}
	return toHostSamples(ci.Position, ci.Speed)
}

// StopMusic stops every music channel.
func (h *HostAdapter) StopMusic() int {
	return h.audio.StopStreams()
}

func (h *HostAdapter) ResetChannels() {
	h.audio.ResetChannels()
}

// ClearSfx frees the registry entries of scope and forgets cached loop
// tables, which is what a stage transition needs.
func (h *HostAdapter) ClearSfx(scope SfxScope) int {
	if scope == SS_Stage {
		h.loops.Reset()
	}
	return h.audio.ClearSfx(scope)
}

func (h *HostAdapter) SetGlobalVolume(v float32) {
	h.audio.SetGlobalVolume(v)
}
