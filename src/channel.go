package main

import (
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
)

// Loop points coming from the host are counted at this rate regardless of the
// stream's real sample rate.
const loopReferenceRate = 44100.0

type ChannelState uint8

const (
	CS_Idle   ChannelState = iota
	CS_Effect              // one-shot or looping sound effect
	CS_Stream              // music stream
	CS_Paused ChannelState = 0x40
)

func (s ChannelState) Kind() ChannelState { return s &^ CS_Paused }
func (s ChannelState) IsPaused() bool { return s&CS_Paused != 0 }

func (s ChannelState) String() string {
	var k string
	switch s.Kind() {
	case CS_Idle:
		k = "idle"
	case CS_Effect:
		k = "effect"
	case CS_Stream:
		k = "stream"
	default:
		k = fmt.Sprintf("state(%d)", uint8(s.Kind()))
	}
	if s.IsPaused() {
		k += "|paused"
	}
	return k
}

// AudioChannel is one playback voice. handle is 0 exactly when the channel is
// idle.
type AudioChannel struct {
	handle     StreamHandle
	state      ChannelState
	soundID    int
	priority   int32
	loopStart  int64 // bytes
	loopEnd    int64 // bytes, -1 syncs on stream end
	loopSample int64 // source samples at the reference rate
	name       string
	path       string
	volume     float32
	speed      float32
	// Written by the end sync of an effect on the mixing thread; holds the
	// handle that ran out.
	ended atomic.Uint32
}

func (c *AudioChannel) clear() {
	c.handle = 0
	c.state = CS_Idle
	c.soundID = -1
	c.priority = 0
	c.loopStart, c.loopEnd, c.loopSample = -1, -1, 0
	c.name, c.path = "", ""
	c.volume, c.speed = 1, 1
}

// ChannelInfo is a copy of a channel's bookkeeping.
type ChannelInfo struct {
	Index     int
	State     ChannelState
	SoundID   int
	Priority  int32
	Name      string
	Path      string
	Volume    float32
	Speed     float32
	LoopStart int64
	LoopEnd   int64
	Position  int64
	Length    int64
}

type AudioOptions struct {
	Channels             int
	SfxSlots             int
	GlobalVolume         float32
	LegacyByteConversion bool
}

// AudioSystem owns the channel pool and the effect registry and drives the
// engine. Every exported method is safe for concurrent use.
type AudioSystem struct {
	mu           sync.Mutex
	engine       Engine
	channels     []AudioChannel
	sfx          *SfxRegistry
	globalVolume float32
	legacyBytes  bool
	errLog       *log.Logger
}

func NewAudioSystem(engine Engine, opts AudioOptions, errLog *log.Logger) *AudioSystem {
	a := &AudioSystem{
		engine:       engine,
		channels:     make([]AudioChannel, MaxI(opts.Channels, 1)),
		sfx:          newSfxRegistry(MaxI(opts.SfxSlots, 1), errLog),
		globalVolume: float32(math.Max(0, float64(opts.GlobalVolume))),
		legacyBytes:  opts.LegacyByteConversion,
		errLog:       errLog,
	}
	for i := range a.channels {
		a.channels[i].clear()
	}
	return a
}

func (a *AudioSystem) ChannelCount() int { return len(a.channels) }
func (a *AudioSystem) SfxSlots() int { return a.sfx.count() }

func (a *AudioSystem) GlobalVolume() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.globalVolume
}

func (a *AudioSystem) lock() {
	a.mu.Lock()
	a.drainEnded()
}

// drainEnded retires effect channels whose end sync fired since the last
// call. The handle check skips events from a voice that was already
// replaced.
func (a *AudioSystem) drainEnded() {
	for i := range a.channels {
		c := &a.channels[i]
		h := StreamHandle(c.ended.Swap(0))
		if h != 0 && h == c.handle && c.state.Kind() == CS_Effect {
			a.release(c)
		}
	}
}

func (a *AudioSystem) channel(ch int, op string) *AudioChannel {
	if ch < 0 || ch >= len(a.channels) {
		a.errLog.Printf("Attempt to %v channel out of bounds: %v", op, ch)
		return nil
	}
	return &a.channels[ch]
}

// release stops and frees whatever the channel holds and returns it to idle.
func (a *AudioSystem) release(c *AudioChannel) {
	if c.handle != 0 {
		if a.engine.IsActive(c.handle) {
			a.engine.Stop(c.handle)
		}
		if err := a.engine.Free(c.handle); err != nil {
			a.errLog.Printf("Free stream %v: %v", c.handle, err)
		}
	}
	c.clear()
}

func (a *AudioSystem) format(c *AudioChannel) StreamFormat {
	f, err := a.engine.Format(c.handle)
	if err != nil {
		a.errLog.Printf("Stream format of %v: %v", c.handle, err)
	}
	return f
}

func (a *AudioSystem) loopBytes(h StreamHandle, samples int64) int64 {
	return a.engine.SecondsToBytes(h, float64(samples)/loopReferenceRate)
}

// ------------------------------------------------------------------
// Channel pool

func (a *AudioSystem) StopChannel(ch int) {
	a.lock()
	defer a.mu.Unlock()
	if c := a.channel(ch, "stop"); c != nil {
		a.release(c)
	}
}

func (a *AudioSystem) PauseChannel(ch int) {
	a.lock()
	defer a.mu.Unlock()
	c := a.channel(ch, "pause")
	if c == nil || c.handle == 0 {
		return
	}
	if err := a.engine.Pause(c.handle); err != nil {
		a.errLog.Printf("Pause channel %v: %v", ch, err)
		return
	}
	c.state |= CS_Paused
}

func (a *AudioSystem) ResumeChannel(ch int) {
	a.lock()
	defer a.mu.Unlock()
	c := a.channel(ch, "resume")
	if c == nil || c.handle == 0 {
		return
	}
	if err := a.engine.Play(c.handle, false); err != nil {
		a.errLog.Printf("Resume channel %v: %v", ch, err)
		return
	}
	c.state &^= CS_Paused
}

// PlayChannel starts the loaded stream from the top and then seeks to
// startSample (source samples).
func (a *AudioSystem) PlayChannel(ch int, startSample int64) {
	a.lock()
	defer a.mu.Unlock()
	a.playChannel(ch, startSample)
}

func (a *AudioSystem) playChannel(ch int, startSample int64) {
	c := a.channel(ch, "play")
	if c == nil || c.handle == 0 {
		return
	}
	if err := a.engine.Play(c.handle, true); err != nil {
		a.errLog.Printf("Play channel %v: %v", ch, err)
		return
	}
	pos := samplesToBytes(a.format(c), MaxI64(startSample, 0), a.legacyBytes)
	if err := a.engine.SetPosition(c.handle, pos); err != nil {
		a.errLog.Printf("Seek channel %v to %v: %v", ch, pos, err)
	}
	c.state = CS_Stream
}

// SetChannelAttributes sets volume (clamped to 0..4, scaled by the global
// volume), pan (left to the engine) and playback speed. Channel -1 is the host's "no channel" and
// is ignored quietly.
func (a *AudioSystem) SetChannelAttributes(ch int, volume, pan, speed float32) {
	if ch == -1 {
		return
	}
	a.lock()
	defer a.mu.Unlock()
	c := a.channel(ch, "set attributes of")
	if c == nil || c.handle == 0 {
		return
	}
	c.volume = ClampF(volume, 0, 4)
	a.engine.SetAttribute(c.handle, AT_Volume, float64(c.volume*a.globalVolume))
	a.engine.SetAttribute(c.handle, AT_Pan, float64(pan))
	a.setSpeed(c, speed)
}

func (a *AudioSystem) setSpeed(c *AudioChannel, speed float32) {
	if speed < minTempoSpeed {
		speed = minTempoSpeed
	}
	c.speed = speed
	a.engine.SetAttribute(c.handle, AT_Tempo, float64((speed-1)*100))
}

// SetChannelSpeed changes only the tempo of a channel.
func (a *AudioSystem) SetChannelSpeed(ch int, speed float32) {
	a.lock()
	defer a.mu.Unlock()
	if c := a.channel(ch, "set speed of"); c != nil && c.handle != 0 {
		a.setSpeed(c, speed)
	}
}

// LoadStream opens a music file on ch, replacing whatever the channel held.
// Loop points are in samples at 44.1 kHz; loopEnd -1 loops on the end of the
// stream. Looping is only enabled for a positive loopStart.
func (a *AudioSystem) LoadStream(ch int, path, name string, loopStart, loopEnd int64) error {
	a.lock()
	defer a.mu.Unlock()
	c := a.channel(ch, "load stream into")
	if c == nil {
		return fmt.Errorf("%w: %v", ErrChannelOutOfRange, ch)
	}
	a.release(c)
	var flags StreamFlags
	if loopStart > 0 {
		flags |= SF_Loop
	}
	h, err := a.engine.CreateStreamFile(path, flags)
	if err != nil {
		a.errLog.Printf("Load stream %v: %v", path, err)
		return err
	}
	c.handle = h
	c.state = CS_Stream
	c.name, c.path = name, path
	c.loopSample = MaxI64(loopStart, 0)
	if loopStart > 0 {
		c.loopStart = a.loopBytes(h, loopStart)
		kind, at := SK_End, int64(0)
		if loopEnd >= 0 {
			c.loopEnd = a.loopBytes(h, loopEnd)
			kind, at = SK_Pos, c.loopEnd
		}
		target := c.loopStart
		if _, err := a.engine.SetSync(h, kind, at, func(StreamHandle) int64 { return target }); err != nil {
			a.errLog.Printf("Loop sync for %v: %v", path, err)
		}
	}
	a.engine.SetAttribute(h, AT_Volume, float64(a.globalVolume))
	a.errLog.Printf("Loaded stream %v on channel %v (loop %v..%v)", name, ch, loopStart, loopEnd)
	return nil
}

// ChannelPosition is the playback position in source samples, 0 when idle.
func (a *AudioSystem) ChannelPosition(ch int) int64 {
	a.lock()
	defer a.mu.Unlock()
	c := a.channel(ch, "get position of")
	if c == nil || c.handle == 0 {
		return 0
	}
	return bytesToSamples(a.format(c), a.engine.Position(c.handle), false)
}

// ChannelSampleCount is the stream length in source samples, 0 when idle.
func (a *AudioSystem) ChannelSampleCount(ch int) int64 {
	a.lock()
	defer a.mu.Unlock()
	c := a.channel(ch, "get length of")
	if c == nil || c.handle == 0 {
		return 0
	}
	return bytesToSamples(a.format(c), a.engine.Length(c.handle), false)
}

func (a *AudioSystem) IsChannelActive(ch int) bool {
	a.lock()
	defer a.mu.Unlock()
	c := a.channel(ch, "query")
	return c != nil && c.handle != 0 && a.engine.IsActive(c.handle)
}

func (a *AudioSystem) ChannelState(ch int) ChannelState {
	a.lock()
	defer a.mu.Unlock()
	if ch < 0 || ch >= len(a.channels) {
		return CS_Idle
	}
	return a.channels[ch].state
}

// Channel returns a snapshot of one channel.
func (a *AudioSystem) Channel(ch int) (ChannelInfo, bool) {
	a.lock()
	defer a.mu.Unlock()
	if ch < 0 || ch >= len(a.channels) {
		return ChannelInfo{}, false
	}
	return a.info(ch), true
}

func (a *AudioSystem) info(i int) ChannelInfo {
	c := &a.channels[i]
	ci := ChannelInfo{
		Index:     i,
		State:     c.state,
		SoundID:   c.soundID,
		Priority:  c.priority,
		Name:      c.name,
		Path:      c.path,
		Volume:    c.volume,
		Speed:     c.speed,
		LoopStart: c.loopStart,
		LoopEnd:   c.loopEnd,
	}
	if c.handle != 0 {
		f := a.format(c)
		ci.Position = bytesToSamples(f, a.engine.Position(c.handle), false)
		ci.Length = bytesToSamples(f, a.engine.Length(c.handle), false)
	}
	return ci
}

// ResetChannels stops every channel.
func (a *AudioSystem) ResetChannels() {
	a.lock()
	defer a.mu.Unlock()
	for i := range a.channels {
		a.release(&a.channels[i])
	}
}

// StopStreams stops every channel holding music and returns how many were
// stopped.
func (a *AudioSystem) StopStreams() int {
	a.lock()
	defer a.mu.Unlock()
	n := 0
	for i := range a.channels {
		if c := &a.channels[i]; c.state.Kind() == CS_Stream {
			a.release(c)
			n++
		}
	}
	return n
}

// SetGlobalVolume changes the master scalar and reapplies it to live
// channels.
func (a *AudioSystem) SetGlobalVolume(v float32) {
	a.lock()
	defer a.mu.Unlock()
	a.globalVolume = float32(math.Max(0, float64(v)))
	for i := range a.channels {
		if c := &a.channels[i]; c.handle != 0 {
			a.engine.SetAttribute(c.handle, AT_Volume, float64(c.volume*a.globalVolume))
		}
	}
}

// ------------------------------------------------------------------
// Sound effects

func (a *AudioSystem) FindSfx(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sfx.Find(name)
}

func (a *AudioSystem) LoadSfx(filePath, name string, slot, maxConcurrentPlays int, scope SfxScope) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, err := a.sfx.Load(filePath, name, slot, maxConcurrentPlays, scope)
	if err != nil {
		a.errLog.Printf("Load sfx %v into slot %v: %v", filePath, slot, err)
		return id, err
	}
	a.unbind(func(soundID int) bool { return soundID == id })
	return id, nil
}

// ClearSfx frees the effects of one scope. Channels still playing them keep
// playing but no longer count as voices of the slot.
func (a *AudioSystem) ClearSfx(scope SfxScope) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.sfx.Clear(scope)
	a.unbind(func(soundID int) bool { return a.sfx.Get(soundID) == nil })
	return n
}

// unbind detaches effect voices from registry slots whose buffer they no
// longer play.
func (a *AudioSystem) unbind(stale func(soundID int) bool) {
	for i := range a.channels {
		if c := &a.channels[i]; c.soundID >= 0 && stale(c.soundID) {
			c.soundID = -1
		}
	}
}

func (a *AudioSystem) Sfx(id int) (SoundFX, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s := a.sfx.Get(id); s != nil {
		return *s, true
	}
	return SoundFX{}, false
}

// FindBestChannel picks the first idle channel, else the effect channel
// closest to finishing. -1 when every channel is busy with music.
func (a *AudioSystem) FindBestChannel() int {
	a.lock()
	defer a.mu.Unlock()
	return a.findBestChannel()
}

func (a *AudioSystem) findBestChannel() int {
	for i := range a.channels {
		if a.channels[i].state == CS_Idle {
			return i
		}
	}
	best, least := -1, int64(math.MaxInt64)
	for i := range a.channels {
		c := &a.channels[i]
		if c.state.Kind() != CS_Effect {
			continue
		}
		f := a.format(c)
		remaining := bytesToSamples(f, a.engine.Length(c.handle)-a.engine.Position(c.handle), false)
		if remaining < least {
			best, least = i, remaining
		}
	}
	return best
}

// PlaySfx plays registry entry id on a free or reclaimable channel and
// returns the channel, or -1 when nothing was started. An entry at its play
// cap stops its lowest-numbered voice instead of starting a new one.
// loopPoint > 0 loops the effect back to that sample.
func (a *AudioSystem) PlaySfx(id int, loopPoint int64, priority int32) int {
	a.lock()
	defer a.mu.Unlock()
	if id < 0 || id >= a.sfx.count() {
		a.errLog.Printf("Attempt to play sfx out of bounds: %v", id)
		return -1
	}
	sfx := a.sfx.Get(id)
	if sfx == nil {
		return -1
	}
	if sfx.maxConcurrentPlays > 0 {
		first, bound := -1, 0
		for i := range a.channels {
			if a.channels[i].soundID == id {
				if first < 0 {
					first = i
				}
				bound++
			}
		}
		if bound >= sfx.maxConcurrentPlays {
			a.release(&a.channels[first])
			return -1
		}
	}
	ch := a.findBestChannel()
	if ch < 0 {
		a.errLog.Printf("Play sfx %v (%v): %v", id, sfx.name, ErrNoAvailableChannel)
		return -1
	}
	c := &a.channels[ch]
	a.release(c)
	var flags StreamFlags
	if loopPoint > 0 {
		flags |= SF_Loop
	}
	h, err := a.engine.CreateStreamMemory(sfx.buffer, sfx.name, flags)
	if err != nil {
		a.errLog.Printf("Play sfx %v (%v): %v", id, sfx.name, err)
		return -1
	}
	c.handle = h
	var fn SyncFunc
	if loopPoint > 0 {
		c.loopSample = loopPoint
		c.loopStart = a.loopBytes(h, loopPoint)
		target := c.loopStart
		fn = func(StreamHandle) int64 { return target }
	} else {
		ended := &c.ended
		fn = func(h StreamHandle) int64 {
			ended.Store(uint32(h))
			return -1
		}
	}
	if _, err := a.engine.SetSync(h, SK_End, 0, fn); err != nil {
		a.errLog.Printf("End sync for sfx %v: %v", id, err)
	}
	a.engine.SetAttribute(h, AT_Volume, float64(a.globalVolume))
	c.state = CS_Effect
	c.soundID = id
	c.priority = priority
	c.name = sfx.name
	if err := a.engine.Play(h, true); err != nil {
		a.errLog.Printf("Play sfx %v: %v", id, err)
		a.release(c)
		return -1
	}
	return ch
}
