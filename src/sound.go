package main

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/midi"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

const (
	audioOutLen          = 2048
	audioFrequency       = 44100
	audioResampleQuality = 1
	audioSoundFont       = "sound/soundfont.sf2" // default path for MIDI soundfont
	minTempoSpeed        = 0.05
)

// ------------------------------------------------------------------
// AudioSink

// AudioSink is the final mix destination. The engine plays its mixer into
// it once and locks it around every change to a live stream chain.
type AudioSink interface {
	Init(sr beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Close()
}

// speakerSink sends the mix to the system audio device.
type speakerSink struct{}

func (speakerSink) Init(sr beep.SampleRate, bufferSize int) error {
	return speaker.Init(sr, bufferSize)
}
func (speakerSink) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerSink) Lock() { speaker.Lock() }
func (speakerSink) Unlock() { speaker.Unlock() }
func (speakerSink) Close() { speaker.Close() }

// manualSink only mixes when Pump is called. Used with -nosound and by tests.
type manualSink struct {
	mu  sync.Mutex
	src beep.Streamer
	buf [][2]float64
}

func (m *manualSink) Init(sr beep.SampleRate, bufferSize int) error {
	m.buf = make([][2]float64, MaxI(bufferSize, 1))
	return nil
}
func (m *manualSink) Play(s beep.Streamer) {
	m.mu.Lock()
	m.src = s
	m.mu.Unlock()
}
func (m *manualSink) Lock() { m.mu.Lock() }
func (m *manualSink) Unlock() { m.mu.Unlock() }
func (m *manualSink) Close() {}

// Pump mixes the given number of output frames and throws them away.
func (m *manualSink) Pump(frames int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.src == nil {
		return
	}
	for frames > 0 {
		n := MinI(frames, len(m.buf))
		m.src.Stream(m.buf[:n])
		frames -= n
	}
}

// ------------------------------------------------------------------
// Sync Streamer

type streamSync struct {
	id    SyncHandle
	kind  SyncKind
	frame int
	fn    SyncFunc
}

// syncStreamer fires position and end syncs while streaming. Based on the
// loop streamer used for BGM: it streams up to the next sync boundary,
// fires, and honours the seek the sync asks for.
type syncStreamer struct {
	s             beep.StreamSeeker
	handle        StreamHandle
	loop          bool
	bytesPerFrame int64
	syncs         []streamSync
	ended         bool
	err           error
}

func newSyncStreamer(s beep.StreamSeeker, h StreamHandle, loop bool, bytesPerFrame int64) *syncStreamer {
	if bytesPerFrame <= 0 {
		bytesPerFrame = 1
	}
	return &syncStreamer{s: s, handle: h, loop: loop, bytesPerFrame: bytesPerFrame}
}

// frame turns a byte target returned by a sync into a source frame.
func (l *syncStreamer) frame(seek int64) int {
	return MinI(int(seek/l.bytesPerFrame), l.s.Len())
}

func (l *syncStreamer) nextBoundary(pos int) int {
	next := -1
	for _, sy := range l.syncs {
		if sy.kind == SK_Pos && sy.frame > pos && (next < 0 || sy.frame < next) {
			next = sy.frame
		}
	}
	return next
}

// fire runs every sync of the given kind whose frame lies in (from, to]
// (end syncs ignore the range) and returns the last seek target requested.
func (l *syncStreamer) fire(kind SyncKind, from, to int) int64 {
	seek := int64(-1)
	for _, sy := range l.syncs {
		if sy.kind != kind {
			continue
		}
		if kind == SK_Pos && (sy.frame <= from || sy.frame > to) {
			continue
		}
		if p := sy.fn(l.handle); p >= 0 {
			seek = p
		}
	}
	return seek
}

func (l *syncStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if l.ended || l.err != nil {
		return 0, false
	}
	stalled := false
	for len(samples) > 0 {
		pos := l.s.Position()
		toStream := len(samples)
		if next := l.nextBoundary(pos); next > pos {
			toStream = MinI(toStream, next-pos)
		}
		sn, sok := l.s.Stream(samples[:toStream])
		n += sn
		samples = samples[sn:]
		if sn > 0 {
			stalled = false
			if seek := l.fire(SK_Pos, pos, pos+sn); seek >= 0 {
				if err := l.s.Seek(l.frame(seek)); err != nil {
					l.err = err
					return n, n > 0
				}
				continue
			}
		}
		if sn < toStream || !sok {
			if err := l.s.Err(); err != nil {
				l.err = err
				return n, n > 0
			}
			seek := l.fire(SK_End, 0, 0)
			if seek < 0 && l.loop {
				seek = 0
			}
			// A loop that yields nothing after seeking would spin forever.
			if seek < 0 || stalled || l.s.Len() == 0 {
				l.ended = true
				return n, n > 0
			}
			stalled = true
			if err := l.s.Seek(l.frame(seek)); err != nil {
				l.err = err
				return n, n > 0
			}
		}
	}
	return n, true
}

func (l *syncStreamer) Err() error {
	if l.err != nil {
		return l.err
	}
	return l.s.Err()
}

// ------------------------------------------------------------------
// Decoding

func audioFormatOf(name string, head []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ogg":
		return "ogg"
	case ".mp3":
		return "mp3"
	case ".wav":
		return "wav"
	case ".flac":
		return "flac"
	case ".mid", ".midi":
		return "midi"
	}
	switch {
	case bytes.HasPrefix(head, []byte("OggS")):
		return "ogg"
	case bytes.HasPrefix(head, []byte("RIFF")):
		return "wav"
	case bytes.HasPrefix(head, []byte("fLaC")):
		return "flac"
	case bytes.HasPrefix(head, []byte("MThd")):
		return "midi"
	case bytes.HasPrefix(head, []byte("ID3")),
		len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return "mp3"
	}
	return ""
}

func (e *BeepEngine) decode(name string, rc io.ReadCloser, head []byte) (beep.StreamSeeker, beep.Format, error) {
	var (
		s      beep.StreamSeeker
		format beep.Format
		err    error
	)
	switch audioFormatOf(name, head) {
	case "ogg":
		s, format, err = vorbis.Decode(rc)
	case "mp3":
		s, format, err = mp3.Decode(rc)
	case "wav":
		s, format, err = wav.Decode(rc)
	case "flac":
		s, format, err = flac.Decode(rc)
	case "midi":
		var sf *midi.SoundFont
		if sf, err = e.loadSoundFont(); err == nil {
			s, format, err = midi.Decode(rc, sf, e.rate)
		}
	default:
		err = fmt.Errorf("%w: %v", ErrUnsupportedFormat, name)
	}
	return s, format, err
}

func (e *BeepEngine) loadSoundFont() (*midi.SoundFont, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.soundFont != nil {
		return e.soundFont, nil
	}
	f, err := os.Open(e.soundFontPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sf, err := midi.NewSoundFont(f)
	if err != nil {
		return nil, err
	}
	e.soundFont = sf
	return sf, nil
}

// ------------------------------------------------------------------
// BeepEngine

type beepStream struct {
	name     string
	source   beep.StreamSeeker
	closers  []io.Closer
	format   beep.Format
	syncs    *syncStreamer
	resample *beep.Resampler
	volume   *effects.Volume
	pan      *effects.Pan
	ctrl     *beep.Ctrl
	gain     float64
	panning  float64
	tempo    float64
	queued   bool
	stopped  bool
}

func (st *beepStream) bytesPerFrame() int64 {
	return int64(MaxI(st.format.Precision*st.format.NumChannels, 1))
}

// BeepEngine implements Engine on top of beep: every stream is a chain of
// sync streamer -> resampler (tempo) -> volume -> pan -> ctrl, added to one
// mixer that feeds the sink.
type BeepEngine struct {
	sink          AudioSink
	mixer         *beep.Mixer
	rate          beep.SampleRate
	quality       int
	soundFontPath string
	soundFont     *midi.SoundFont

	mu       sync.Mutex
	streams  map[StreamHandle]*beepStream
	next     StreamHandle
	nextSync SyncHandle
}

func NewBeepEngine(sink AudioSink, rate beep.SampleRate, bufferSize, quality int, soundFont string) (*BeepEngine, error) {
	if err := sink.Init(rate, bufferSize); err != nil {
		return nil, fmt.Errorf("audio output init: %w", err)
	}
	e := &BeepEngine{
		sink:          sink,
		mixer:         &beep.Mixer{},
		rate:          rate,
		quality:       quality,
		soundFontPath: soundFont,
		streams:       make(map[StreamHandle]*beepStream),
	}
	sink.Play(e.mixer)
	return e, nil
}

// Pump advances a manually driven engine by the given number of output
// frames. It does nothing when the engine plays to a real device.
func (e *BeepEngine) Pump(frames int) {
	if m, ok := e.sink.(*manualSink); ok {
		m.Pump(frames)
	}
}

func (e *BeepEngine) get(h StreamHandle) (*beepStream, error) {
	e.mu.Lock()
	st, ok := e.streams[h]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	return st, nil
}

func (e *BeepEngine) ratio(st *beepStream) float64 {
	speed := math.Max(minTempoSpeed, 1+st.tempo/100)
	return float64(st.format.SampleRate) / float64(e.rate) * speed
}

// build (re)creates the output chain of a stream. A resampler that has seen
// the end of its source stays ended, so revived streams need a fresh chain.
func (e *BeepEngine) build(st *beepStream) {
	st.resample = beep.ResampleRatio(e.quality, e.ratio(st), st.syncs)
	st.volume = &effects.Volume{Streamer: st.resample, Base: 2}
	st.pan = &effects.Pan{Streamer: st.volume, Pan: st.panning}
	st.ctrl = &beep.Ctrl{Streamer: st.pan, Paused: true}
	e.applyGain(st)
}

func (e *BeepEngine) applyGain(st *beepStream) {
	if st.gain <= 0 {
		st.volume.Silent = true
		st.volume.Volume = 0
		return
	}
	st.volume.Silent = false
	st.volume.Volume = math.Log2(st.gain)
}

func (e *BeepEngine) create(name string, rc io.ReadCloser, head []byte, flags StreamFlags) (StreamHandle, error) {
	source, format, err := e.decode(name, rc, head)
	if err != nil {
		rc.Close()
		return 0, err
	}
	st := &beepStream{name: name, source: source, format: format, gain: 1}
	st.closers = append(st.closers, rc)
	if c, ok := source.(io.Closer); ok {
		st.closers = append(st.closers, c)
	}
	e.mu.Lock()
	e.next++
	h := e.next
	e.streams[h] = st
	e.mu.Unlock()
	st.syncs = newSyncStreamer(source, h, flags&SF_Loop != 0, st.bytesPerFrame())
	e.build(st)
	return h, nil
}

func (e *BeepEngine) CreateStreamFile(path string, flags StreamFlags) (StreamHandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	head := make([]byte, 4)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return 0, err
	}
	return e.create(path, f, head[:n], flags)
}

// memoryReader keeps the seeker of the buffer visible to the decoders, which
// only seek sources that implement io.Seeker.
type memoryReader struct {
	*bytes.Reader
}

func (memoryReader) Close() error { return nil }

func (e *BeepEngine) CreateStreamMemory(data []byte, name string, flags StreamFlags) (StreamHandle, error) {
	head := data[:MinI(len(data), 4)]
	return e.create(name, memoryReader{bytes.NewReader(data)}, head, flags)
}

func (e *BeepEngine) Play(h StreamHandle, restart bool) error {
	st, err := e.get(h)
	if err != nil {
		return err
	}
	e.sink.Lock()
	defer e.sink.Unlock()
	if restart {
		if err := st.source.Seek(0); err != nil {
			return err
		}
	}
	if st.stopped || st.syncs.ended || !st.queued {
		if st.ctrl != nil {
			st.ctrl.Streamer = nil
		}
		st.syncs.ended = false
		e.build(st)
		st.stopped = false
		st.queued = true
		st.ctrl.Paused = false
		e.mixer.Add(st.ctrl)
		return nil
	}
	st.ctrl.Paused = false
	return nil
}

func (e *BeepEngine) Pause(h StreamHandle) error {
	st, err := e.get(h)
	if err != nil {
		return err
	}
	e.sink.Lock()
	st.ctrl.Paused = true
	e.sink.Unlock()
	return nil
}

func (e *BeepEngine) Stop(h StreamHandle) error {
	st, err := e.get(h)
	if err != nil {
		return err
	}
	// Starve the chain; the mixer drops it on its next pass.
	e.sink.Lock()
	st.ctrl.Streamer = nil
	st.stopped = true
	st.queued = false
	e.sink.Unlock()
	return nil
}

func (e *BeepEngine) Free(h StreamHandle) error {
	if err := e.Stop(h); err != nil {
		return err
	}
	e.mu.Lock()
	st := e.streams[h]
	delete(e.streams, h)
	e.mu.Unlock()
	for _, c := range st.closers {
		c.Close()
	}
	return nil
}

func (e *BeepEngine) IsActive(h StreamHandle) bool {
	st, err := e.get(h)
	if err != nil {
		return false
	}
	e.sink.Lock()
	defer e.sink.Unlock()
	return st.queued && !st.stopped && !st.syncs.ended
}

func (e *BeepEngine) SetPosition(h StreamHandle, pos int64) error {
	st, err := e.get(h)
	if err != nil {
		return err
	}
	e.sink.Lock()
	defer e.sink.Unlock()
	frame := int(pos / st.bytesPerFrame())
	if frame < 0 || frame > st.source.Len() {
		frame = 0
	}
	return st.source.Seek(frame)
}

func (e *BeepEngine) Position(h StreamHandle) int64 {
	st, err := e.get(h)
	if err != nil {
		return 0
	}
	e.sink.Lock()
	defer e.sink.Unlock()
	return int64(st.source.Position()) * st.bytesPerFrame()
}

func (e *BeepEngine) Length(h StreamHandle) int64 {
	st, err := e.get(h)
	if err != nil {
		return 0
	}
	e.sink.Lock()
	defer e.sink.Unlock()
	return int64(st.source.Len()) * st.bytesPerFrame()
}

func (e *BeepEngine) Format(h StreamHandle) (StreamFormat, error) {
	st, err := e.get(h)
	if err != nil {
		return StreamFormat{}, err
	}
	return StreamFormat{
		SampleRate:    int(st.format.SampleRate),
		Channels:      st.format.NumChannels,
		BitsPerSample: st.format.Precision * 8,
	}, nil
}

func (e *BeepEngine) SecondsToBytes(h StreamHandle, secs float64) int64 {
	st, err := e.get(h)
	if err != nil {
		return 0
	}
	return int64(math.Round(secs*float64(st.format.SampleRate))) * st.bytesPerFrame()
}

func (e *BeepEngine) SetAttribute(h StreamHandle, attr Attribute, value float64) error {
	st, err := e.get(h)
	if err != nil {
		return err
	}
	e.sink.Lock()
	defer e.sink.Unlock()
	switch attr {
	case AT_Volume:
		st.gain = math.Max(0, value)
		e.applyGain(st)
	case AT_Pan:
		st.panning = math.Max(-1, math.Min(1, value))
		st.pan.Pan = st.panning
	case AT_Tempo:
		st.tempo = value
		st.resample.SetRatio(e.ratio(st))
	default:
		return fmt.Errorf("unknown attribute %v", attr)
	}
	return nil
}

func (e *BeepEngine) GetAttribute(h StreamHandle, attr Attribute) (float64, error) {
	st, err := e.get(h)
	if err != nil {
		return 0, err
	}
	e.sink.Lock()
	defer e.sink.Unlock()
	switch attr {
	case AT_Volume:
		return st.gain, nil
	case AT_Pan:
		return st.panning, nil
	case AT_Tempo:
		return st.tempo, nil
	}
	return 0, fmt.Errorf("unknown attribute %v", attr)
}

func (e *BeepEngine) SetSync(h StreamHandle, kind SyncKind, pos int64, fn SyncFunc) (SyncHandle, error) {
	st, err := e.get(h)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	e.nextSync++
	id := e.nextSync
	e.mu.Unlock()
	e.sink.Lock()
	st.syncs.syncs = append(st.syncs.syncs, streamSync{
		id:    id,
		kind:  kind,
		frame: int(pos / st.bytesPerFrame()),
		fn:    fn,
	})
	e.sink.Unlock()
	return id, nil
}

func (e *BeepEngine) RemoveSync(h StreamHandle, sync SyncHandle) error {
	st, err := e.get(h)
	if err != nil {
		return err
	}
	e.sink.Lock()
	defer e.sink.Unlock()
	for i, sy := range st.syncs.syncs {
		if sy.id == sync {
			st.syncs.syncs = append(st.syncs.syncs[:i], st.syncs.syncs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: sync %v", ErrInvalidHandle, sync)
}

func (e *BeepEngine) Close() error {
	e.mu.Lock()
	handles := make([]StreamHandle, 0, len(e.streams))
	for h := range e.streams {
		handles = append(handles, h)
	}
	e.mu.Unlock()
	for _, h := range handles {
		e.Free(h)
	}
	e.sink.Lock()
	e.mixer.Clear()
	e.sink.Unlock()
	e.sink.Close()
	return nil
}
