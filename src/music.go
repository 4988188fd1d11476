// ----------------------------------------------------------------------------
// Music tracks and tempo variants – overview
// ----------------------------------------------------------------------------
//
// The host ships several files for what is really one song: the normal track,
// a fast variant played when time is running out, and stage variants that
// speed up as the game progresses. We only ever load the normal track and
// express the variants as a tempo change on the channel.
//
// Naming
// ------
//   song.ogg        normal track, speed 1
//   song_F.ogg      fast variant, speed [Tempo] FastSpeed
//   F/song.ogg      fast variant living in a sibling "F" directory
//   song_S3.ogg     stage variant 3, speed 1 + 3*[Tempo] StageSpeedStep
//
// ParseTrackVariant maps all of them to the normal name plus a speed.
//
// Timelines
// ---------
// Sample positions exchanged with the host are in the timeline of the
// variant it asked for: a position p in the fast track is p*FastSpeed in the
// normal track. A switch between variants keeps the musical position, so a
// host position p at old speed becomes p*old/new at the new speed, and the
// same goes for the loop point.
//
// ----------------------------------------------------------------------------

package main

import (
	"math"
	"path"
	"strings"
	"unicode"
)

// Highest stage variant number honoured; larger numbers play at its speed.
const maxStageVariant = 100

type TempoConfig struct {
	FastSpeed      float32
	FastSuffix     string
	FastDir        string
	StageSuffix    string
	StageSpeedStep float32
}

func defaultTempoConfig() TempoConfig {
	return TempoConfig{
		FastSpeed:      1.25,
		FastSuffix:     "_F",
		FastDir:        "F",
		StageSuffix:    "_S",
		StageSpeedStep: 0.05,
	}
}

// TrackVariant is a requested music file resolved to its normal track.
type TrackVariant struct {
	Request string // the name the host asked for, '/' separated
	Name    string // the normal track
	Speed   float32
	Fast    bool
	Stage   int32 // 0 when not a stage variant
}

// ParseTrackVariant normalizes filename. Names without a variant marker come
// back unchanged at speed 1.
func (tc TempoConfig) ParseTrackVariant(filename string) TrackVariant {
	p := strings.ReplaceAll(filename, "\\", "/")
	v := TrackVariant{Request: p, Name: p, Speed: 1}
	ext := path.Ext(p)
	base := strings.TrimSuffix(p, ext)
	if tc.FastSuffix != "" && strings.HasSuffix(base, tc.FastSuffix) && len(base) > len(tc.FastSuffix) {
		v.Name = strings.TrimSuffix(base, tc.FastSuffix) + ext
		v.Speed, v.Fast = tc.FastSpeed, true
		return v
	}
	if tc.FastDir != "" {
		dir := "/" + tc.FastDir + "/"
		if i := strings.Index(p, dir); i >= 0 {
			v.Name = p[:i] + p[i+len(dir)-1:]
			v.Speed, v.Fast = tc.FastSpeed, true
			return v
		}
		if strings.HasPrefix(p, dir[1:]) {
			v.Name = p[len(dir)-1:]
			v.Speed, v.Fast = tc.FastSpeed, true
			return v
		}
	}
	if tc.StageSuffix != "" {
		if i := strings.LastIndex(base, tc.StageSuffix); i > 0 {
			digits := base[i+len(tc.StageSuffix):]
			if digits != "" && strings.IndexFunc(digits, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
				v.Stage = MinI32(Atoi(digits), maxStageVariant)
				v.Name = base[:i] + ext
				v.Speed = 1 + float32(v.Stage)*tc.StageSpeedStep
			}
		}
	}
	return v
}

// TempoChange reports a variant switch applied in place. Position and
// LoopPoint are host samples in the new variant's timeline, the values
// GetChannelPosition and the loop sync follow from then on.
type TempoChange struct {
	Channel   int
	OldSpeed  float32
	NewSpeed  float32
	Position  int64
	LoopPoint int64
}

func (t TempoChange) Changed() bool { return t.OldSpeed != t.NewSpeed }

func rescaleSamples(v int64, from, to float32) int64 {
	return int64(math.Round(float64(v) * float64(from) / float64(to)))
}

func toHostSamples(source int64, speed float32) int64 {
	if speed <= 0 {
		return source
	}
	return int64(math.Round(float64(source) / float64(speed)))
}

func toSourceSamples(host int64, speed float32) int64 {
	return int64(math.Round(float64(host) * float64(speed)))
}

// TransitionTempo switches ch to speed when it already streams name. ok is
// false when ch holds something else and the caller has to load the track.
// The stream is never reopened.
func (a *AudioSystem) TransitionTempo(ch int, name string, speed float32) (tc TempoChange, ok bool) {
	a.lock()
	defer a.mu.Unlock()
	if ch < 0 || ch >= len(a.channels) {
		return TempoChange{}, false
	}
	c := &a.channels[ch]
	if c.handle == 0 || c.state.Kind() != CS_Stream || c.name != name {
		return TempoChange{}, false
	}
	host := toHostSamples(bytesToSamples(a.format(c), a.engine.Position(c.handle), false), c.speed)
	tc = TempoChange{
		Channel:   ch,
		OldSpeed:  c.speed,
		NewSpeed:  speed,
		Position:  host,
		LoopPoint: toHostSamples(c.loopSample, c.speed),
	}
	if !tc.Changed() {
		return tc, true
	}
	tc.Position = rescaleSamples(tc.Position, tc.OldSpeed, speed)
	tc.LoopPoint = rescaleSamples(tc.LoopPoint, tc.OldSpeed, speed)
	a.setSpeed(c, speed)
	tc.NewSpeed = c.speed
	a.errLog.Printf("Tempo of %v on channel %v: %v -> %v", name, ch, tc.OldSpeed, tc.NewSpeed)
	return tc, true
}
