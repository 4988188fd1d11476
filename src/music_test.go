package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrackVariant(t *testing.T) {
	tc := defaultTempoConfig()
	for _, c := range []struct {
		in    string
		name  string
		speed float32
		fast  bool
		stage int32
	}{
		{"song.ogg", "song.ogg", 1, false, 0},
		{"song_F.ogg", "song.ogg", 1.25, true, 0},
		{"bgm/F/song.ogg", "bgm/song.ogg", 1.25, true, 0},
		{"bgm\\F\\song.ogg", "bgm/song.ogg", 1.25, true, 0},
		{"F/song.ogg", "song.ogg", 1.25, true, 0},
		{"song_S3.ogg", "song.ogg", 1.15, false, 3},
		{"song_S.ogg", "song_S.ogg", 1, false, 0},
		{"song_Sx1.ogg", "song_Sx1.ogg", 1, false, 0},
		{"song_S99999999999.ogg", "song.ogg", 6, false, 100},
		{"_F.ogg", "_F.ogg", 1, false, 0},
		{"Fast/song.ogg", "Fast/song.ogg", 1, false, 0},
	} {
		v := tc.ParseTrackVariant(c.in)
		assert.Equal(t, c.name, v.Name, c.in)
		assert.InDelta(t, c.speed, v.Speed, 1e-6, c.in)
		assert.Equal(t, c.fast, v.Fast, c.in)
		assert.Equal(t, c.stage, v.Stage, c.in)
	}
}

func TestParseTrackVariantCustomMarkers(t *testing.T) {
	tc := TempoConfig{FastSpeed: 1.5, FastSuffix: "-fast", StageSuffix: "-lv", StageSpeedStep: 0.1}
	v := tc.ParseTrackVariant("theme-fast.mp3")
	assert.Equal(t, "theme.mp3", v.Name)
	assert.Equal(t, float32(1.5), v.Speed)
	v = tc.ParseTrackVariant("theme-lv2.mp3")
	assert.Equal(t, "theme.mp3", v.Name)
	assert.InDelta(t, 1.2, v.Speed, 1e-6)
	// An empty FastDir disables the directory form.
	v = tc.ParseTrackVariant("F/theme.mp3")
	assert.Equal(t, "F/theme.mp3", v.Name)
}

func TestSampleTimelines(t *testing.T) {
	assert.EqualValues(t, 800, toHostSamples(1000, 1.25))
	assert.EqualValues(t, 1000, toSourceSamples(800, 1.25))
	assert.EqualValues(t, 1000, toHostSamples(1000, 0))
	assert.EqualValues(t, 80, rescaleSamples(100, 1, 1.25))
	assert.EqualValues(t, 125, rescaleSamples(100, 1.25, 1))
}

func TestTransitionTempoInPlace(t *testing.T) {
	ta := newTestAudio(t, AudioOptions{GlobalVolume: 1})
	song := ta.wav(t, "song.wav", 44100*2)
	require.NoError(t, ta.LoadStream(1, song, "song.wav", 4000, -1))
	ta.PlayChannel(1, 0)
	ta.beep.Pump(8820)
	pos := ta.ChannelPosition(1)
	require.Greater(t, pos, int64(0))
	creates := ta.engine.calls["CreateStreamFile"]

	tc, ok := ta.TransitionTempo(1, "song.wav", 1.25)
	require.True(t, ok)
	assert.True(t, tc.Changed())
	assert.Equal(t, float32(1), tc.OldSpeed)
	assert.Equal(t, float32(1.25), tc.NewSpeed)
	assert.Equal(t, rescaleSamples(pos, 1, 1.25), tc.Position)
	assert.EqualValues(t, 3200, tc.LoopPoint)
	assert.Equal(t, creates, ta.engine.calls["CreateStreamFile"])

	v, _ := ta.beep.GetAttribute(ta.channels[1].handle, AT_Tempo)
	assert.InDelta(t, 25, v, 1e-4)
	assert.Equal(t, pos, ta.ChannelPosition(1))

	// Same speed again is a no-op.
	tc, ok = ta.TransitionTempo(1, "song.wav", 1.25)
	require.True(t, ok)
	assert.False(t, tc.Changed())

	// Back to normal speed restores the original timeline.
	tc, ok = ta.TransitionTempo(1, "song.wav", 1)
	require.True(t, ok)
	assert.EqualValues(t, 4000, tc.LoopPoint)
	assert.Equal(t, creates, ta.engine.calls["CreateStreamFile"])
}

func TestTransitionTempoNoMatch(t *testing.T) {
	ta := newTestAudio(t, AudioOptions{GlobalVolume: 1})
	_, ok := ta.TransitionTempo(0, "song.wav", 1.25)
	assert.False(t, ok)

	require.NoError(t, ta.LoadStream(0, ta.wav(t, "other.wav", 4410), "other.wav", 0, -1))
	_, ok = ta.TransitionTempo(0, "song.wav", 1.25)
	assert.False(t, ok)
	_, ok = ta.TransitionTempo(99, "other.wav", 1.25)
	assert.False(t, ok)
}
