package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestStatusJSON(t *testing.T) {
	ta := newTestAudio(t, AudioOptions{Channels: 4, SfxSlots: 8, GlobalVolume: 0.5})
	id := ta.loadSfx(t, "kick", 2205, 0)
	_, err := ta.LoadSfx(ta.wav(t, "stage.wav", 100), "stage.v2", 5, 3, SS_Stage)
	require.NoError(t, err)
	song := ta.wav(t, "song.wav", 44100)
	require.NoError(t, ta.LoadStream(1, song, "song.ogg", 0, -1))
	ta.PlayChannel(1, 0)
	ta.PauseChannel(1)
	require.Equal(t, 0, ta.PlaySfx(id, 0, 0))

	data := ta.StatusJSON()
	require.True(t, gjson.ValidBytes(data))
	doc := gjson.ParseBytes(data)
	assert.Equal(t, 0.5, doc.Get("globalVolume").Float())
	assert.EqualValues(t, 4, doc.Get("channels.#").Int())
	assert.Equal(t, "effect", doc.Get("channels.0.state").String())
	assert.EqualValues(t, id, doc.Get("channels.0.soundId").Int())
	assert.Equal(t, "stream", doc.Get("channels.1.state").String())
	assert.True(t, doc.Get("channels.1.paused").Bool())
	assert.Equal(t, "song.ogg", doc.Get("channels.1.name").String())
	assert.EqualValues(t, 44100, doc.Get("channels.1.length").Int())
	assert.Equal(t, "idle", doc.Get("channels.3.state").String())

	assert.EqualValues(t, 2, doc.Get("sfx.#").Int())
	assert.EqualValues(t, 5, doc.Get(`sfx.#(name=="stage.v2").slot`).Int())
	assert.Equal(t, "stage", doc.Get("sfx.1.scope").String())
	assert.EqualValues(t, 3, doc.Get("sfx.1.maxPlays").Int())

	assert.Equal(t, "kick", ta.StatusQuery("sfx.0.name").String())
	assert.False(t, ta.StatusQuery("channels.9").Exists())
}

func TestStatusJSONEmpty(t *testing.T) {
	ta := newTestAudio(t, AudioOptions{Channels: 2, SfxSlots: 2})
	doc := gjson.ParseBytes(ta.StatusJSON())
	assert.True(t, doc.Get("sfx").IsArray())
	assert.EqualValues(t, 0, doc.Get("sfx.#").Int())
	assert.EqualValues(t, -1, doc.Get("channels.1.soundId").Int())
}

func TestStatsLogCountPlay(t *testing.T) {
	s := newStatsLog()
	s.countPlay("music", "stage1.ogg")
	s.countPlay("music", "stage1.ogg")
	s.countPlay("music", "boss*.ogg")
	s.countPlay("sfx", "")
	assert.EqualValues(t, 3, s.Get("music.plays").Int())
	assert.EqualValues(t, 2, s.Get(`music.tracks.stage1\.ogg`).Int())
	assert.EqualValues(t, 1, s.Get(`music.tracks.boss\*\.ogg`).Int())
	assert.False(t, s.Get("sfx").Exists())
	assert.True(t, gjson.Get(`{"a.b":1}`, jsonKey("a.b")).Exists())
}

func TestStatsLogNil(t *testing.T) {
	var s *StatsLog
	s.countPlay("sfx", "hit")
	assert.False(t, s.Get("sfx.plays").Exists())
}
