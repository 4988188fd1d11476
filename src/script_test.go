package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func newTestScript(t *testing.T) (*lua.LState, *testHost, *time.Duration) {
	t.Helper()
	th := newTestHost(t, false)
	l := lua.NewState()
	t.Cleanup(l.Close)
	var slept time.Duration
	hostScriptInit(l, th.HostAdapter, func(d time.Duration) {
		slept += d
		th.ta.beep.Pump(int(d.Seconds() * 44100))
	})
	return l, th, &slept
}

func TestScriptMusic(t *testing.T) {
	l, th, slept := newTestScript(t)
	th.music(t, "stage1.wav", 44100)

	require.NoError(t, l.DoString(`
		ch = playStream("stage1.ogg", 2)
		missing = playStream("none.ogg", 2)
		sleep(50)
		state = bassvar("channels.2.state")
		active = isChannelActive(ch)
		info = channelInfo(ch)
		none = channelInfo(99)
		setChannelAttributes(ch, 0.5)
		stopped = stopMusic()
	`))
	assert.Equal(t, lua.LNumber(2), l.GetGlobal("ch"))
	assert.Equal(t, lua.LNumber(-1), l.GetGlobal("missing"))
	assert.Equal(t, lua.LString("stream"), l.GetGlobal("state"))
	assert.Equal(t, lua.LTrue, l.GetGlobal("active"))
	assert.Equal(t, lua.LNil, l.GetGlobal("none"))
	assert.Equal(t, lua.LNumber(1), l.GetGlobal("stopped"))
	assert.Equal(t, 50*time.Millisecond, *slept)

	info, ok := l.GetGlobal("info").(*lua.LTable)
	require.True(t, ok)
	assert.Equal(t, lua.LString("stage1.ogg"), info.RawGetString("name"))
	assert.Equal(t, lua.LNumber(-1), info.RawGetString("soundId"))
	assert.Equal(t, lua.LFalse, info.RawGetString("paused"))
	assert.Equal(t, lua.LNumber(44100), info.RawGetString("length"))
}

func TestScriptSfx(t *testing.T) {
	l, th, _ := newTestScript(t)
	writeSilenceWav(t, filepath.Join(th.pack, "Data", "Sound", "hit.wav"), 2205)

	require.NoError(t, l.DoString(`
		id = loadSfx("hit.wav", "hit", SLOT_AUTO, 1, SS_STAGE)
		found = getSfx("hit")
		bad = loadSfx("nothere.wav")
		playSfx(id)
		slot = bassvar("sfx.#(name==\"hit\").slot")
		scope = bassvar("sfx.0.scope")
		plays = statsvar("sfx.plays")
		cleared = clearSfx()
		after = getSfx("hit")
	`))
	assert.Equal(t, lua.LNumber(0), l.GetGlobal("id"))
	assert.Equal(t, lua.LNumber(0), l.GetGlobal("found"))
	assert.Equal(t, lua.LNumber(-1), l.GetGlobal("bad"))
	assert.Equal(t, lua.LNumber(0), l.GetGlobal("slot"))
	assert.Equal(t, lua.LString("stage"), l.GetGlobal("scope"))
	assert.Equal(t, lua.LNumber(1), l.GetGlobal("plays"))
	assert.Equal(t, lua.LNumber(1), l.GetGlobal("cleared"))
	assert.Equal(t, lua.LNumber(-1), l.GetGlobal("after"))
	assert.Equal(t, CS_Effect, th.ta.ChannelState(0))
}

func TestScriptAudioStatus(t *testing.T) {
	l, _, _ := newTestScript(t)
	require.NoError(t, l.DoString(`
		setGlobalVolume(0.25)
		status = audioStatus()
		channels = bassvar("channels.#")
		vol = bassvar("globalVolume")
	`))
	assert.Contains(t, l.GetGlobal("status").String(), `"globalVolume":0.25`)
	assert.Equal(t, lua.LNumber(16), l.GetGlobal("channels"))
	assert.Equal(t, lua.LNumber(0.25), l.GetGlobal("vol"))
}

func TestScriptArgErrors(t *testing.T) {
	l, _, _ := newTestScript(t)
	err := l.DoString(`playStream("song.ogg", "two")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a number")
}
