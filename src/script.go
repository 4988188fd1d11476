package main

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/tidwall/gjson"
	lua "github.com/yuin/gopher-lua"
)

// Data handlers
func luaRegister(l *lua.LState, name string, f func(*lua.LState) int) {
	l.Register(name, f)
}
func nilArg(l *lua.LState, argi int) bool {
	lv := l.Get(argi)
	return lua.LVIsFalse(lv) && lv != lua.LFalse
}
func strArg(l *lua.LState, argi int) string {
	if !lua.LVCanConvToString(l.Get(argi)) {
		l.RaiseError("\nArgument %v is not a string: %v\n", argi, l.Get(argi))
	}
	return l.ToString(argi)
}
func numArg(l *lua.LState, argi int) float64 {
	num, ok := l.Get(argi).(lua.LNumber)
	if !ok {
		l.RaiseError("\nArgument %v is not a number: %v\n", argi, l.Get(argi))
	}
	return float64(num)
}
func boolArg(l *lua.LState, argi int) bool {
	return l.ToBool(argi)
}

// optNumArg is numArg for trailing arguments the script may leave out.
func optNumArg(l *lua.LState, argi int, def float64) float64 {
	if nilArg(l, argi) {
		return def
	}
	return numArg(l, argi)
}

func toLValue(l *lua.LState, v interface{}) lua.LValue {
	rv := reflect.ValueOf(v)

	// Handle pointer types
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return lua.LNil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		table := l.NewTable()
		for i := 0; i < rv.NumField(); i++ {
			field := rv.Type().Field(i)
			if field.PkgPath != "" {
				continue
			}
			// Use 'json' tag as the key, then field name
			key := field.Tag.Get("json")
			if key == "" {
				key = field.Name
			}
			table.RawSetString(key, toLValue(l, rv.Field(i).Interface()))
		}
		return table

	case reflect.Array, reflect.Slice:
		table := l.NewTable()
		for i := 0; i < rv.Len(); i++ {
			table.Append(toLValue(l, rv.Index(i).Interface()))
		}
		return table

	case reflect.String:
		return lua.LString(rv.String())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())

	case reflect.Float32, reflect.Float64:
		return lua.LNumber(math.Round(rv.Float()*1e6) / 1e6)

	case reflect.Bool:
		return lua.LBool(rv.Bool())

	default:
		return lua.LString(fmt.Sprintf("%v", rv.Interface()))
	}
}

// gjsonToLValue converts a query result into the matching Lua value.
func gjsonToLValue(l *lua.LState, r gjson.Result) lua.LValue {
	switch {
	case !r.Exists():
		return lua.LNil
	case r.IsArray():
		table := l.NewTable()
		r.ForEach(func(_, v gjson.Result) bool {
			table.Append(gjsonToLValue(l, v))
			return true
		})
		return table
	case r.IsObject():
		table := l.NewTable()
		r.ForEach(func(k, v gjson.Result) bool {
			table.RawSetString(k.String(), gjsonToLValue(l, v))
			return true
		})
		return table
	case r.Type == gjson.Number:
		return lua.LNumber(r.Float())
	case r.Type == gjson.True, r.Type == gjson.False:
		return lua.LBool(r.Bool())
	}
	return lua.LString(r.String())
}

// -------------------------------------------------------------------------------------------------
// Register external functions to be called from Lua scripts

// hostScriptInit exposes the host audio calls to Lua. wait advances time for
// the script's sleep function.
func hostScriptInit(l *lua.LState, h *HostAdapter, wait func(time.Duration)) {
	luaRegister(l, "getSfx", func(l *lua.LState) int {
		l.Push(lua.LNumber(h.GetSfx(strArg(l, 1))))
		return 1
	})
	// loadSfx(path, name, [slot], [maxPlays], [scope])
	luaRegister(l, "loadSfx", func(l *lua.LState) int {
		name := strArg(l, 1)
		if !nilArg(l, 2) {
			name = strArg(l, 2)
		}
		l.Push(lua.LNumber(h.LoadSfx(strArg(l, 1), name,
			int(optNumArg(l, 3, SlotAuto)),
			int(optNumArg(l, 4, 0)),
			SfxScope(optNumArg(l, 5, float64(SS_Global))))))
		return 1
	})
	// playSfx(id, [loopPoint], [priority])
	luaRegister(l, "playSfx", func(l *lua.LState) int {
		h.PlaySfx(int(numArg(l, 1)), int64(optNumArg(l, 2, 0)), int32(optNumArg(l, 3, 0)))
		return 0
	})
	// playStream(filename, channel, [start], [loopSample], [async])
	luaRegister(l, "playStream", func(l *lua.LState) int {
		l.Push(lua.LNumber(h.PlayStream(strArg(l, 1), int(numArg(l, 2)),
			int64(optNumArg(l, 3, 0)), int64(optNumArg(l, 4, 0)), boolArg(l, 5))))
		return 1
	})
	luaRegister(l, "setChannelAttributes", func(l *lua.LState) int {
		h.SetChannelAttributes(int(numArg(l, 1)), float32(numArg(l, 2)),
			float32(optNumArg(l, 3, 0)), float32(optNumArg(l, 4, 1)))
		return 0
	})
	luaRegister(l, "stopChannel", func(l *lua.LState) int {
		h.StopChannel(int(numArg(l, 1)))
		return 0
	})
	luaRegister(l, "pauseChannel", func(l *lua.LState) int {
		h.PauseChannel(int(numArg(l, 1)))
		return 0
	})
	luaRegister(l, "resumeChannel", func(l *lua.LState) int {
		h.ResumeChannel(int(numArg(l, 1)))
		return 0
	})
	luaRegister(l, "isChannelActive", func(l *lua.LState) int {
		l.Push(lua.LBool(h.IsChannelActive(int(numArg(l, 1)))))
		return 1
	})
	luaRegister(l, "getChannelPosition", func(l *lua.LState) int {
		l.Push(lua.LNumber(h.GetChannelPosition(int(numArg(l, 1)))))
		return 1
	})
	luaRegister(l, "stopMusic", func(l *lua.LState) int {
		l.Push(lua.LNumber(h.StopMusic()))
		return 1
	})
	luaRegister(l, "resetChannels", func(*lua.LState) int {
		h.ResetChannels()
		return 0
	})
	luaRegister(l, "clearSfx", func(l *lua.LState) int {
		l.Push(lua.LNumber(h.ClearSfx(SfxScope(optNumArg(l, 1, float64(SS_Stage))))))
		return 1
	})
	luaRegister(l, "setGlobalVolume", func(l *lua.LState) int {
		h.SetGlobalVolume(float32(numArg(l, 1)))
		return 0
	})
	luaRegister(l, "channelInfo", func(l *lua.LState) int {
		ci, ok := h.Audio().Channel(int(numArg(l, 1)))
		if !ok {
			l.Push(lua.LNil)
			return 1
		}
		l.Push(toLValue(l, StatsChannel{
			Index:    ci.Index,
			State:    ci.State.Kind().String(),
			Paused:   ci.State.IsPaused(),
			SoundID:  ci.SoundID,
			Name:     ci.Name,
			Volume:   ci.Volume,
			Speed:    ci.Speed,
			Position: ci.Position,
			Length:   ci.Length,
		}))
		return 1
	})
	luaRegister(l, "audioStatus", func(l *lua.LState) int {
		l.Push(lua.LString(h.Audio().StatusJSON()))
		return 1
	})
	// bassvar(path) queries the status document, e.g. bassvar("channels.0.state")
	luaRegister(l, "bassvar", func(l *lua.LState) int {
		l.Push(gjsonToLValue(l, h.Audio().StatusQuery(strArg(l, 1))))
		return 1
	})
	luaRegister(l, "statsvar", func(l *lua.LState) int {
		l.Push(gjsonToLValue(l, h.stats.Get(strArg(l, 1))))
		return 1
	})
	luaRegister(l, "sleep", func(l *lua.LState) int {
		wait(time.Duration(numArg(l, 1) * float64(time.Millisecond)))
		return 0
	})
	l.SetGlobal("SS_GLOBAL", lua.LNumber(SS_Global))
	l.SetGlobal("SS_STAGE", lua.LNumber(SS_Stage))
	l.SetGlobal("SLOT_AUTO", lua.LNumber(SlotAuto))
}
