package main

// StreamHandle identifies a stream inside an Engine. Zero is never a valid
// handle.
type StreamHandle uint32

// SyncHandle identifies a registered sync on a stream.
type SyncHandle uint32

type StreamFlags uint8

const (
	SF_Loop StreamFlags = 1 << iota // restart at the beginning when the end is reached
)

type SyncKind uint8

const (
	SK_End SyncKind = iota // fires when the stream runs out of data
	SK_Pos                 // fires when playback crosses a byte position
)

type Attribute uint8

const (
	AT_Volume Attribute = iota // linear gain, 1 = unity
	AT_Pan                     // -1 (left) .. 1 (right)
	AT_Tempo                   // percent change, 0 = unmodified
)

// SyncFunc runs on the engine's mixing thread. It returns the byte position
// playback continues from, or -1 to leave the position alone. It must not
// call back into the engine.
type SyncFunc func(h StreamHandle) int64

// StreamFormat describes the decoded PCM a stream produces.
type StreamFormat struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// BytesPerSample is the size of one sample frame across all channels,
// rounded up to whole bytes. Unknown bit depths count as 16-bit.
func (f StreamFormat) BytesPerSample() int64 {
	bits := f.BitsPerSample
	if bits <= 0 {
		bits = 16
	}
	chans := f.Channels
	if chans <= 0 {
		chans = 2
	}
	return int64((bits*chans + 7) / 8)
}

// Engine is the playback backend the channel pool drives. Positions and
// lengths are byte offsets into the decoded stream.
type Engine interface {
	CreateStreamFile(path string, flags StreamFlags) (StreamHandle, error)
	CreateStreamMemory(data []byte, name string, flags StreamFlags) (StreamHandle, error)
	Play(h StreamHandle, restart bool) error
	Pause(h StreamHandle) error
	Stop(h StreamHandle) error
	Free(h StreamHandle) error
	IsActive(h StreamHandle) bool
	SetPosition(h StreamHandle, pos int64) error
	Position(h StreamHandle) int64
	Length(h StreamHandle) int64
	Format(h StreamHandle) (StreamFormat, error)
	SecondsToBytes(h StreamHandle, secs float64) int64
	SetAttribute(h StreamHandle, attr Attribute, value float64) error
	GetAttribute(h StreamHandle, attr Attribute) (float64, error)
	SetSync(h StreamHandle, kind SyncKind, pos int64, fn SyncFunc) (SyncHandle, error)
	RemoveSync(h StreamHandle, sync SyncHandle) error
	Close() error
}

// Sample/byte conversion. The legacy variant assumes 16-bit stereo no matter
// what the stream really is.
const legacyBytesPerSample = 4

func samplesToBytes(f StreamFormat, samples int64, legacy bool) int64 {
	if legacy {
		return samples * legacyBytesPerSample
	}
	return samples * f.BytesPerSample()
}

func bytesToSamples(f StreamFormat, bytes int64, legacy bool) int64 {
	if legacy {
		return bytes / legacyBytesPerSample
	}
	return bytes / f.BytesPerSample()
}
