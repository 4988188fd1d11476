package main

import (
	"fmt"
	"log"
	"os"
)

const (
	SlotAuto   = -1  // pick the first free slot
	MaxNameLen = 260 // longest name a slot keeps, in bytes
)

type SfxScope uint8

const (
	SS_None   SfxScope = iota // free slot
	SS_Global                 // lives until overwritten
	SS_Stage                  // purged on stage transitions
)

// SoundFX is one loaded sound effect: the encoded file bytes, decoded again
// for every play.
type SoundFX struct {
	name               string
	buffer             []byte
	scope              SfxScope
	maxConcurrentPlays int // 0 means unbounded
}

func (s *SoundFX) Name() string { return s.name }
func (s *SoundFX) Scope() SfxScope { return s.scope }
func (s *SoundFX) MaxPlays() int { return s.maxConcurrentPlays }
func (s *SoundFX) Buffer() []byte { return s.buffer }
func (s *SoundFX) IsLoaded() bool { return s.scope != SS_None }
func (s *SoundFX) reset() { *s = SoundFX{} }

// SfxRegistry is the fixed table of loaded sound effects.
type SfxRegistry struct {
	slots  []SoundFX
	errLog *log.Logger
}

func newSfxRegistry(size int, errLog *log.Logger) *SfxRegistry {
	return &SfxRegistry{slots: make([]SoundFX, size), errLog: errLog}
}

func (r *SfxRegistry) count() int {
	return len(r.slots)
}

// Get returns the loaded effect at id, or nil.
func (r *SfxRegistry) Get(id int) *SoundFX {
	if id < 0 || id >= len(r.slots) || !r.slots[id].IsLoaded() {
		return nil
	}
	return &r.slots[id]
}

// Find returns the slot holding name, or -1.
func (r *SfxRegistry) Find(name string) int {
	for i := range r.slots {
		if r.slots[i].scope != SS_None && r.slots[i].name == name {
			return i
		}
	}
	return -1
}

func (r *SfxRegistry) freeSlot() int {
	for i := range r.slots {
		if r.slots[i].scope == SS_None {
			return i
		}
	}
	return -1
}

// Load reads filePath into slot (or the first free slot for SlotAuto). The
// slot is only touched once the file has been read completely.
func (r *SfxRegistry) Load(filePath, name string, slot, maxConcurrentPlays int, scope SfxScope) (int, error) {
	if slot == SlotAuto {
		if slot = r.freeSlot(); slot < 0 {
			return -1, ErrNoFreeSlot
		}
	}
	if slot < 0 || slot >= len(r.slots) {
		return -1, fmt.Errorf("%w: slot = %v", ErrSlotOutOfRange, slot)
	}
	if scope == SS_None {
		scope = SS_Global
	}
	if scope > SS_Stage {
		return -1, fmt.Errorf("%w: %v", ErrInvalidScope, uint8(scope))
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	if len(data) == 0 {
		return -1, fmt.Errorf("%w: %v is empty", ErrAllocationFailure, filePath)
	}
	if len(name) > MaxNameLen {
		r.errLog.Printf("SFX name truncated to %v bytes: %v", MaxNameLen, name)
		name = name[:MaxNameLen]
	}
	sfx := &r.slots[slot]
	sfx.buffer = data
	sfx.name = name
	sfx.maxConcurrentPlays = MaxI(0, maxConcurrentPlays)
	sfx.scope = scope
	return slot, nil
}

// Clear frees every slot with the given scope and returns how many were
// freed.
func (r *SfxRegistry) Clear(scope SfxScope) int {
	if scope == SS_None {
		return 0
	}
	n := 0
	for i := range r.slots {
		if r.slots[i].scope == scope {
			r.slots[i].reset()
			n++
		}
	}
	return n
}
