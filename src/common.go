package main

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Error is a string that satisfies the error interface, so sentinel errors
// can be declared as constants.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrChannelOutOfRange  = Error("channel out of range")
	ErrSlotOutOfRange     = Error("sfx slot out of range")
	ErrInvalidScope       = Error("invalid sfx scope")
	ErrNoFreeSlot         = Error("no free sfx slot")
	ErrFileNotFound       = Error("file not found")
	ErrAllocationFailure  = Error("allocation failure")
	ErrNoAvailableChannel = Error("no available channel")
	ErrInvalidHandle      = Error("invalid stream handle")
	ErrUnsupportedFormat  = Error("unsupported audio format")
)

func MinI(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func MaxI(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func ClampF(x, min, max float32) float32 {
	return float32(math.Max(float64(min), math.Min(float64(max), float64(x))))
}

// Atoi parses a decimal number, truncating fractions and saturating at the
// int32 range. Anything else, "12abc" included, is 0.
func Atoi(str string) int32 {
	str = strings.TrimSpace(str)
	n, err := strconv.ParseInt(str, 10, 32)
	if err == nil || errors.Is(err, strconv.ErrRange) {
		return int32(n)
	}
	if f, err := strconv.ParseFloat(str, 64); err == nil && !math.IsNaN(f) {
		return int32(math.Max(math.MinInt32, math.Min(math.MaxInt32, f)))
	}
	return 0
}

// TrimExtension drops the final extension of a path, if any.
func TrimExtension(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file))
}

// FileExist returns the path when it names a regular file, or "".
func FileExist(filename string) string {
	if fi, err := os.Stat(filename); err == nil && !fi.IsDir() {
		return filename
	}
	return ""
}

// SearchFile looks for file under each dir in order and returns the first
// hit, or "" when nothing matches.
func SearchFile(file string, dirs []string) string {
	file = filepath.FromSlash(file)
	for _, dir := range dirs {
		if fp := FileExist(filepath.Join(filepath.FromSlash(dir), file)); fp != "" {
			return fp
		}
	}
	return ""
}

func MinI32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func MaxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
