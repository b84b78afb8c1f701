// ABOUTME: Audio type definitions
// ABOUTME: Decoded stream format, timing math and sample conversions
package audio

import "time"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes a decoded audio stream
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Duration converts an interleaved sample count to playback time
func (f Format) Duration(samples int) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := int64(samples / f.Channels)
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Samples converts playback time to an interleaved sample count, rounded
// down to a whole frame
func (f Format) Samples(d time.Duration) int {
	if d <= 0 || f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := int64(d) * int64(f.SampleRate) / int64(time.Second)
	return int(frames) * f.Channels
}

// SampleToInt16 converts a 24-bit range sample to int16
func SampleToInt16(sample int32) int16 {
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 to 24-bit range
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleTo24Bit packs the lower 24 bits little-endian
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit unpacks little-endian 24-bit and sign-extends
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
