// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between sample rates and channel layouts
// Package resample converts decoded audio to a fixed output format.
//
// Example:
//
//	r := resample.New(48000, 44100, 2)
//	out := r.Process(samples)
//	stereo := resample.Remix(mono, 1, 2)
package resample
