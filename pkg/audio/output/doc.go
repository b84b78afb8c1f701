// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Output interface and an oto implementation
// Package output provides audio playback sinks.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(44100, 2, 16)
//	err = out.Write(samples)
package output
