// ABOUTME: Audio fundamentals package
// ABOUTME: Stream format and sample conversion helpers shared by decoders and outputs
// Package audio holds the types shared by the decoders in audio/decode and
// the playback sinks in audio/output.
//
// Samples travel between them as interleaved int32 values in 24-bit range,
// whatever the source bit depth.
package audio
