// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback sinks
package output

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels, bitDepth int) error

	// Write outputs audio samples (blocks until written)
	Write(samples []int32) error

	// SetVolume sets the software volume (0-100)
	SetVolume(volume int)

	// SetMuted sets the mute state
	SetMuted(muted bool)

	// Close releases output resources
	Close() error
}
