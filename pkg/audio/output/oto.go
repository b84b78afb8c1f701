// ABOUTME: Oto-based audio output implementation
// ABOUTME: Handles PCM playback with software volume control using oto library
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/Resonate-Protocol/mahub-go/pkg/audio"
	"github.com/Resonate-Protocol/mahub-go/pkg/audio/resample"
)

// Oto output implementation using oto library
type Oto struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	sampleRate int
	channels   int
	conv       *converter
	volume     int
	muted      bool
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{volume: 100}
}

// Open initializes the output device. oto allows one context per process,
// so a later Open with a different format keeps the device format and
// converts the new stream to it.
func (o *Oto) Open(sampleRate, channels, bitDepth int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	// oto only supports 16-bit output
	if bitDepth != 16 {
		log.Printf("Output is 16-bit, converting from %d-bit", bitDepth)
	}

	if o.otoCtx != nil {
		o.conv = newConverter(sampleRate, channels, o.sampleRate, o.channels)
		if o.conv != nil {
			log.Printf("Converting %dHz %dch to output format %dHz %dch",
				sampleRate, channels, o.sampleRate, o.channels)
		}
		if o.player == nil {
			o.startPlayer()
		}
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels
	o.startPlayer()

	log.Printf("Audio output initialized: %dHz, %d channels", sampleRate, channels)
	return nil
}

// startPlayer creates a persistent player fed through a pipe
func (o *Oto) startPlayer() {
	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()
}

// Write outputs audio samples (blocks until written)
func (o *Oto) Write(samples []int32) error {
	o.mu.Lock()
	w := o.pipeWriter
	conv := o.conv
	volume, muted := o.volume, o.muted
	o.mu.Unlock()

	if w == nil {
		return fmt.Errorf("output not initialized")
	}
	if conv != nil {
		samples = conv.convert(samples)
	}

	if _, err := w.Write(encodeInt16LE(applyVolume(samples, volume, muted))); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close stops the player. The oto context is kept for a later Open.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	return nil
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	volume = max(0, min(100, volume))
	o.mu.Lock()
	o.volume = volume
	o.mu.Unlock()
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	o.mu.Unlock()
}

// converter adapts a stream to the device format
type converter struct {
	inChannels  int
	outChannels int
	resampler   *resample.Resampler
}

// newConverter returns nil when the formats already match
func newConverter(inRate, inChannels, outRate, outChannels int) *converter {
	if inRate == outRate && inChannels == outChannels {
		return nil
	}
	return &converter{
		inChannels:  inChannels,
		outChannels: outChannels,
		resampler:   resample.New(inRate, outRate, outChannels),
	}
}

func (c *converter) convert(samples []int32) []int32 {
	return c.resampler.Process(resample.Remix(samples, c.inChannels, c.outChannels))
}

// encodeInt16LE converts 24-bit range samples to 16-bit little-endian bytes
func encodeInt16LE(samples []int32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(audio.SampleToInt16(s)))
	}
	return out
}

// applyVolume applies volume and mute to samples with clipping protection
func applyVolume(samples []int32, volume int, muted bool) []int32 {
	multiplier := 0.0
	if !muted {
		multiplier = float64(volume) / 100.0
	}

	result := make([]int32, len(samples))
	for i, sample := range samples {
		scaled := int64(float64(sample) * multiplier)

		// Clamp to 24-bit range to prevent overflow
		if scaled > audio.Max24Bit {
			scaled = audio.Max24Bit
		} else if scaled < audio.Min24Bit {
			scaled = audio.Min24Bit
		}

		result[i] = int32(scaled)
	}
	return result
}
