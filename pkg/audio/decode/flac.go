// ABOUTME: FLAC stream decoder
// ABOUTME: Decodes FLAC frames to int32 samples using mewkiz/flac
package decode

import (
	"fmt"
	"io"
	"time"

	"github.com/mewkiz/flac"

	"github.com/Resonate-Protocol/mahub-go/pkg/audio"
)

// FLACDecoder decodes a FLAC stream frame by frame
type FLACDecoder struct {
	r       io.ReadCloser
	stream  *flac.Stream
	format  audio.Format
	total   uint64
	pending []int32
}

// NewFLAC creates a FLAC decoder reading from r
func NewFLAC(r io.ReadCloser) (*FLACDecoder, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &FLACDecoder{
		r:      r,
		stream: stream,
		total:  info.NSamples,
		format: audio.Format{
			Codec:      CodecFLAC,
			SampleRate: int(info.SampleRate),
			Channels:   int(info.NChannels),
			BitDepth:   int(info.BitsPerSample),
		},
	}, nil
}

func (d *FLACDecoder) Format() audio.Format { return d.format }

func (d *FLACDecoder) Read(samples []int32) (int, error) {
	n := 0
	for n < len(samples) {
		if len(d.pending) == 0 {
			frame, err := d.stream.ParseNext()
			if err == io.EOF {
				if n == 0 {
					return 0, io.EOF
				}
				return n, nil
			}
			if err != nil {
				return n, fmt.Errorf("flac decode error: %w", err)
			}

			// Interleave channels
			for i := 0; i < int(frame.BlockSize); i++ {
				for ch := range frame.Subframes {
					d.pending = append(d.pending, ScaleTo24Bit(frame.Subframes[ch].Samples[i], d.format.BitDepth))
				}
			}
		}

		copied := copy(samples[n:], d.pending)
		d.pending = d.pending[copied:]
		n += copied
	}
	return n, nil
}

// Duration comes from the STREAMINFO sample count when present
func (d *FLACDecoder) Duration() (time.Duration, bool) {
	if d.total == 0 || d.format.SampleRate == 0 {
		return 0, false
	}
	return time.Duration(d.total) * time.Second / time.Duration(d.format.SampleRate), true
}

func (d *FLACDecoder) Close() error {
	return d.r.Close()
}

// ScaleTo24Bit shifts a sample of the given bit depth into 24-bit range
func ScaleTo24Bit(sample int32, bitDepth int) int32 {
	shift := bitDepth - 24
	switch {
	case shift > 0:
		return sample >> shift
	case shift < 0:
		return sample << -shift
	default:
		return sample
	}
}
