// ABOUTME: Raw PCM stream decoder
// ABOUTME: Decodes 16-bit and 24-bit little-endian PCM to int32 samples
package decode

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/Resonate-Protocol/mahub-go/pkg/audio"
)

// PCMDecoder reads raw interleaved PCM
type PCMDecoder struct {
	r      io.ReadCloser
	br     *bufio.Reader
	format audio.Format
	buf    []byte
}

// NewPCM creates a PCM decoder for the given format
func NewPCM(r io.ReadCloser, format audio.Format) (*PCMDecoder, error) {
	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("invalid pcm format: %dHz %dch", format.SampleRate, format.Channels)
	}
	format.Codec = CodecPCM

	return &PCMDecoder{
		r:      r,
		br:     bufio.NewReader(r),
		format: format,
	}, nil
}

func (d *PCMDecoder) Format() audio.Format { return d.format }

func (d *PCMDecoder) Read(samples []int32) (int, error) {
	width := d.format.BitDepth / 8
	numBytes := len(samples) * width
	if cap(d.buf) < numBytes {
		d.buf = make([]byte, numBytes)
	}
	buf := d.buf[:numBytes]

	n, err := io.ReadFull(d.br, buf)
	numSamples := n / width
	for i := 0; i < numSamples; i++ {
		if width == 3 {
			samples[i] = audio.SampleFrom24Bit([3]byte{buf[i*3], buf[i*3+1], buf[i*3+2]})
		} else {
			samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
		}
	}

	switch err {
	case nil, io.ErrUnexpectedEOF:
		if numSamples == 0 {
			return 0, io.EOF
		}
		return numSamples, nil
	case io.EOF:
		return 0, io.EOF
	default:
		return numSamples, err
	}
}

// Duration is unknown for raw streams
func (d *PCMDecoder) Duration() (time.Duration, bool) { return 0, false }

func (d *PCMDecoder) Close() error {
	return d.r.Close()
}
