// ABOUTME: MP3 stream decoder
// ABOUTME: Decodes MP3 to int32 samples using go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/Resonate-Protocol/mahub-go/pkg/audio"
)

// MP3Decoder decodes an MP3 stream. go-mp3 always outputs 16-bit stereo.
type MP3Decoder struct {
	r       io.ReadCloser
	decoder *mp3.Decoder
	format  audio.Format
	buf     []byte
}

// NewMP3 creates an MP3 decoder reading from r
func NewMP3(r io.ReadCloser) (*MP3Decoder, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	return &MP3Decoder{
		r:       r,
		decoder: decoder,
		format: audio.Format{
			Codec:      CodecMP3,
			SampleRate: decoder.SampleRate(),
			Channels:   2,
			BitDepth:   16,
		},
	}, nil
}

func (d *MP3Decoder) Format() audio.Format { return d.format }

func (d *MP3Decoder) Read(samples []int32) (int, error) {
	numBytes := len(samples) * 2
	if cap(d.buf) < numBytes {
		d.buf = make([]byte, numBytes)
	}
	buf := d.buf[:numBytes]

	n, err := io.ReadFull(d.decoder, buf)
	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}

	switch err {
	case nil:
		return numSamples, nil
	case io.ErrUnexpectedEOF:
		return numSamples, nil
	case io.EOF:
		return 0, io.EOF
	default:
		return numSamples, fmt.Errorf("mp3 decode error: %w", err)
	}
}

// Duration is only known when the source was seekable
func (d *MP3Decoder) Duration() (time.Duration, bool) {
	length := d.decoder.Length()
	if length <= 0 {
		return 0, false
	}
	return d.format.Duration(int(length / 2)), true
}

func (d *MP3Decoder) Close() error {
	return d.r.Close()
}
