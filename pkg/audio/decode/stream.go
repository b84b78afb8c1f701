// ABOUTME: Streaming decoder interface definition
// ABOUTME: Picks a decoder for a media stream by extension or content type
package decode

import (
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/Resonate-Protocol/mahub-go/pkg/audio"
)

// Stream decodes an encoded audio stream to PCM int32 samples in 24-bit range
type Stream interface {
	// Format returns the decoded format
	Format() audio.Format

	// Read fills samples with interleaved PCM and returns the number of
	// samples written. It returns io.EOF at the end of the stream.
	Read(samples []int32) (int, error)

	// Duration returns the stream length when the container reports it
	Duration() (time.Duration, bool)

	// Close releases the decoder and the underlying reader
	Close() error
}

// Codec names
const (
	CodecMP3  = "mp3"
	CodecFLAC = "flac"
	CodecPCM  = "pcm"
)

// DefaultPCMFormat is assumed for raw pcm streams: 16-bit stereo at 44.1kHz
var DefaultPCMFormat = audio.Format{Codec: CodecPCM, SampleRate: 44100, Channels: 2, BitDepth: 16}

// CodecFor picks a codec from a URL path extension, falling back to the
// response Content-Type. It returns "" when neither is recognized.
func CodecFor(urlPath, contentType string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(urlPath), ".")) {
	case "mp3":
		return CodecMP3
	case "flac":
		return CodecFLAC
	case "pcm", "raw":
		return CodecPCM
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return CodecMP3
	case "audio/flac", "audio/x-flac":
		return CodecFLAC
	case "audio/pcm", "audio/l16", "audio/x-raw":
		return CodecPCM
	}
	return ""
}

// Open creates a decoder for codec reading from r. The decoder owns r.
func Open(r io.ReadCloser, codec string) (Stream, error) {
	var s Stream
	var err error

	switch codec {
	case CodecMP3:
		s, err = NewMP3(r)
	case CodecFLAC:
		s, err = NewFLAC(r)
	case CodecPCM:
		s, err = NewPCM(r, DefaultPCMFormat)
	default:
		err = fmt.Errorf("unsupported codec: %q", codec)
	}

	if err != nil {
		r.Close()
		return nil, err
	}
	return s, nil
}
