// ABOUTME: Audio decoder package for hub stream formats
// ABOUTME: Provides the Stream interface and MP3, FLAC and PCM decoders
// Package decode provides streaming audio decoders for the formats the hub
// serves: MP3, FLAC and raw PCM.
//
// All decoders implement the Stream interface and output interleaved int32
// samples in 24-bit range.
//
// Example:
//
//	resp, err := http.Get(url)
//	stream, err := decode.Open(resp.Body, decode.CodecFor(url, resp.Header.Get("Content-Type")))
//	n, err := stream.Read(samples)
package decode
