// ABOUTME: Streaming information commands
// ABOUTME: Stream URL lookup, Resonate stream lookup and capability checks
package mahub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
)

// StreamProtocol is how a stream is delivered
type StreamProtocol string

const (
	ProtocolResonate StreamProtocol = "resonate"
	ProtocolHTTP     StreamProtocol = "http"
	ProtocolHTTPS    StreamProtocol = "https"
	ProtocolFile     StreamProtocol = "file"
)

// Valid reports whether p is a known protocol
func (p StreamProtocol) Valid() bool {
	switch p {
	case ProtocolResonate, ProtocolHTTP, ProtocolHTTPS, ProtocolFile:
		return true
	}
	return false
}

// AudioFormat describes a stream's encoding
type AudioFormat struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate,omitempty"`
	BitDepth   int    `json:"bit_depth,omitempty"`
	Bitrate    int    `json:"bitrate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// IsLossless reports whether the codec is lossless
func (f AudioFormat) IsLossless() bool {
	switch strings.ToLower(f.Codec) {
	case "flac", "alac", "wav", "aiff":
		return true
	}
	return false
}

// StreamingInfo describes where and how to stream a media item
type StreamingInfo struct {
	URL          string         `json:"url"`
	Protocol     StreamProtocol `json:"protocol"`
	Format       AudioFormat    `json:"format"`
	MediaItemID  string         `json:"media_item_id,omitempty"`
	QueueID      string         `json:"queue_id,omitempty"`
	Duration     *float64       `json:"duration,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	SupportsSeek bool           `json:"supports_seek"`
	IsLive       bool           `json:"is_live"`
}

// decodeStreamingInfo validates and decodes a result. A non-object result is
// ErrInvalidResponse; a missing url, protocol or format codec is a DecodingError.
func decodeStreamingInfo(raw json.RawMessage) (*StreamingInfo, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, protocol.ErrInvalidResponse
	}

	for _, key := range []string{"url", "protocol", "format"} {
		if _, ok := fields[key]; !ok {
			return nil, &protocol.DecodingError{Err: fmt.Errorf("missing %s", key)}
		}
	}

	info := StreamingInfo{SupportsSeek: true}
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, &protocol.DecodingError{Err: err}
	}
	if info.URL == "" {
		return nil, &protocol.DecodingError{Err: fmt.Errorf("empty url")}
	}
	if !info.Protocol.Valid() {
		return nil, &protocol.DecodingError{Err: fmt.Errorf("unknown protocol %q", info.Protocol)}
	}
	if info.Format.Codec == "" {
		return nil, &protocol.DecodingError{Err: fmt.Errorf("missing format codec")}
	}
	return &info, nil
}

// ServerInfo returns the handshake info, or nil when not connected
func (c *Client) ServerInfo() *protocol.ServerInfo {
	s := c.transport.State()
	if s.Status != protocol.StatusConnected {
		return nil
	}
	return s.ServerInfo
}

// SupportsResonate reports whether the hub advertises the resonate capability
func (c *Client) SupportsResonate() bool {
	info := c.ServerInfo()
	return info != nil && info.HasCapability("resonate")
}

// GetStreamURL asks the hub how to stream a media item over the preferred
// protocol
func (c *Client) GetStreamURL(ctx context.Context, mediaItemID string, preferred StreamProtocol) (*StreamingInfo, error) {
	if preferred == "" {
		preferred = ProtocolHTTP
	}
	raw, err := c.SendCommand(ctx, "music/get_stream_url", map[string]any{
		"media_item_id":      mediaItemID,
		"preferred_protocol": string(preferred),
	})
	if err != nil {
		return nil, err
	}
	return decodeStreamingInfo(raw)
}

// GetResonateStream returns the Resonate stream for a queue, or nil when the
// hub has none
func (c *Client) GetResonateStream(ctx context.Context, queueID string) (*StreamingInfo, error) {
	raw, err := c.SendCommand(ctx, "player_queues/get_resonate_stream", map[string]any{"queue_id": queueID})
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}
	return decodeStreamingInfo(raw)
}
