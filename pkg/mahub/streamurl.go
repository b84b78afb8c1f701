// ABOUTME: Stream URL construction
// ABOUTME: Builds hub stream endpoints against the server base URL
package mahub

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// StreamFormat is an output format of the hub's stream endpoints
type StreamFormat string

const (
	FormatMP3  StreamFormat = "mp3"
	FormatFLAC StreamFormat = "flac"
	FormatPCM  StreamFormat = "pcm"
)

// ParseStreamFormat validates a format name
func ParseStreamFormat(s string) (StreamFormat, error) {
	switch f := StreamFormat(strings.ToLower(s)); f {
	case FormatMP3, FormatFLAC, FormatPCM:
		return f, nil
	}
	return "", fmt.Errorf("unsupported stream format %q", s)
}

// JoinStreamPath appends a media path to a base URL
func JoinStreamPath(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// QueueStreamURL builds {flow|single}/{session}/{queue}/{item}.{format}
func QueueStreamURL(base, sessionID, queueID, queueItemID string, format StreamFormat, flowMode bool) string {
	mode := "single"
	if flowMode {
		mode = "flow"
	}
	return JoinStreamPath(base, fmt.Sprintf("%s/%s/%s/%s.%s", mode, sessionID, queueID, queueItemID, format))
}

// PreviewURL builds preview?item_id=..&provider=... The item id is
// percent-encoded twice, the provider once.
func PreviewURL(base, itemID, provider string) string {
	return JoinStreamPath(base, "preview") +
		"?item_id=" + strictEscape(strictEscape(itemID)) +
		"&provider=" + strictEscape(provider)
}

// AnnouncementURL builds announcement/{player}.{format}[?pre_announce=true]
func AnnouncementURL(base, playerID string, format StreamFormat, preAnnounce bool) string {
	u := JoinStreamPath(base, fmt.Sprintf("announcement/%s.%s", playerID, format))
	if preAnnounce {
		u += "?pre_announce=true"
	}
	return u
}

// PluginSourceURL builds pluginsource/{source}/{player}.{format}
func PluginSourceURL(base, source, playerID string, format StreamFormat) string {
	return JoinStreamPath(base, fmt.Sprintf("pluginsource/%s/%s.%s", source, playerID, format))
}

// strictEscape percent-encodes every byte except ASCII letters, digits and "-._~"
func strictEscape(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	}
	return false
}

// BaseURL returns the hub's base URL from server info, falling back to
// http://host:port when the hub did not advertise one. It fails with
// ErrNotConnected before the handshake.
func (c *Client) BaseURL() (string, error) {
	info := c.ServerInfo()
	if info == nil {
		return "", ErrNotConnected
	}
	if info.BaseURL != "" {
		return info.BaseURL, nil
	}
	return c.fallbackBaseURL(), nil
}

func (c *Client) fallbackBaseURL() string {
	u := url.URL{Scheme: "http", Host: net.JoinHostPort(c.host, strconv.Itoa(c.port))}
	return u.String()
}

// StreamURLForPath resolves a media path such as flow/s/q/i.mp3
func (c *Client) StreamURLForPath(path string) (string, error) {
	base, err := c.BaseURL()
	if err != nil {
		return "", err
	}
	return JoinStreamPath(base, path), nil
}

// ResolveMediaURL turns a built-in player media_url into a fetchable URL.
// Absolute URLs pass through; relative paths resolve against the base URL,
// or http://host:port while disconnected.
func (c *Client) ResolveMediaURL(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	base, err := c.BaseURL()
	if err != nil {
		base = c.fallbackBaseURL()
	}
	return JoinStreamPath(base, path)
}

// QueueStreamURL builds a queue stream URL against the hub base URL
func (c *Client) QueueStreamURL(sessionID, queueID, queueItemID string, format StreamFormat, flowMode bool) (string, error) {
	base, err := c.BaseURL()
	if err != nil {
		return "", err
	}
	return QueueStreamURL(base, sessionID, queueID, queueItemID, format, flowMode), nil
}

// PreviewURL builds a preview clip URL against the hub base URL
func (c *Client) PreviewURL(itemID, provider string) (string, error) {
	base, err := c.BaseURL()
	if err != nil {
		return "", err
	}
	return PreviewURL(base, itemID, provider), nil
}

// AnnouncementURL builds an announcement URL against the hub base URL
func (c *Client) AnnouncementURL(playerID string, format StreamFormat, preAnnounce bool) (string, error) {
	base, err := c.BaseURL()
	if err != nil {
		return "", err
	}
	return AnnouncementURL(base, playerID, format, preAnnounce), nil
}

// PluginSourceURL builds a plugin source URL against the hub base URL
func (c *Client) PluginSourceURL(source, playerID string, format StreamFormat) (string, error) {
	base, err := c.BaseURL()
	if err != nil {
		return "", err
	}
	return PluginSourceURL(base, source, playerID, format), nil
}
