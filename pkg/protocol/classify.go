// ABOUTME: Inbound message classification
// ABOUTME: Sorts raw payloads into server info, results, errors and events
package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind identifies what an inbound message turned out to be
type Kind int

const (
	KindUnknown Kind = iota
	KindServerInfo
	KindResult
	KindError
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindServerInfo:
		return "server_info"
	case KindResult:
		return "result"
	case KindError:
		return "error"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Envelope holds a classified message. Only the field matching Kind is set.
type Envelope struct {
	Kind       Kind
	ServerInfo *ServerInfo
	Result     *Result
	Error      *ErrorResponse
	Event      *Event
}

// Classify decodes a raw text frame. Key presence decides the kind, checked in
// order: server_version, event, message_id (with error or result).
// Payloads that are not JSON objects return an error; objects that match no
// rule come back as KindUnknown.
func Classify(data []byte) (Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Envelope{}, fmt.Errorf("failed to parse message: %w", err)
	}
	if fields == nil {
		return Envelope{}, fmt.Errorf("message is not an object")
	}

	if _, ok := fields["server_version"]; ok {
		var info ServerInfo
		if err := json.Unmarshal(data, &info); err != nil {
			return Envelope{}, fmt.Errorf("failed to parse server info: %w", err)
		}
		return Envelope{Kind: KindServerInfo, ServerInfo: &info}, nil
	}

	if _, ok := fields["event"]; ok {
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			return Envelope{}, fmt.Errorf("failed to parse event: %w", err)
		}
		return Envelope{Kind: KindEvent, Event: &evt}, nil
	}

	if _, ok := fields["message_id"]; ok {
		if _, ok := fields["error"]; ok {
			var resp ErrorResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return Envelope{}, fmt.Errorf("failed to parse error response: %w", err)
			}
			return Envelope{Kind: KindError, Error: &resp}, nil
		}
		if raw, ok := fields["result"]; ok {
			var res Result
			if err := json.Unmarshal(fields["message_id"], &res.MessageID); err != nil {
				return Envelope{}, fmt.Errorf("failed to parse message id: %w", err)
			}
			// Keep an explicit null as-is so callers can tell it from a missing value
			res.Result = raw
			return Envelope{Kind: KindResult, Result: &res}, nil
		}
	}

	return Envelope{Kind: KindUnknown}, nil
}
