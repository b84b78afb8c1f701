// ABOUTME: Tests for hub protocol message types and classification
// ABOUTME: Verifies key-based classification order and error formatting
package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestClassifyServerInfo(t *testing.T) {
	data := []byte(`{"server_version":"2.5.0","schema_version":27,"min_supported_schema_version":24,"server_id":"abc","homeassistant_addon":false,"capabilities":["resonate"],"base_url":"http://hub.local:8095","onboard_done":true}`)

	env, err := Classify(data)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if env.Kind != KindServerInfo {
		t.Fatalf("expected server info, got %s", env.Kind)
	}
	if env.ServerInfo.ServerID != "abc" {
		t.Errorf("expected server id abc, got %s", env.ServerInfo.ServerID)
	}
	if env.ServerInfo.SchemaVersion != 27 {
		t.Errorf("expected schema 27, got %d", env.ServerInfo.SchemaVersion)
	}
	if env.ServerInfo.BaseURL != "http://hub.local:8095" {
		t.Errorf("unexpected base url %s", env.ServerInfo.BaseURL)
	}
	if !env.ServerInfo.HasCapability("resonate") {
		t.Error("expected resonate capability")
	}
	if env.ServerInfo.HasCapability("airplay") {
		t.Error("did not expect airplay capability")
	}
}

func TestClassifyServerVersionWins(t *testing.T) {
	// server_version takes precedence even when other keys are present
	data := []byte(`{"server_version":"2.5.0","event":"player_updated","message_id":3,"result":true}`)

	env, err := Classify(data)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if env.Kind != KindServerInfo {
		t.Errorf("expected server info, got %s", env.Kind)
	}
}

func TestClassifyEventBeforeMessageID(t *testing.T) {
	data := []byte(`{"event":"player_updated","object_id":"p1","message_id":4,"data":{"state":"playing"}}`)

	env, err := Classify(data)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if env.Kind != KindEvent {
		t.Fatalf("expected event, got %s", env.Kind)
	}
	if env.Event.Event != "player_updated" || env.Event.ObjectID != "p1" {
		t.Errorf("unexpected event %+v", env.Event)
	}

	var data2 map[string]string
	if err := json.Unmarshal(env.Event.Data, &data2); err != nil {
		t.Fatalf("failed to decode event data: %v", err)
	}
	if data2["state"] != "playing" {
		t.Errorf("expected state playing, got %s", data2["state"])
	}
}

func TestClassifyResult(t *testing.T) {
	env, err := Classify([]byte(`{"message_id":7,"result":[{"player_id":"p1"}]}`))
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if env.Kind != KindResult {
		t.Fatalf("expected result, got %s", env.Kind)
	}
	if env.Result.MessageID != 7 {
		t.Errorf("expected id 7, got %d", env.Result.MessageID)
	}
	if string(env.Result.Result) != `[{"player_id":"p1"}]` {
		t.Errorf("unexpected payload %s", env.Result.Result)
	}
}

func TestClassifyNullResult(t *testing.T) {
	env, err := Classify([]byte(`{"message_id":8,"result":null}`))
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if env.Kind != KindResult {
		t.Fatalf("expected result, got %s", env.Kind)
	}
	if string(env.Result.Result) != "null" {
		t.Errorf("expected null payload, got %q", env.Result.Result)
	}
}

func TestClassifyErrorResponse(t *testing.T) {
	env, err := Classify([]byte(`{"message_id":9,"error":"Player not found","error_code":404,"details":{"player_id":"x"}}`))
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if env.Kind != KindError {
		t.Fatalf("expected error, got %s", env.Kind)
	}
	if env.Error.MessageID != 9 || env.Error.Error != "Player not found" {
		t.Errorf("unexpected error response %+v", env.Error)
	}
	if env.Error.ErrorCode == nil || *env.Error.ErrorCode != 404 {
		t.Errorf("expected error code 404")
	}
}

func TestClassifyErrorBeforeResult(t *testing.T) {
	env, err := Classify([]byte(`{"message_id":10,"error":"boom","result":null}`))
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if env.Kind != KindError {
		t.Errorf("expected error, got %s", env.Kind)
	}
}

func TestClassifyUnknown(t *testing.T) {
	tests := []string{
		`{"foo":"bar"}`,
		`{"message_id":11}`,
		`{}`,
	}
	for _, tt := range tests {
		env, err := Classify([]byte(tt))
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt, err)
			continue
		}
		if env.Kind != KindUnknown {
			t.Errorf("%s: expected unknown, got %s", tt, env.Kind)
		}
	}
}

func TestClassifyMalformed(t *testing.T) {
	for _, tt := range []string{`not json`, `[1,2,3]`, `null`, `{"message_id":"x","result":1}`} {
		if _, err := Classify([]byte(tt)); err == nil {
			t.Errorf("%s: expected error", tt)
		}
	}
}

func TestCommandOmitsEmptyArgs(t *testing.T) {
	data, err := json.Marshal(Command{MessageID: 1, Command: "players/all"})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if string(data) != `{"message_id":1,"command":"players/all"}` {
		t.Errorf("unexpected encoding %s", data)
	}
}

func TestErrorMessages(t *testing.T) {
	code := 500
	tests := []struct {
		err  error
		want string
	}{
		{ErrNotConnected, "not connected to server"},
		{&CommandTimeoutError{ID: 5, Timeout: 30 * time.Second}, "command 5 timed out after 30s"},
		{&ServerError{Code: &code, Message: "boom"}, "server error 500: boom"},
		{&ServerError{Message: "boom"}, "server error: boom"},
	}
	for _, tt := range tests {
		if tt.err.Error() != tt.want {
			t.Errorf("expected %q, got %q", tt.want, tt.err.Error())
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("refused")
	var err error = &ConnectionFailedError{Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected ConnectionFailedError to unwrap")
	}

	err = &DecodingError{Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected DecodingError to unwrap")
	}

	code := 1
	srvErr := NewServerError(&ErrorResponse{MessageID: 1, Error: "bad", ErrorCode: &code})
	var target *ServerError
	if !errors.As(error(srvErr), &target) || target.Message != "bad" {
		t.Error("expected errors.As to find ServerError")
	}
}
