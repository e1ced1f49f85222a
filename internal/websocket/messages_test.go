package websocket

import (
	"encoding/json"
	"testing"

	"github.com/satriahrh/wicara/domain/entities"
)

func TestParseControlMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		wantType MessageType
	}{
		{
			name:     "start call",
			input:    `{"type":"start_call"}`,
			wantType: MessageTypeStartCall,
		},
		{
			name:     "end call",
			input:    `{"type":"end_call"}`,
			wantType: MessageTypeEndCall,
		},
		{
			name:     "mic ready",
			input:    `{"type":"mic_ready"}`,
			wantType: MessageTypeMicReady,
		},
		{
			name:     "mic denied with reason",
			input:    `{"type":"mic_denied","reason":"NotAllowedError"}`,
			wantType: MessageTypeMicDenied,
		},
		{
			name:    "missing type",
			input:   `{"reason":"whatever"}`,
			wantErr: true,
		},
		{
			name:    "server-only type rejected",
			input:   `{"type":"call_status"}`,
			wantErr: true,
		},
		{
			name:    "unknown type",
			input:   `{"type":"bogus"}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			input:   `{not json}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseControlMessage([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseControlMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.wantType {
				t.Errorf("Expected type %s, got %s", tt.wantType, msg.Type)
			}
			if msg.Timestamp == "" {
				t.Error("Expected timestamp to be filled in")
			}
		})
	}
}

func TestParseControlMessage_DenialReason(t *testing.T) {
	msg, err := ParseControlMessage([]byte(`{"type":"mic_denied","reason":"user dismissed prompt"}`))
	if err != nil {
		t.Fatalf("ParseControlMessage failed: %v", err)
	}
	if msg.Reason != "user dismissed prompt" {
		t.Errorf("Expected reason preserved, got '%s'", msg.Reason)
	}
}

func TestCreateCallStatusMessage(t *testing.T) {
	msg := CreateCallStatusMessage(entities.CallStatusError, "Could not access the microphone.")

	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded["type"] != "call_status" {
		t.Errorf("Expected type 'call_status', got %v", decoded["type"])
	}
	if decoded["status"] != "error" {
		t.Errorf("Expected status 'error', got %v", decoded["status"])
	}
	if decoded["error_message"] != "Could not access the microphone." {
		t.Errorf("Expected error message, got %v", decoded["error_message"])
	}
}

func TestCreateCallStatusMessage_OmitsEmptyError(t *testing.T) {
	payload, err := json.Marshal(CreateCallStatusMessage(entities.CallStatusActive, ""))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, present := decoded["error_message"]; present {
		t.Error("Expected empty error_message to be omitted")
	}
}

func TestCreateTranscriptMessage(t *testing.T) {
	entry := entities.TranscriptMessage{
		Speaker: entities.SpeakerAI,
		Text:    "Hi there",
	}
	msg := CreateTranscriptMessage(entry)

	if msg.Type != MessageTypeTranscript {
		t.Errorf("Expected type transcript, got %s", msg.Type)
	}
	if msg.Speaker != entities.SpeakerAI {
		t.Errorf("Expected speaker ai, got %s", msg.Speaker)
	}
	if msg.Text != "Hi there" {
		t.Errorf("Expected text preserved, got '%s'", msg.Text)
	}
}

func TestCreateErrorMessage(t *testing.T) {
	msg := CreateErrorMessage("invalid_message", "unsupported message type: bogus")

	if msg.Type != MessageTypeError {
		t.Errorf("Expected type error, got %s", msg.Type)
	}
	if msg.Code != "invalid_message" {
		t.Errorf("Expected code 'invalid_message', got '%s'", msg.Code)
	}
	if msg.Message == "" {
		t.Error("Expected message to be set")
	}
}
