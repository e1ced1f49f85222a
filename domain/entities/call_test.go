package entities

import (
	"testing"
)

func TestCallStatus_CanStart(t *testing.T) {
	tests := []struct {
		status CallStatus
		want   bool
	}{
		{CallStatusIdle, true},
		{CallStatusEnded, true},
		{CallStatusError, true},
		{CallStatusConnecting, false},
		{CallStatusActive, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.CanStart(); got != tt.want {
				t.Errorf("CanStart() from %s = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestNewCall(t *testing.T) {
	call := NewCall()

	if call.ID == "" {
		t.Error("Expected call ID to be set")
	}
	if call.Status != CallStatusConnecting {
		t.Errorf("Expected status connecting, got %s", call.Status)
	}
	if call.StartedAt.IsZero() {
		t.Error("Expected StartedAt to be set")
	}
	if call.EndedAt != nil {
		t.Error("Expected EndedAt to be unset")
	}
	if len(call.Transcript) != 0 {
		t.Errorf("Expected empty transcript, got %d entries", len(call.Transcript))
	}
	if err := call.Validate(); err != nil {
		t.Errorf("New call failed validation: %v", err)
	}
}

func TestCall_AppendTranscript(t *testing.T) {
	call := NewCall()

	call.AppendTranscript(SpeakerSystem, "Starting...")
	call.AppendTranscript(SpeakerUser, "Hello")
	call.AppendTranscript(SpeakerAI, "Hi there")

	if len(call.Transcript) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(call.Transcript))
	}
	if call.Transcript[1].Speaker != SpeakerUser || call.Transcript[1].Text != "Hello" {
		t.Errorf("Unexpected entry: %+v", call.Transcript[1])
	}
	if call.Transcript[2].Timestamp.Before(call.Transcript[0].Timestamp) {
		t.Error("Expected timestamps in append order")
	}
}

func TestCall_Finish(t *testing.T) {
	call := NewCall()
	call.AppendTranscript(SpeakerUser, "Hello")

	call.Finish(CallStatusError, "something broke")

	if call.Status != CallStatusError {
		t.Errorf("Expected status error, got %s", call.Status)
	}
	if call.ErrorMessage != "something broke" {
		t.Errorf("Expected error message set, got '%s'", call.ErrorMessage)
	}
	if call.EndedAt == nil {
		t.Error("Expected EndedAt to be stamped")
	}
	// The transcript survives a terminal error.
	if len(call.Transcript) != 1 {
		t.Errorf("Expected transcript preserved, got %d entries", len(call.Transcript))
	}

	// The first terminal status wins.
	call.Finish(CallStatusEnded, "")
	if call.Status != CallStatusError {
		t.Errorf("Expected error to stick, got %s", call.Status)
	}
	if call.ErrorMessage != "something broke" {
		t.Errorf("Expected error message to stick, got '%s'", call.ErrorMessage)
	}
}

func TestCall_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Call)
		wantErr bool
	}{
		{
			name:    "valid call",
			mutate:  func(c *Call) {},
			wantErr: false,
		},
		{
			name:    "missing id",
			mutate:  func(c *Call) { c.ID = "" },
			wantErr: true,
		},
		{
			name:    "unknown status",
			mutate:  func(c *Call) { c.Status = "ringing" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := NewCall()
			tt.mutate(call)
			if err := call.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
