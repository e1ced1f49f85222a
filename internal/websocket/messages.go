package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/satriahrh/wicara/domain/entities"
)

// MessageType defines the type of WebSocket control message
type MessageType string

// Supported message types. Audio travels as binary frames, not JSON:
// client -> server binary is 16 kHz s16le microphone audio, server -> client
// binary is 24 kHz s16le playback audio.
const (
	// client -> server
	MessageTypeStartCall MessageType = "start_call"
	MessageTypeEndCall   MessageType = "end_call"
	MessageTypeMicReady  MessageType = "mic_ready"
	MessageTypeMicDenied MessageType = "mic_denied"

	// server -> client
	MessageTypeCaptureStart MessageType = "capture_start"
	MessageTypeCaptureStop  MessageType = "capture_stop"
	MessageTypeCallStatus   MessageType = "call_status"
	MessageTypeTranscript   MessageType = "transcript"
	MessageTypeError        MessageType = "error"
)

// BaseMessage defines the common structure for all control messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// ClientControlMessage is an inbound control message from the browser
type ClientControlMessage struct {
	BaseMessage
	// Reason carries the denial detail for mic_denied
	Reason string `json:"reason,omitempty"`
}

// CallStatusMessage reports the call status to the client
type CallStatusMessage struct {
	BaseMessage
	Status       entities.CallStatus `json:"status"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

// TranscriptMessage pushes one completed transcript line to the client
type TranscriptMessage struct {
	BaseMessage
	Speaker entities.Speaker `json:"speaker"`
	Text    string           `json:"text"`
}

// ErrorMessage reports a protocol-level error to the client
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// ParseControlMessage parses and validates an inbound control message
func ParseControlMessage(messageBytes []byte) (*ClientControlMessage, error) {
	var msg ClientControlMessage
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch msg.Type {
	case MessageTypeStartCall, MessageTypeEndCall, MessageTypeMicReady, MessageTypeMicDenied:
	case "":
		return nil, fmt.Errorf("message missing type field")
	default:
		return nil, fmt.Errorf("unsupported message type: %s", msg.Type)
	}

	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().Format(time.RFC3339)
	}
	return &msg, nil
}

// CreateCallStatusMessage creates a call status message
func CreateCallStatusMessage(status entities.CallStatus, errorMessage string) *CallStatusMessage {
	return &CallStatusMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeCallStatus,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Status:       status,
		ErrorMessage: errorMessage,
	}
}

// CreateTranscriptMessage creates a transcript push message
func CreateTranscriptMessage(msg entities.TranscriptMessage) *TranscriptMessage {
	return &TranscriptMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeTranscript,
			Timestamp: msg.Timestamp.Format(time.RFC3339),
		},
		Speaker: msg.Speaker,
		Text:    msg.Text,
	}
}

// CreateControlMessage creates a bare control message of the given type
func CreateControlMessage(messageType MessageType) *BaseMessage {
	return &BaseMessage{
		Type:      messageType,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeError,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Code:    code,
		Message: message,
	}
}
