package repositories

import (
	"context"

	"github.com/satriahrh/wicara/internal/audio"
)

// LiveConfig is passed to the remote session at open time
type LiveConfig struct {
	Model string `json:"model"`
	// Voice is the target voice identity for spoken replies
	Voice string `json:"voice"`
	// SystemPrompt is the fixed tutor persona text
	SystemPrompt string `json:"system_prompt"`
	// InputTranscription and OutputTranscription request speech-to-text of
	// the user's and the model's audio respectively
	InputTranscription  bool `json:"input_transcription"`
	OutputTranscription bool `json:"output_transcription"`
}

// LiveEventType discriminates events on the session's ordered event stream
type LiveEventType string

const (
	LiveEventOpened  LiveEventType = "opened"
	LiveEventMessage LiveEventType = "message"
	LiveEventError   LiveEventType = "error"
	LiveEventClosed  LiveEventType = "closed"
)

// LiveMessage is one multiplexed server message. Any combination of fields
// may be set; the session delivers them in the order they must be applied.
type LiveMessage struct {
	// UserText is a partial transcription delta of the user's speech
	UserText string
	// AIText is a partial transcription delta of the model's speech
	AIText string
	// AudioBase64 is an inbound speech fragment, base64 16-bit PCM at 24 kHz
	AudioBase64 string
	// TurnComplete signals the current exchange unit is finished
	TurnComplete bool
	// Interrupted signals queued model speech was cut off by the user
	Interrupted bool
}

// LiveEvent is a single event from the remote session
type LiveEvent struct {
	Type    LiveEventType
	Message *LiveMessage
	// Detail carries the remote-reported error message for error events
	Detail string
}

// LiveSession is an open bidirectional streaming session with the remote AI.
// Events are consumed from a single channel in delivery order; the channel is
// closed after the closed or error event.
type LiveSession interface {
	// SendAudio forwards one encoded capture frame. Fire-and-forget from the
	// caller's perspective; errors mean the frame was dropped.
	SendAudio(fragment audio.Encoded) error
	// Events yields the session's ordered event stream
	Events() <-chan LiveEvent
	// Close tears the session down. Idempotent.
	Close() error
}

// LiveDialer opens remote sessions
type LiveDialer interface {
	Dial(ctx context.Context, config LiveConfig) (LiveSession, error)
}
