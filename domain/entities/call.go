package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CallStatus represents the lifecycle status of a call
type CallStatus string

const (
	CallStatusIdle       CallStatus = "idle"
	CallStatusConnecting CallStatus = "connecting"
	CallStatusActive     CallStatus = "active"
	CallStatusError      CallStatus = "error"
	CallStatusEnded      CallStatus = "ended"
)

// CanStart reports whether a new call may be started from this status.
// Ended and error are terminal only until the next call begins.
func (s CallStatus) CanStart() bool {
	return s == CallStatusIdle || s == CallStatusEnded || s == CallStatusError
}

// Speaker identifies who produced a transcript line
type Speaker string

const (
	SpeakerUser   Speaker = "user"
	SpeakerAI     Speaker = "ai"
	SpeakerSystem Speaker = "system"
)

// TranscriptMessage is one immutable line of the conversation transcript
type TranscriptMessage struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Call represents one call attempt from start to its terminal state. The
// transcript is append-only; entries are never mutated or removed, and they
// survive a terminal error so the user keeps what was said before the failure.
type Call struct {
	ID           string              `json:"id"`
	Status       CallStatus          `json:"status"`
	ErrorMessage string              `json:"error_message,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	EndedAt      *time.Time          `json:"ended_at,omitempty"`
	Transcript   []TranscriptMessage `json:"transcript"`
}

// NewCall creates a call in the connecting state
func NewCall() *Call {
	return &Call{
		ID:         uuid.NewString(),
		Status:     CallStatusConnecting,
		StartedAt:  time.Now(),
		Transcript: make([]TranscriptMessage, 0),
	}
}

// AppendTranscript appends a completed transcript line
func (c *Call) AppendTranscript(speaker Speaker, text string) {
	c.Transcript = append(c.Transcript, TranscriptMessage{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// Finish moves the call to a terminal status and stamps the end time. The
// first terminal status wins; later calls are no-ops.
func (c *Call) Finish(status CallStatus, errorMessage string) {
	if c.Status == CallStatusEnded || c.Status == CallStatusError {
		return
	}
	c.Status = status
	c.ErrorMessage = errorMessage
	now := time.Now()
	c.EndedAt = &now
}

// Validate validates the call data
func (c *Call) Validate() error {
	if c.ID == "" {
		return errors.New("call id is required")
	}
	switch c.Status {
	case CallStatusIdle, CallStatusConnecting, CallStatusActive, CallStatusError, CallStatusEnded:
		return nil
	default:
		return errors.New("invalid call status")
	}
}
