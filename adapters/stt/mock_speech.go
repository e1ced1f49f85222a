package stt

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/wicara/domain/repositories"
)

// MockSpeechToText is an in-memory recognizer for tests and local runs. Each
// stream returns the next queued transcription, or a size-based canned line
// when nothing is queued.
type MockSpeechToText struct {
	logger *zap.Logger

	mu     sync.Mutex
	queued []string
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{logger: logger}
}

// QueueTranscription enqueues the result the next stream's End will return
func (s *MockSpeechToText) QueueTranscription(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, text)
}

func (s *MockSpeechToText) nextQueued() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queued) == 0 {
		return "", false
	}
	text := s.queued[0]
	s.queued = s.queued[1:]
	return text, true
}

// InitTranscribeStreaming creates a new mock streaming session
func (s *MockSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	s.logger.Debug("Initializing mock streaming transcription",
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))

	return &mockStream{parent: s}, nil
}

type mockStream struct {
	parent    *MockSpeechToText
	bytesSeen int
}

func (m *mockStream) Stream(data []byte) error {
	m.bytesSeen += len(data)
	return nil
}

func (m *mockStream) End() (string, error) {
	if m.bytesSeen == 0 {
		return "", fmt.Errorf("no audio data received")
	}
	if text, ok := m.parent.nextQueued(); ok {
		return text, nil
	}
	if m.bytesSeen > 8192 {
		return "tell me more about that", nil
	}
	return "hello", nil
}
