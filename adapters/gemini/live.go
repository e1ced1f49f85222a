package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/wicara/domain/repositories"
	"github.com/satriahrh/wicara/internal/audio"
)

const defaultModel = "gemini-2.0-flash-live-001"

// GeminiLive implements the LiveDialer interface using the Gemini Live API
type GeminiLive struct {
	client *genai.Client
	logger *zap.Logger
}

// NewGeminiLive creates a new Gemini Live dialer
func NewGeminiLive(logger *zap.Logger) (*GeminiLive, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiLive{
		client: client,
		logger: logger,
	}, nil
}

// Dial opens a live session configured for bidirectional speech with
// transcription of both sides
func (g *GeminiLive) Dial(ctx context.Context, config repositories.LiveConfig) (repositories.LiveSession, error) {
	model := config.Model
	if model == "" {
		model = defaultModel
	}

	connectConfig := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
	}
	if config.SystemPrompt != "" {
		connectConfig.SystemInstruction = genai.NewContentFromText(config.SystemPrompt, genai.RoleUser)
	}
	if config.Voice != "" {
		connectConfig.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: config.Voice},
			},
		}
	}
	if config.InputTranscription {
		connectConfig.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	if config.OutputTranscription {
		connectConfig.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}

	session, err := g.client.Live.Connect(ctx, model, connectConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect live session: %w", err)
	}

	g.logger.Info("Live session connected",
		zap.String("model", model),
		zap.String("voice", config.Voice))

	ls := &liveSession{
		session: session,
		events:  make(chan repositories.LiveEvent, 64),
		logger:  g.logger,
	}
	// The session is usable as soon as Connect returns; surface that to the
	// consumer before any server message.
	ls.events <- repositories.LiveEvent{Type: repositories.LiveEventOpened}
	go ls.receiveLoop()

	return ls, nil
}

// liveSession adapts a genai live session to the repositories.LiveSession
// contract: one ordered event channel, closed after the terminal event.
type liveSession struct {
	session *genai.Session
	events  chan repositories.LiveEvent
	logger  *zap.Logger
}

func (s *liveSession) SendAudio(fragment audio.Encoded) error {
	err := s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			Data:     fragment.Raw,
			MIMEType: fragment.MIMEType,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send audio frame: %w", err)
	}
	return nil
}

func (s *liveSession) Events() <-chan repositories.LiveEvent {
	return s.events
}

func (s *liveSession) Close() error {
	return s.session.Close()
}

func (s *liveSession) receiveLoop() {
	defer close(s.events)

	for {
		msg, err := s.session.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.events <- repositories.LiveEvent{Type: repositories.LiveEventClosed}
				return
			}
			s.events <- repositories.LiveEvent{
				Type:   repositories.LiveEventError,
				Detail: err.Error(),
			}
			return
		}

		event := mapServerMessage(msg)
		if event == nil {
			continue
		}
		s.events <- *event
	}
}

// mapServerMessage flattens a live server message into the session's message
// event shape. Returns nil for messages carrying nothing we consume.
func mapServerMessage(msg *genai.LiveServerMessage) *repositories.LiveEvent {
	content := msg.ServerContent
	if content == nil {
		return nil
	}

	out := &repositories.LiveMessage{
		TurnComplete: content.TurnComplete,
		Interrupted:  content.Interrupted,
	}
	if content.InputTranscription != nil {
		out.UserText = content.InputTranscription.Text
	}
	if content.OutputTranscription != nil {
		out.AIText = content.OutputTranscription.Text
	}
	if content.ModelTurn != nil {
		var audio []byte
		for _, part := range content.ModelTurn.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				// A turn may carry several inline audio parts; they are
				// consecutive PCM and play as one fragment.
				audio = append(audio, part.InlineData.Data...)
			}
		}
		if len(audio) > 0 {
			// The SDK hands audio as raw bytes; re-encode to keep the wire
			// representation the decode path expects.
			out.AudioBase64 = base64.StdEncoding.EncodeToString(audio)
		}
	}

	if out.UserText == "" && out.AIText == "" && out.AudioBase64 == "" &&
		!out.TurnComplete && !out.Interrupted {
		return nil
	}
	return &repositories.LiveEvent{
		Type:    repositories.LiveEventMessage,
		Message: out,
	}
}
