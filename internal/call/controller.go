// Package call owns the lifecycle of one voice call: it supervises the
// capture and playback pipelines, consumes the remote session's event stream
// from a single point in delivery order, and guarantees teardown runs exactly
// once regardless of which terminal path triggered it.
package call

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/wicara/domain/entities"
	"github.com/satriahrh/wicara/domain/repositories"
	"github.com/satriahrh/wicara/internal/audio"
	"github.com/satriahrh/wicara/internal/metrics"
	"github.com/satriahrh/wicara/internal/playback"
)

// MicSource is an acquired microphone stream
type MicSource interface {
	// Attach routes captured samples into the pipeline until Close
	Attach(p *audio.CapturePipeline)
	Close() error
}

// MicOpener acquires the microphone. Failure is terminal for the call
// attempt and is not retried.
type MicOpener interface {
	Open(ctx context.Context) (MicSource, error)
}

// Notifier receives user-visible call updates and audible playback
// fragments. The WebSocket hub implements this for browser clients.
type Notifier interface {
	CallStatusChanged(status entities.CallStatus, errorMessage string)
	TranscriptAppended(msg entities.TranscriptMessage)
	PlayAudio(buf *audio.Buffer)
}

// Config configures calls started by a controller
type Config struct {
	Live repositories.LiveConfig
	// STT is an optional fallback transcriber for the user side of the
	// transcript, used only when Live.InputTranscription is disabled.
	STT repositories.SpeechToText
	// STTLanguage is the recognition language for the fallback transcriber
	STTLanguage string
}

// Controller drives calls through idle -> connecting -> active -> {ended,
// error}. Ended and error are terminal until the next StartCall.
type Controller struct {
	dialer   repositories.LiveDialer
	mic      MicOpener
	notifier Notifier
	config   Config
	logger   *zap.Logger

	// clock is swappable so scheduling is deterministic under test
	clock func() playback.Clock

	mu          sync.Mutex
	status      entities.CallStatus
	call        *entities.Call
	session     repositories.LiveSession
	micSource   MicSource
	capture     *audio.CapturePipeline
	scheduler   *playback.Scheduler
	sttStream   repositories.SpeechToTextStreaming
	userPartial strings.Builder
	aiPartial   strings.Builder
	tornDown    bool
}

// NewController creates a controller in the idle state
func NewController(dialer repositories.LiveDialer, mic MicOpener, notifier Notifier, config Config, logger *zap.Logger) *Controller {
	return &Controller{
		dialer:   dialer,
		mic:      mic,
		notifier: notifier,
		config:   config,
		logger:   logger,
		clock:    playback.NewMonotonicClock,
		status:   entities.CallStatusIdle,
	}
}

// SetClock overrides the playback clock factory. Intended for tests.
func (c *Controller) SetClock(clock func() playback.Clock) {
	c.clock = clock
}

// StartCall begins a new call. Acquires the microphone, then opens the
// remote session; either failure moves the call to the error state with a
// user-visible message and a full teardown.
func (c *Controller) StartCall(ctx context.Context) error {
	c.mu.Lock()
	if !c.status.CanStart() {
		status := c.status
		c.mu.Unlock()
		return fmt.Errorf("cannot start call while %s", status)
	}
	c.call = entities.NewCall()
	c.status = entities.CallStatusConnecting
	c.tornDown = false
	c.userPartial.Reset()
	c.aiPartial.Reset()
	callID := c.call.ID
	c.mu.Unlock()

	c.logger.Info("Starting call", zap.String("callID", callID))
	c.notifyStatus()
	c.appendTranscript(entities.SpeakerSystem, "Starting...")

	mic, err := c.mic.Open(ctx)
	if err != nil {
		c.logger.Error("Microphone acquisition failed",
			zap.String("callID", callID),
			zap.Error(err))
		c.fail("Could not access the microphone. Please check your browser permissions and try again.")
		return fmt.Errorf("failed to acquire microphone: %w", err)
	}

	c.mu.Lock()
	c.micSource = mic
	c.mu.Unlock()

	session, err := c.dialer.Dial(ctx, c.config.Live)
	if err != nil {
		c.logger.Error("Live session dial failed",
			zap.String("callID", callID),
			zap.Error(err))
		c.fail(fmt.Sprintf("Could not reach the tutor service: %v", err))
		return fmt.Errorf("failed to open live session: %w", err)
	}

	c.mu.Lock()
	c.session = session
	c.scheduler = playback.NewScheduler(c.clock(), c.playFragment, c.logger)
	c.mu.Unlock()

	go c.consumeEvents(session, callID)
	return nil
}

// EndCall ends the current call. Safe to call at any time, including twice
// or before the session ever opened.
func (c *Controller) EndCall() {
	c.teardown(entities.CallStatusEnded, "")
}

// Status returns the current call status
func (c *Controller) Status() entities.CallStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ErrorMessage returns the user-visible message of the last failed call
func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.call == nil {
		return ""
	}
	return c.call.ErrorMessage
}

// Transcript returns a copy of the current call's transcript
func (c *Controller) Transcript() []entities.TranscriptMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.call == nil {
		return nil
	}
	out := make([]entities.TranscriptMessage, len(c.call.Transcript))
	copy(out, c.call.Transcript)
	return out
}

// consumeEvents is the single consumption point for the session's ordered
// event stream. The channel closes after the terminal event.
func (c *Controller) consumeEvents(session repositories.LiveSession, callID string) {
	for event := range session.Events() {
		switch event.Type {
		case repositories.LiveEventOpened:
			c.handleOpened(session, callID)
		case repositories.LiveEventMessage:
			c.handleMessage(session, event.Message)
		case repositories.LiveEventError:
			c.logger.Error("Live session error",
				zap.String("callID", callID),
				zap.String("detail", event.Detail))
			c.teardownFrom(session, entities.CallStatusError, fmt.Sprintf("Call failed: %s", event.Detail))
			return
		case repositories.LiveEventClosed:
			c.logger.Info("Live session closed", zap.String("callID", callID))
			c.teardownFrom(session, entities.CallStatusEnded, "")
			return
		}
	}
}

// handleOpened transitions connecting -> active and begins capture bound to
// the now-open session. An opened event from a session that is no longer
// current is ignored.
func (c *Controller) handleOpened(session repositories.LiveSession, callID string) {
	c.mu.Lock()
	if c.status != entities.CallStatusConnecting || c.tornDown || c.session != session {
		c.mu.Unlock()
		return
	}
	c.status = entities.CallStatusActive
	c.call.Status = entities.CallStatusActive

	sink := audio.FrameSink(c.session)
	if !c.config.Live.InputTranscription && c.config.STT != nil {
		stream, err := c.initFallbackTranscription()
		if err != nil {
			c.logger.Warn("Fallback transcription unavailable", zap.Error(err))
		} else {
			c.sttStream = stream
			sink = &teeSink{session: c.session, stt: stream, logger: c.logger}
		}
	}
	c.capture = audio.NewCapturePipeline(sink, c.logger)
	mic := c.micSource
	capture := c.capture
	c.mu.Unlock()

	if mic != nil {
		mic.Attach(capture)
	}
	c.logger.Info("Call active", zap.String("callID", callID))
	c.notifyStatus()
}

// handleMessage applies one multiplexed server message in delivery order:
// transcription deltas accumulate, turn completion flushes the transcript,
// audio fragments are decoded and scheduled, interruption discards queued
// playback.
func (c *Controller) handleMessage(session repositories.LiveSession, msg *repositories.LiveMessage) {
	if msg == nil {
		return
	}
	c.mu.Lock()
	if c.status != entities.CallStatusActive || c.session != session {
		c.mu.Unlock()
		return
	}
	if msg.UserText != "" {
		c.userPartial.WriteString(msg.UserText)
	}
	if msg.AIText != "" {
		c.aiPartial.WriteString(msg.AIText)
	}
	scheduler := c.scheduler
	c.mu.Unlock()

	if msg.Interrupted && scheduler != nil {
		scheduler.Interrupt()
		metrics.InterruptionsTotal.Inc()
	}

	if msg.AudioBase64 != "" {
		raw, err := audio.DecodeBase64(msg.AudioBase64)
		if err != nil {
			// A malformed fragment is dropped; the call continues.
			c.logger.Warn("Dropping undecodable audio fragment", zap.Error(err))
			metrics.DecodeErrorsTotal.Inc()
		} else if scheduler != nil {
			buf := audio.NewBuffer(raw, audio.OutputSampleRate, 1)
			scheduler.Schedule(buf)
			metrics.FragmentsScheduledTotal.Inc()
		}
	}

	if msg.TurnComplete {
		c.flushTurn()
	}
}

// flushTurn appends the accumulated user and AI text as transcript entries,
// user first, skipping empty accumulators, then clears both.
func (c *Controller) flushTurn() {
	c.mu.Lock()
	userText := strings.TrimSpace(c.userPartial.String())
	aiText := strings.TrimSpace(c.aiPartial.String())
	c.userPartial.Reset()
	c.aiPartial.Reset()
	stream := c.sttStream
	c.sttStream = nil
	c.mu.Unlock()

	if stream != nil {
		if userText == "" {
			text, err := stream.End()
			if err != nil {
				c.logger.Warn("Fallback transcription failed", zap.Error(err))
			} else {
				userText = strings.TrimSpace(text)
			}
		} else {
			// The live transcription covered this turn; End still runs so
			// the recognizer stream and its client are released.
			if _, err := stream.End(); err != nil {
				c.logger.Warn("Error discarding fallback transcription", zap.Error(err))
			}
		}
		c.restartFallbackTranscription()
	}

	if userText != "" {
		c.appendTranscript(entities.SpeakerUser, userText)
	}
	if aiText != "" {
		c.appendTranscript(entities.SpeakerAI, aiText)
	}
}

func (c *Controller) initFallbackTranscription() (repositories.SpeechToTextStreaming, error) {
	language := c.config.STTLanguage
	if language == "" {
		language = "en-US"
	}
	return c.config.STT.InitTranscribeStreaming(context.Background(), repositories.AudioConfig{
		SampleRate: audio.InputSampleRate,
		Encoding:   "LINEAR16",
		Language:   language,
	})
}

// restartFallbackTranscription arms a fresh recognizer stream for the next
// turn and repoints the capture tee at it.
func (c *Controller) restartFallbackTranscription() {
	stream, err := c.initFallbackTranscription()
	if err != nil {
		c.logger.Warn("Could not restart fallback transcription", zap.Error(err))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown || c.status != entities.CallStatusActive {
		return
	}
	c.sttStream = stream
	if c.capture != nil {
		// Replace the pipeline so new frames tee into the fresh stream.
		c.capture.Stop()
		c.capture = audio.NewCapturePipeline(&teeSink{session: c.session, stt: stream, logger: c.logger}, c.logger)
		if c.micSource != nil {
			c.micSource.Attach(c.capture)
		}
	}
}

func (c *Controller) playFragment(buf *audio.Buffer) {
	if c.notifier != nil {
		c.notifier.PlayAudio(buf)
	}
}

func (c *Controller) appendTranscript(speaker entities.Speaker, text string) {
	c.mu.Lock()
	if c.call == nil {
		c.mu.Unlock()
		return
	}
	c.call.AppendTranscript(speaker, text)
	msg := c.call.Transcript[len(c.call.Transcript)-1]
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.TranscriptAppended(msg)
	}
}

func (c *Controller) notifyStatus() {
	c.mu.Lock()
	status := c.status
	var errMsg string
	if c.call != nil {
		errMsg = c.call.ErrorMessage
	}
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.CallStatusChanged(status, errMsg)
	}
}

func (c *Controller) fail(userMessage string) {
	c.teardown(entities.CallStatusError, userMessage)
}

func (c *Controller) teardown(status entities.CallStatus, errorMessage string) {
	c.teardownFrom(nil, status, errorMessage)
}

// teardownFrom runs exactly once per call lifecycle, tolerates partially
// initialized state, and never propagates teardown-time errors. A non-nil
// from scopes the teardown to the call that session belongs to: a previous
// call's session emitting its dying error or close must not touch the call
// that replaced it.
func (c *Controller) teardownFrom(from repositories.LiveSession, status entities.CallStatus, errorMessage string) {
	c.mu.Lock()
	if c.tornDown || c.call == nil || (from != nil && from != c.session) {
		c.mu.Unlock()
		return
	}
	c.tornDown = true
	c.status = status
	c.call.Finish(status, errorMessage)

	capture := c.capture
	mic := c.micSource
	session := c.session
	scheduler := c.scheduler
	stream := c.sttStream
	c.capture = nil
	c.micSource = nil
	c.session = nil
	c.scheduler = nil
	c.sttStream = nil
	c.mu.Unlock()

	if capture != nil {
		capture.Stop()
	}
	if mic != nil {
		if err := mic.Close(); err != nil {
			c.logger.Warn("Error releasing microphone", zap.Error(err))
		}
	}
	if scheduler != nil {
		scheduler.Close()
	}
	if session != nil {
		if err := session.Close(); err != nil {
			c.logger.Warn("Error closing live session", zap.Error(err))
		}
	}
	if stream != nil {
		// End releases the recognizer stream and its client; the result of
		// the unfinished turn is discarded.
		if _, err := stream.End(); err != nil {
			c.logger.Warn("Error closing fallback transcription", zap.Error(err))
		}
	}

	metrics.CallsFinishedTotal.WithLabelValues(string(status)).Inc()
	c.logger.Info("Call torn down",
		zap.String("status", string(status)),
		zap.String("errorMessage", errorMessage))
	c.notifyStatus()
}

// teeSink forwards each capture frame to the live session and mirrors the
// raw PCM into the fallback recognizer.
type teeSink struct {
	session repositories.LiveSession
	stt     repositories.SpeechToTextStreaming
	logger  *zap.Logger
}

func (t *teeSink) SendAudio(fragment audio.Encoded) error {
	if err := t.stt.Stream(fragment.Raw); err != nil {
		t.logger.Warn("Fallback transcription stream error", zap.Error(err))
	}
	return t.session.SendAudio(fragment)
}
