package audio

import (
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/wicara/internal/metrics"
)

// FrameSize is the number of samples accumulated before a capture frame is
// encoded and sent. Matches the buffering stage the browser client uses.
const FrameSize = 4096

// FrameSink receives encoded capture frames. The active live session's send
// operation satisfies this.
type FrameSink interface {
	SendAudio(fragment Encoded) error
}

// CapturePipeline frames incoming microphone samples into fixed-size windows,
// encodes each full window and forwards it to the sink as it completes. Send
// is fire-and-forget per frame: a failed send is logged and the frame dropped.
type CapturePipeline struct {
	sink       FrameSink
	sampleRate int
	logger     *zap.Logger

	mu      sync.Mutex
	pending []float32
	stopped bool
}

// NewCapturePipeline creates a pipeline bound to a sink. Samples are expected
// at the fixed input rate (16 kHz mono).
func NewCapturePipeline(sink FrameSink, logger *zap.Logger) *CapturePipeline {
	return &CapturePipeline{
		sink:       sink,
		sampleRate: InputSampleRate,
		logger:     logger,
		pending:    make([]float32, 0, FrameSize),
	}
}

// Push accumulates captured samples. Every full frame is encoded and handed
// to the sink immediately; a partial frame stays buffered for the next Push.
func (p *CapturePipeline) Push(samples []float32) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.pending = append(p.pending, samples...)

	var frames [][]float32
	for len(p.pending) >= FrameSize {
		frame := make([]float32, FrameSize)
		copy(frame, p.pending[:FrameSize])
		p.pending = p.pending[FrameSize:]
		frames = append(frames, frame)
	}
	sink := p.sink
	p.mu.Unlock()

	for _, frame := range frames {
		if err := sink.SendAudio(Encode(frame, p.sampleRate)); err != nil {
			p.logger.Warn("Failed to send capture frame, dropping",
				zap.Int("samples", len(frame)),
				zap.Error(err))
			continue
		}
		metrics.CaptureFramesTotal.Inc()
	}
}

// Stop disconnects the pipeline and drops any partial frame. Safe to call
// multiple times or before any sample was pushed.
func (p *CapturePipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	p.pending = nil
}

// Buffered returns the number of samples waiting for a full frame.
func (p *CapturePipeline) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
