package audio

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"
)

// Wire sample rates dictated by the remote live session: microphone audio
// goes out at 16 kHz mono, model speech comes back at 24 kHz mono.
const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000
)

// Encoded is an outbound audio fragment ready for wire transmission.
type Encoded struct {
	Raw      []byte
	Base64   string
	MIMEType string
}

// EncodeS16LE converts float32 samples in [-1, 1] to 16-bit little-endian PCM.
// Out-of-range samples are clamped.
func EncodeS16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(float64(s) * 32767))
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// Encode packages samples as base64 16-bit PCM tagged with the sample rate,
// the shape the live session expects for realtime input.
func Encode(samples []float32, sampleRate int) Encoded {
	raw := EncodeS16LE(samples)
	return Encoded{
		Raw:      raw,
		Base64:   base64.StdEncoding.EncodeToString(raw),
		MIMEType: fmt.Sprintf("audio/pcm;rate=%d", sampleRate),
	}
}

// DecodeBase64 undoes the base64 layer only; PCM interpretation happens in
// DecodeS16LE.
func DecodeBase64(data string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio: %w", err)
	}
	return raw, nil
}

// DecodeS16LE converts 16-bit little-endian PCM bytes to float32 samples
// normalized to [-1, 1]. A trailing odd byte is truncated; well-formed input
// never has one.
func DecodeS16LE(data []byte) []float32 {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float32(v) / 32768
	}
	return samples
}

// Buffer is a decoded audio fragment ready for playback scheduling.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// NewBuffer interprets raw bytes as 16-bit little-endian PCM at the given
// sample rate and channel count.
func NewBuffer(data []byte, sampleRate, channels int) *Buffer {
	if channels <= 0 {
		channels = 1
	}
	return &Buffer{
		Samples:    DecodeS16LE(data),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Duration returns the playback duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(float64(frames) / float64(b.SampleRate) * float64(time.Second))
}
