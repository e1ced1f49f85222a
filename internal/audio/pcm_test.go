package audio

import (
	"math"
	"testing"
	"time"
)

func TestEncodeS16LE(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		want    []byte
	}{
		{
			name:    "empty input",
			samples: []float32{},
			want:    []byte{},
		},
		{
			name:    "silence",
			samples: []float32{0},
			want:    []byte{0x00, 0x00},
		},
		{
			name:    "full scale positive",
			samples: []float32{1},
			want:    []byte{0xff, 0x7f}, // 32767
		},
		{
			name:    "clamps above full scale",
			samples: []float32{2.5},
			want:    []byte{0xff, 0x7f},
		},
		{
			name:    "clamps below negative full scale",
			samples: []float32{-3},
			want:    []byte{0x01, 0x80}, // -32767
		},
		{
			name:    "half scale",
			samples: []float32{0.5},
			want:    []byte{0x00, 0x40}, // 16384
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeS16LE(tt.samples)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d bytes, got %d", len(tt.want), len(got))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Byte %d: expected 0x%02x, got 0x%02x", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestDecodeS16LE_TruncatesOddByte(t *testing.T) {
	samples := DecodeS16LE([]byte{0x00, 0x40, 0xab})
	if len(samples) != 1 {
		t.Fatalf("Expected 1 sample from 3 bytes, got %d", len(samples))
	}
	if samples[0] != 16384.0/32768 {
		t.Errorf("Expected 0.5, got %f", samples[0])
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	// Quantization may move each sample by at most one encoding step.
	samples := []float32{0, 0.25, -0.25, 0.9999, -0.9999, 0.123456, -0.654321}

	decoded := DecodeS16LE(EncodeS16LE(samples))
	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	const tolerance = 1.0 / 32767
	for i := range samples {
		diff := math.Abs(float64(decoded[i] - samples[i]))
		if diff > tolerance {
			t.Errorf("Sample %d: expected %f within %f, got %f", i, samples[i], tolerance, decoded[i])
		}
	}
}

func TestEncode_MIMEType(t *testing.T) {
	encoded := Encode([]float32{0, 0.5}, InputSampleRate)

	if encoded.MIMEType != "audio/pcm;rate=16000" {
		t.Errorf("Expected mime type 'audio/pcm;rate=16000', got '%s'", encoded.MIMEType)
	}
	if len(encoded.Raw) != 4 {
		t.Errorf("Expected 4 raw bytes, got %d", len(encoded.Raw))
	}
	if encoded.Base64 == "" {
		t.Error("Expected non-empty base64 payload")
	}
}

func TestDecodeBase64(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		wantLen int
	}{
		{
			name:    "valid payload",
			input:   "AABAAA==", // 4 bytes
			wantErr: false,
			wantLen: 4,
		},
		{
			name:    "empty payload",
			input:   "",
			wantErr: false,
			wantLen: 0,
		},
		{
			name:    "invalid base64",
			input:   "not!!base64",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := DecodeBase64(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeBase64() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(raw) != tt.wantLen {
				t.Errorf("Expected %d bytes, got %d", tt.wantLen, len(raw))
			}
		})
	}
}

func TestBufferDuration(t *testing.T) {
	tests := []struct {
		name       string
		samples    int
		sampleRate int
		channels   int
		want       time.Duration
	}{
		{
			name:       "one second at output rate",
			samples:    OutputSampleRate,
			sampleRate: OutputSampleRate,
			channels:   1,
			want:       time.Second,
		},
		{
			name:       "capture frame at input rate",
			samples:    4096,
			sampleRate: InputSampleRate,
			want:       256 * time.Millisecond,
			channels:   1,
		},
		{
			name:       "stereo halves the frame count",
			samples:    OutputSampleRate,
			sampleRate: OutputSampleRate,
			channels:   2,
			want:       500 * time.Millisecond,
		},
		{
			name:       "zero sample rate",
			samples:    100,
			sampleRate: 0,
			channels:   1,
			want:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &Buffer{
				Samples:    make([]float32, tt.samples),
				SampleRate: tt.sampleRate,
				Channels:   tt.channels,
			}
			if got := buf.Duration(); got != tt.want {
				t.Errorf("Expected duration %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewBuffer(t *testing.T) {
	raw := EncodeS16LE([]float32{0, 0.5, -0.5})
	buf := NewBuffer(raw, OutputSampleRate, 0)

	if len(buf.Samples) != 3 {
		t.Errorf("Expected 3 samples, got %d", len(buf.Samples))
	}
	if buf.SampleRate != OutputSampleRate {
		t.Errorf("Expected sample rate %d, got %d", OutputSampleRate, buf.SampleRate)
	}
	if buf.Channels != 1 {
		t.Errorf("Expected channel count to default to 1, got %d", buf.Channels)
	}
}
