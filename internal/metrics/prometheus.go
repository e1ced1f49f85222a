// Package metrics exposes Prometheus counters for the audio bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CaptureFramesTotal counts encoded microphone frames forwarded to the
	// live session.
	CaptureFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wicara_capture_frames_total",
		Help: "Total number of capture frames sent to the live session",
	})

	// FragmentsScheduledTotal counts inbound audio fragments scheduled for
	// playback.
	FragmentsScheduledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wicara_playback_fragments_scheduled_total",
		Help: "Total number of audio fragments scheduled for playback",
	})

	// InterruptionsTotal counts barge-in interruptions that discarded
	// queued playback.
	InterruptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wicara_playback_interruptions_total",
		Help: "Total number of barge-in interruptions",
	})

	// DecodeErrorsTotal counts malformed inbound audio fragments that were
	// dropped.
	DecodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wicara_audio_decode_errors_total",
		Help: "Total number of inbound audio fragments dropped as undecodable",
	})

	// CallsFinishedTotal counts call attempts by terminal outcome.
	CallsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wicara_calls_finished_total",
		Help: "Total number of calls by terminal status",
	}, []string{"status"})
)
