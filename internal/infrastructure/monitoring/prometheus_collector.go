package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"petwatch/internal/core/domain"
)

type PrometheusCollector struct {
	// Counters
	framesAcquiredTotal prometheus.Counter
	framesServedTotal   prometheus.Counter
	framesDroppedTotal  *prometheus.CounterVec
	captureErrorsTotal  prometheus.Counter
	recordingsTotal     *prometheus.CounterVec

	// Gauges
	viewersConnected prometheus.Gauge
	broadcasterState prometheus.Gauge
	recordingActive  prometheus.Gauge

	// Histograms
	frameEncodeDuration prometheus.Histogram
	recordingDuration   prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		framesAcquiredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "petwatch_frames_acquired_total",
			Help: "Total number of frames acquired from the camera",
		}),

		framesServedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "petwatch_frames_served_total",
			Help: "Total number of frames delivered to viewer channels",
		}),

		framesDroppedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petwatch_frames_dropped_total",
			Help: "Total number of frames dropped, by sink",
		}, []string{"sink"}),

		captureErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "petwatch_capture_errors_total",
			Help: "Total number of frame capture errors",
		}),

		recordingsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petwatch_recordings_total",
			Help: "Total number of finalized recordings, by stop reason",
		}, []string{"reason"}),

		viewersConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "petwatch_viewers_connected",
			Help: "Number of currently attached live viewers",
		}),

		broadcasterState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "petwatch_broadcaster_state",
			Help: "Broadcaster state (0=idle 1=starting 2=running 3=degraded 4=stopping)",
		}),

		recordingActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "petwatch_recording_active",
			Help: "Whether a recording session is active (0 or 1)",
		}),

		frameEncodeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "petwatch_frame_encode_duration_seconds",
			Help:    "Time spent encoding one frame to JPEG",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		recordingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "petwatch_recording_duration_seconds",
			Help:    "Duration of finalized recordings",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

func (p *PrometheusCollector) RecordFrameAcquired() {
	p.framesAcquiredTotal.Inc()
}

func (p *PrometheusCollector) RecordFramesServed(n int) {
	p.framesServedTotal.Add(float64(n))
}

func (p *PrometheusCollector) RecordFrameDropped(sink string) {
	p.framesDroppedTotal.WithLabelValues(sink).Inc()
}

func (p *PrometheusCollector) RecordCaptureError() {
	p.captureErrorsTotal.Inc()
}

func (p *PrometheusCollector) RecordEncodeDuration(seconds float64) {
	p.frameEncodeDuration.Observe(seconds)
}

func (p *PrometheusCollector) RecordViewerAttached() {
	p.viewersConnected.Inc()
}

func (p *PrometheusCollector) RecordViewerDetached() {
	p.viewersConnected.Dec()
}

func (p *PrometheusCollector) RecordStateChange(state domain.StreamState) {
	p.broadcasterState.Set(float64(state))
}

func (p *PrometheusCollector) RecordRecordingStarted() {
	p.recordingActive.Set(1)
}

func (p *PrometheusCollector) RecordRecordingFinalized(session domain.RecordingSession) {
	p.recordingActive.Set(0)
	p.recordingsTotal.WithLabelValues(string(session.StopReason)).Inc()
	p.recordingDuration.Observe(session.Duration.Seconds())
}
