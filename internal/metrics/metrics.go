// ABOUTME: Prometheus metrics for capture, playback, storage and calls
// ABOUTME: Implements the component recorder interfaces and serves /metrics
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "speechbridge"

// Metrics contains all Prometheus metrics for the client
type Metrics struct {
	// Capture metrics
	FramesEmitted prometheus.Counter
	FramesDropped prometheus.Counter
	CaptureFaults prometheus.Counter
	CapturedBytes prometheus.Counter

	// Playback metrics
	ItemsPlayed    prometheus.Counter
	ItemsFailed    prometheus.Counter
	CancelledItems prometheus.Counter
	PendingItems   prometheus.Gauge

	// Store metrics
	RecordingsStored  prometheus.Counter
	RecordingsEvicted prometheus.Counter
	StoreErrors       prometheus.Counter

	// Call metrics
	CallsStarted prometheus.Counter
	CallErrors   prometheus.Counter
	CallDuration prometheus.Histogram
}

// New creates the metrics and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FramesEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_frames_total",
			Help:      "Total number of microphone frames encoded",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_frames_dropped_total",
			Help:      "Total number of microphone frames dropped on a full queue",
		}),
		CaptureFaults: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_faults_total",
			Help:      "Total number of recovered capture faults",
		}),
		CapturedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_bytes_total",
			Help:      "Total number of encoded microphone bytes",
		}),

		ItemsPlayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_items_played_total",
			Help:      "Total number of playback items that finished",
		}),
		ItemsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_items_failed_total",
			Help:      "Total number of playback items rejected",
		}),
		CancelledItems: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_items_cancelled_total",
			Help:      "Total number of playback items cancelled",
		}),
		PendingItems: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_queue_depth",
			Help:      "Number of playback items waiting to start",
		}),

		RecordingsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_recordings_stored_total",
			Help:      "Total number of recordings written",
		}),
		RecordingsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_recordings_evicted_total",
			Help:      "Total number of recordings evicted from history",
		}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Total number of failed store operations",
		}),

		CallsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_started_total",
			Help:      "Total number of calls started",
		}),
		CallErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_errors_total",
			Help:      "Total number of errors reported during calls",
		}),
		CallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of finished calls",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		}),
	}
}

// FrameEmitted records one encoded microphone frame
func (m *Metrics) FrameEmitted(bytes int) {
	m.FramesEmitted.Inc()
	m.CapturedBytes.Add(float64(bytes))
}

// FrameDropped records a frame lost to a full queue
func (m *Metrics) FrameDropped() { m.FramesDropped.Inc() }

// CaptureFault records a recovered capture fault
func (m *Metrics) CaptureFault() { m.CaptureFaults.Inc() }

// ItemPlayed records a finished playback item
func (m *Metrics) ItemPlayed() { m.ItemsPlayed.Inc() }

// ItemFailed records a rejected playback item
func (m *Metrics) ItemFailed() { m.ItemsFailed.Inc() }

// ItemsCancelled records n cancelled playback items
func (m *Metrics) ItemsCancelled(n int) { m.CancelledItems.Add(float64(n)) }

// QueueDepth records the number of waiting playback items
func (m *Metrics) QueueDepth(n int) { m.PendingItems.Set(float64(n)) }

// RecordingStored records a written recording
func (m *Metrics) RecordingStored() { m.RecordingsStored.Inc() }

// RecordingEvicted records an evicted recording
func (m *Metrics) RecordingEvicted() { m.RecordingsEvicted.Inc() }

// StoreFailed records a failed store operation
func (m *Metrics) StoreFailed() { m.StoreErrors.Inc() }

// CallStarted records the start of a call
func (m *Metrics) CallStarted() { m.CallsStarted.Inc() }

// CallError records an error reported during a call
func (m *Metrics) CallError() { m.CallErrors.Inc() }

// CallEnded records the duration of a finished call
func (m *Metrics) CallEnded(d time.Duration) { m.CallDuration.Observe(d.Seconds()) }

// Handler returns the /metrics and /health routes for g
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// Serve runs the metrics endpoint on addr until ctx ends
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(g),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
