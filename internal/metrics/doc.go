// ABOUTME: Metrics package for the speechbridge client
// ABOUTME: Prometheus counters wired into capture, playback and store
// Package metrics exposes client counters to Prometheus.
//
// A *Metrics value implements capture.Recorder, playback.Recorder and
// store.Recorder, so one instance is handed to each component.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg)
//	engine := playback.New(dev, playback.WithRecorder(m))
//	go metrics.Serve(ctx, ":9090", reg)
package metrics
