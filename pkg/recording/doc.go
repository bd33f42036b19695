// ABOUTME: Recording package for call audio
// ABOUTME: Mixes timed PCM segments onto one timeline and exports WAV
// Package recording builds call recordings.
//
// Mixer composites 16-bit mono segments onto a single timeline at a fixed
// sample rate. A segment placed at offsetMs starts at sample
// floor(offsetMs*rate/1000). Overlapping samples are added and saturate
// at the int16 limits instead of wrapping. The timeline only grows.
//
// Timeline collects caller and agent segments with wall-clock stamps
// during a call and produces the caller, agent and mixed WAVs at the end.
//
// Example:
//
//	m := recording.NewMixer(16000)
//	m.AddSegment(0, greeting)
//	m.AddSegment(500, reply)
//	blob := m.ToWav()
package recording
