// ABOUTME: Call timeline of caller and agent audio
// ABOUTME: Stamps segments against the call start and builds the recordings
package recording

import (
	"log/slog"
	"sync"
	"time"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
	"github.com/speechbridge/speechbridge-go/pkg/audio/wav"
)

// Segment is PCM captured at a wall-clock instant
type Segment struct {
	At      time.Time
	Samples []int16
}

// Recordings are the exports of one call; a leg with no audio is nil
type Recordings struct {
	Caller *wav.Blob
	Agent  *wav.Blob
	Mixed  *wav.Blob
}

// Timeline collects both legs of a call; safe for concurrent use
type Timeline struct {
	sampleRate int

	mu     sync.Mutex
	start  time.Time
	caller []Segment
	agent  []Segment
}

// NewTimeline creates a timeline whose segments are at sampleRate
func NewTimeline(sampleRate int) *Timeline {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Timeline{sampleRate: sampleRate}
}

// Start marks the call start and discards earlier segments
func (t *Timeline) Start(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = at
	t.caller = nil
	t.agent = nil
}

// AddCaller records little-endian PCM16 microphone bytes
func (t *Timeline) AddCaller(at time.Time, pcm []byte) {
	samples := audio.BytesToInt16(pcm)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.caller = append(t.caller, Segment{At: at, Samples: samples})
}

// AddAgent records agent samples already at the timeline rate
func (t *Timeline) AddAgent(at time.Time, samples []int16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.agent = append(t.agent, Segment{At: at, Samples: samples})
}

// Counts returns the number of caller and agent segments
func (t *Timeline) Counts() (caller, agent int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.caller), len(t.agent)
}

// Recordings builds the caller, agent and mixed WAVs
func (t *Timeline) Recordings() Recordings {
	t.mu.Lock()
	start := t.start
	caller := append([]Segment(nil), t.caller...)
	agent := append([]Segment(nil), t.agent...)
	t.mu.Unlock()

	var rec Recordings
	if len(caller) > 0 {
		blob := t.concat(caller)
		rec.Caller = &blob
	}
	if len(agent) > 0 {
		blob := t.concat(agent)
		rec.Agent = &blob
	}
	if len(caller) == 0 && len(agent) == 0 {
		return rec
	}

	mix := NewMixer(t.sampleRate)
	for _, legs := range [][]Segment{caller, agent} {
		for _, seg := range legs {
			offset := float64(seg.At.Sub(start)) / float64(time.Millisecond)
			if err := mix.AddSegment(offset, seg.Samples); err != nil {
				slog.Warn("skipping segment", "error", err, "offset_ms", offset)
			}
		}
	}
	blob := mix.ToWav()
	rec.Mixed = &blob

	return rec
}

// concat joins one leg back to back, ignoring gaps
func (t *Timeline) concat(segments []Segment) wav.Blob {
	chunks := make([][]byte, len(segments))
	for i, seg := range segments {
		chunks[i] = audio.Int16ToBytes(seg.Samples)
	}
	return wav.PCMChunksToWav(chunks, t.sampleRate)
}
