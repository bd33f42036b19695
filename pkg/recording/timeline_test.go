// ABOUTME: Tests for the call timeline
// ABOUTME: Checks per-leg exports and offset mixing
package recording

import (
	"testing"
	"time"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
	"github.com/speechbridge/speechbridge-go/pkg/audio/wav"
)

func TestTimelineRecordings(t *testing.T) {
	tl := NewTimeline(1000)
	start := time.Unix(1700000000, 0)
	tl.Start(start)

	tl.AddCaller(start, audio.Int16ToBytes([]int16{100, 100}))
	tl.AddAgent(start.Add(time.Millisecond), []int16{50, 50, 50})

	rec := tl.Recordings()
	if rec.Caller == nil || rec.Agent == nil || rec.Mixed == nil {
		t.Fatalf("expected all recordings, got %+v", rec)
	}

	caller, err := wav.Decode(rec.Caller.Data)
	if err != nil {
		t.Fatalf("decode caller: %v", err)
	}
	equalSamples(t, caller.Samples(), []int16{100, 100})

	mixed, err := wav.Decode(rec.Mixed.Data)
	if err != nil {
		t.Fatalf("decode mixed: %v", err)
	}
	equalSamples(t, mixed.Samples(), []int16{100, 150, 50, 50})
}

func TestTimelineConcatIgnoresGaps(t *testing.T) {
	tl := NewTimeline(1000)
	start := time.Unix(1700000000, 0)
	tl.Start(start)

	tl.AddAgent(start, []int16{1})
	tl.AddAgent(start.Add(time.Second), []int16{2})

	rec := tl.Recordings()
	agent, _ := wav.Decode(rec.Agent.Data)
	equalSamples(t, agent.Samples(), []int16{1, 2})

	mixed, _ := wav.Decode(rec.Mixed.Data)
	if mixed.Frames() != 1001 {
		t.Errorf("expected mixed length 1001, got %d", mixed.Frames())
	}
}

func TestTimelineEmpty(t *testing.T) {
	tl := NewTimeline(16000)
	tl.Start(time.Now())

	rec := tl.Recordings()
	if rec.Caller != nil || rec.Agent != nil || rec.Mixed != nil {
		t.Errorf("expected no recordings, got %+v", rec)
	}
}

func TestTimelineStartResets(t *testing.T) {
	tl := NewTimeline(16000)
	tl.AddCaller(time.Now(), []byte{1, 0})
	tl.Start(time.Now())

	if caller, agent := tl.Counts(); caller != 0 || agent != 0 {
		t.Errorf("expected reset, got %d caller %d agent", caller, agent)
	}
}
