// ABOUTME: Tests for the timeline mixer
// ABOUTME: Covers placement, saturation, growth and WAV export
package recording

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/speechbridge/speechbridge-go/pkg/audio/wav"
)

func equalSamples(t *testing.T, got, want []int16) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestMixerPlacement(t *testing.T) {
	m := NewMixer(16000)

	// 0.25 ms at 16 kHz is sample 4
	if err := m.AddSegment(0.25, []int16{1, 2}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	equalSamples(t, m.Samples(), []int16{0, 0, 0, 0, 1, 2})
}

func TestMixerFloorsOffset(t *testing.T) {
	m := NewMixer(1000)

	m.AddSegment(2.9, []int16{7})
	equalSamples(t, m.Samples(), []int16{0, 0, 7})
}

func TestMixerAdditive(t *testing.T) {
	m := NewMixer(1000)

	m.AddSegment(0, []int16{100, 200, 300})
	m.AddSegment(1, []int16{10, 20, 30})

	equalSamples(t, m.Samples(), []int16{100, 210, 320, 30})
}

func TestMixerSaturates(t *testing.T) {
	m := NewMixer(16000)

	m.AddSegment(0, []int16{30000, -30000})
	m.AddSegment(0, []int16{10000, -10000})

	equalSamples(t, m.Samples(), []int16{32767, -32768})
}

func TestMixerGrowthPreservesContent(t *testing.T) {
	m := NewMixer(1000)

	m.AddSegment(0, []int16{1, 2, 3})
	m.AddSegment(10, []int16{9})
	m.AddSegment(100, []int16{5})

	got := m.Samples()
	if len(got) != 101 {
		t.Fatalf("expected 101 samples, got %d", len(got))
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 3 || got[10] != 9 || got[100] != 5 {
		t.Errorf("content lost across growth: %v", got[:12])
	}
	for i := 11; i < 100; i++ {
		if got[i] != 0 {
			t.Fatalf("expected zero fill at %d, got %d", i, got[i])
		}
	}
}

func TestMixerLengthNeverDecreases(t *testing.T) {
	m := NewMixer(1000)

	m.AddSegment(50, []int16{1})
	m.AddSegment(0, []int16{1, 1})

	if m.Len() != 51 {
		t.Errorf("expected length 51, got %d", m.Len())
	}
}

func TestMixerNegativeOffset(t *testing.T) {
	m := NewMixer(1000)

	m.AddSegment(-5, []int16{4, 5})
	equalSamples(t, m.Samples(), []int16{4, 5})
}

func TestMixerInvalidOffset(t *testing.T) {
	m := NewMixer(1000)

	for _, offset := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := m.AddSegment(offset, []int16{1}); !errors.Is(err, ErrInvalidOffset) {
			t.Errorf("offset %v: expected ErrInvalidOffset, got %v", offset, err)
		}
	}
	if m.Len() != 0 {
		t.Errorf("expected empty timeline, got %d", m.Len())
	}
}

func TestMixerOffsetTooLarge(t *testing.T) {
	m := NewMixer(16000)
	if err := m.AddSegment(0, []int16{1, 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	limitMs := float64(MaxDuration / time.Millisecond)
	tests := []struct {
		name   string
		offset float64
	}{
		{"beyond int range", 1e300},
		{"past max duration", limitMs + 1000},
		{"ends past max duration", limitMs - 0.0625},
	}

	for _, tt := range tests {
		if err := m.AddSegment(tt.offset, []int16{7, 7, 7, 7}); !errors.Is(err, ErrOffsetTooLarge) {
			t.Errorf("%s: expected ErrOffsetTooLarge, got %v", tt.name, err)
		}
	}
	if m.Len() != 2 {
		t.Errorf("rejected segments changed the timeline: length %d", m.Len())
	}
	equalSamples(t, m.Samples(), []int16{1, 2})

	// a very negative offset still clamps to the start
	if err := m.AddSegment(-1e300, []int16{3}); err != nil {
		t.Errorf("negative offset: unexpected error %v", err)
	}
	equalSamples(t, m.Samples(), []int16{4, 2})
}

func TestMixerGrowthCapped(t *testing.T) {
	m := NewMixer(1000)
	limit := int(MaxDuration / time.Second * 1000)

	// ends exactly at the limit
	if err := m.AddSegment(float64(limit-1), []int16{9}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Len() != limit {
		t.Errorf("expected length %d, got %d", limit, m.Len())
	}
	if size := len(m.buf); size > limit {
		t.Errorf("buffer grew past the limit: %d > %d", size, limit)
	}
}

func TestMixerToWav(t *testing.T) {
	m := NewMixer(16000)
	m.AddSegment(0, make([]int16, 100))
	m.AddSegment(0, make([]int16, 150))

	blob := m.ToWav()
	h, err := wav.ParseHeader(blob.Data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	want := wav.Header{FormatTag: wav.FormatPCM, Channels: 1, SampleRate: 16000, BitsPerSample: 16, DataLength: 300}
	if h != want {
		t.Errorf("expected %+v, got %+v", want, h)
	}
	if len(blob.Data) != wav.HeaderSize+300 {
		t.Errorf("expected %d bytes, got %d", wav.HeaderSize+300, len(blob.Data))
	}
}

func TestMixerEmptyToWav(t *testing.T) {
	blob := NewMixer(16000).ToWav()
	if len(blob.Data) != wav.HeaderSize {
		t.Errorf("expected header only, got %d bytes", len(blob.Data))
	}
}

func BenchmarkMixerAddSegment(b *testing.B) {
	segment := make([]int16, 320)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := NewMixer(16000)
		for j := 0; j < 50; j++ {
			m.AddSegment(float64(j*20), segment)
		}
	}
}
