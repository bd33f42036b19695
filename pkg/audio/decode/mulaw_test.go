// ABOUTME: Tests for mu-law decoder
// ABOUTME: Tests known G.711 values and chunk decoding
package decode

import (
	"testing"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
)

func TestMuLawKnownValues(t *testing.T) {
	tests := []struct {
		name     string
		input    byte
		expected int16
	}{
		{"positive zero", 0xFF, 0},
		{"negative zero", 0x7F, 0},
		{"negative max", 0x00, -32124},
		{"positive max", 0x80, 32124},
		{"small positive", 0xFE, 8},
		{"small negative", 0x7E, -8},
		{"mid positive", 0xC0, 1884},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MuLaw(tt.input)
			if result != tt.expected {
				t.Errorf("MuLaw(%#x) = %d, expected %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestMuLawSymmetry(t *testing.T) {
	for i := 0; i < 128; i++ {
		pos := MuLaw(byte(i) | 0x80)
		neg := MuLaw(byte(i))
		if pos != -neg {
			t.Errorf("byte %#x: expected %d to mirror %d", i, neg, pos)
		}
	}
}

func TestMuLawChunk(t *testing.T) {
	input := []byte{0xFF, 0x00, 0x80}

	samples := MuLawChunk(input)
	if len(samples) != len(input) {
		t.Fatalf("expected %d samples, got %d", len(input), len(samples))
	}

	expected := []int16{0, -32124, 32124}
	for i, want := range expected {
		if samples[i] != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, samples[i])
		}
	}
}

func TestMuLawChunkEmpty(t *testing.T) {
	if samples := MuLawChunk(nil); len(samples) != 0 {
		t.Errorf("expected no samples, got %d", len(samples))
	}
}

func TestNewMuLaw(t *testing.T) {
	if _, err := NewMuLaw(audio.MuLawMono8k); err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	_, err := NewMuLaw(audio.PCM16Mono16k)
	if err == nil {
		t.Fatal("expected error for pcm format")
	}
	if err.Error() != "invalid codec for mu-law decoder: pcm" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewDispatch(t *testing.T) {
	tests := []struct {
		name    string
		format  audio.Format
		wantErr bool
	}{
		{"pcm", audio.PCM16Mono16k, false},
		{"mulaw", audio.MuLawMono8k, false},
		{"opus", audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder, err := New(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && decoder == nil {
				t.Fatal("expected decoder")
			}
		})
	}
}

func BenchmarkMuLawChunk(b *testing.B) {
	data := make([]byte, 160)
	for i := range data {
		data[i] = byte(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MuLawChunk(data)
	}
}
