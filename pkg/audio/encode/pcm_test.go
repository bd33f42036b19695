// ABOUTME: Tests for PCM encoder
// ABOUTME: Tests 16-bit PCM encoding and format validation
package encode

import (
	"testing"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
)

func TestPCMEncode16Bit(t *testing.T) {
	encoder, err := NewPCM(audio.PCM16Mono16k)
	if err != nil {
		t.Fatalf("failed to create encoder: %v", err)
	}

	output, err := encoder.Encode([]int16{256, -2})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	expected := []byte{0x00, 0x01, 0xFE, 0xFF}
	if len(output) != len(expected) {
		t.Fatalf("expected %d bytes, got %d", len(expected), len(output))
	}
	for i := range expected {
		if output[i] != expected[i] {
			t.Errorf("byte %d: expected %#x, got %#x", i, expected[i], output[i])
		}
	}
}

func TestPCMEncoderInvalidFormat(t *testing.T) {
	_, err := NewPCM(audio.MuLawMono8k)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "invalid codec for PCM encoder: mulaw" {
		t.Errorf("unexpected error: %v", err)
	}
}
