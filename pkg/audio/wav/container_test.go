// ABOUTME: Tests for WAV blob construction and decoding
// ABOUTME: Covers wrapping, chunk joining and PCM/mu-law decoding
package wav

import (
	"bytes"
	"testing"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
)

func TestToDecodablePassThrough(t *testing.T) {
	original := EncodePCM16([]int16{1, 2, 3}, 16000).Data

	got := ToDecodable(original, MuLaw8kMono)
	if !bytes.Equal(got, original) {
		t.Error("expected wrapped input to pass through unchanged")
	}
}

func TestToDecodableWrapsRaw(t *testing.T) {
	raw := []byte{0xFF, 0x00, 0x80, 0x7F}

	got := ToDecodable(raw, MuLaw8kMono)
	if len(got) != HeaderSize+len(raw) {
		t.Fatalf("expected %d bytes, got %d", HeaderSize+len(raw), len(got))
	}

	h, err := ParseHeader(got)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := Header{FormatTag: FormatMuLaw, Channels: 1, SampleRate: 8000, BitsPerSample: 8, DataLength: 4}
	if h != want {
		t.Errorf("expected %+v, got %+v", want, h)
	}
	if !bytes.Equal(got[HeaderSize:], raw) {
		t.Error("payload was modified")
	}
}

func TestPCMChunksToWav(t *testing.T) {
	chunks := [][]byte{
		audio.Int16ToBytes(make([]int16, 100)),
		audio.Int16ToBytes(make([]int16, 50)),
	}

	blob := PCMChunksToWav(chunks, 16000)

	if blob.Header.DataLength != 300 {
		t.Errorf("expected data length 300, got %d", blob.Header.DataLength)
	}
	if len(blob.Data) != HeaderSize+300 {
		t.Errorf("expected %d bytes, got %d", HeaderSize+300, len(blob.Data))
	}

	h, err := ParseHeader(blob.Data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if h.DataLength+36 != 336 {
		t.Errorf("expected chunk size 336, got %d", h.DataLength+36)
	}
}

func TestMuLawChunksToWav(t *testing.T) {
	blob := MuLawChunksToWav([][]byte{{0xFF, 0xFF}, {0x80}})

	if blob.Header.FormatTag != FormatMuLaw {
		t.Errorf("expected mu-law tag, got %d", blob.Header.FormatTag)
	}
	if !bytes.Equal(blob.Payload(), []byte{0xFF, 0xFF, 0x80}) {
		t.Errorf("unexpected payload %v", blob.Payload())
	}
}

func TestDecodePCM16(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}

	buf, err := Decode(EncodePCM16(samples, 16000).Data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if buf.Format.SampleRate != 16000 {
		t.Errorf("expected 16000 Hz, got %d", buf.Format.SampleRate)
	}
	got := buf.Samples()
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d: expected %d, got %d", i, samples[i], got[i])
		}
	}
}

func TestDecodeMuLaw(t *testing.T) {
	buf, err := Decode(ToDecodable([]byte{0xFF, 0x80, 0x00}, MuLaw8kMono))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	got := buf.Samples()
	want := []int16{0, 32124, -32124}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}
	if buf.Format.BitDepth != 16 || buf.Format.SampleRate != 8000 {
		t.Errorf("unexpected output format %+v", buf.Format)
	}
}

func TestDecodeErrors(t *testing.T) {
	truncated := EncodePCM16([]int16{1, 2, 3, 4}, 16000).Data
	truncated = truncated[:len(truncated)-3]

	tests := []struct {
		name  string
		input []byte
	}{
		{"not wav", []byte("hello world")},
		{"truncated", truncated},
		{"unsupported bits", Wrap([]byte{1, 2, 3}, audio.Format{Codec: audio.CodecPCM, SampleRate: 8000, Channels: 1, BitDepth: 24}).Data},
		{"zero rate", Wrap([]byte{1, 2}, audio.Format{Codec: audio.CodecPCM, SampleRate: 0, Channels: 1, BitDepth: 16}).Data},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.input); err == nil {
				t.Error("expected error")
			}
		})
	}
}
