// ABOUTME: G.711 mu-law decoder
// ABOUTME: Expands 8-bit mu-law bytes to 16-bit linear PCM samples
package decode

import (
	"fmt"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
)

const muLawBias = 0x84

// MuLaw expands a single mu-law byte to a linear sample
func MuLaw(b byte) int16 {
	b = ^b
	exponent := (b >> 4) & 0x07
	mantissa := int32(b & 0x0F)
	magnitude := ((mantissa << 1) + 33) << (exponent + 2)
	magnitude -= muLawBias
	if b&0x80 != 0 {
		return int16(-magnitude)
	}
	return int16(magnitude)
}

// MuLawChunk decodes a whole chunk, one sample per input byte
func MuLawChunk(data []byte) []int16 {
	samples := make([]int16, len(data))
	for i, b := range data {
		samples[i] = muLawTable[b]
	}
	return samples
}

var muLawTable = func() [256]int16 {
	var table [256]int16
	for i := range table {
		table[i] = MuLaw(byte(i))
	}
	return table
}()

// MuLawDecoder decodes mu-law audio
type MuLawDecoder struct{}

// NewMuLaw creates a new mu-law decoder
func NewMuLaw(format audio.Format) (Decoder, error) {
	if format.Codec != audio.CodecMuLaw {
		return nil, fmt.Errorf("invalid codec for mu-law decoder: %s", format.Codec)
	}

	if format.BitDepth != 0 && format.BitDepth != 8 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 8)", format.BitDepth)
	}

	return &MuLawDecoder{}, nil
}

// Decode converts mu-law bytes to int16 samples
func (d *MuLawDecoder) Decode(data []byte) ([]int16, error) {
	return MuLawChunk(data), nil
}

// Close releases resources
func (d *MuLawDecoder) Close() error {
	return nil
}
