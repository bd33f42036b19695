// ABOUTME: G.711 mu-law encoder
// ABOUTME: Compresses 16-bit linear PCM samples to 8-bit mu-law bytes
package encode

import (
	"fmt"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
)

const (
	muLawBias = 0x84
	muLawClip = 32635
)

// MuLaw compresses a linear sample to a mu-law byte
func MuLaw(sample int16) byte {
	s := int32(sample)
	var sign byte
	if s < 0 {
		sign = 0x80
		s = -s
	}
	if s > muLawClip {
		s = muLawClip
	}
	s += muLawBias

	exponent := byte(7)
	for mask := int32(0x4000); s&mask == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte(s>>(exponent+3)) & 0x0F

	return ^(sign | exponent<<4 | mantissa)
}

// MuLawEncoder encodes mu-law audio
type MuLawEncoder struct{}

// NewMuLaw creates a new mu-law encoder
func NewMuLaw(format audio.Format) (Encoder, error) {
	if format.Codec != audio.CodecMuLaw {
		return nil, fmt.Errorf("invalid codec for mu-law encoder: %s", format.Codec)
	}

	return &MuLawEncoder{}, nil
}

// Encode converts int16 samples to mu-law bytes
func (e *MuLawEncoder) Encode(samples []int16) ([]byte, error) {
	out := make([]byte, len(samples))
	for i, s := range samples {
		out[i] = MuLaw(s)
	}
	return out, nil
}

// Close releases resources
func (e *MuLawEncoder) Close() error {
	return nil
}
