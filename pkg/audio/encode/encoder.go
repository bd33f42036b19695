// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for all audio encoders plus codec dispatch
package encode

import (
	"fmt"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
)

// Encoder encodes PCM int16 samples to various formats
type Encoder interface {
	// Encode converts PCM samples to encoded audio data
	Encode(samples []int16) ([]byte, error)

	// Close releases encoder resources
	Close() error
}

// New returns the encoder matching format.Codec
func New(format audio.Format) (Encoder, error) {
	switch format.Codec {
	case audio.CodecPCM:
		return NewPCM(format)
	case audio.CodecMuLaw:
		return NewMuLaw(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}
