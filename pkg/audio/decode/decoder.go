// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for all audio decoders plus codec dispatch
package decode

import (
	"fmt"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
)

// Decoder decodes audio in various formats to PCM int16 samples
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int16, error)

	// Close releases decoder resources
	Close() error
}

// New returns the decoder matching format.Codec
func New(format audio.Format) (Decoder, error) {
	switch format.Codec {
	case audio.CodecPCM:
		return NewPCM(format)
	case audio.CodecMuLaw:
		return NewMuLaw(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}
