// ABOUTME: WAV blob construction and decoding
// ABOUTME: Wraps raw payloads, joins PCM chunks and decodes WAV to PCM16
package wav

import (
	"fmt"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
	"github.com/speechbridge/speechbridge-go/pkg/audio/decode"
)

// MuLaw8kMono is the format headerless payloads are assumed to carry
var MuLaw8kMono = audio.MuLawMono8k

// Blob is a complete WAV file: header followed by payload
type Blob struct {
	Data   []byte
	Header Header
}

// Payload returns the bytes after the header
func (b Blob) Payload() []byte {
	if len(b.Data) < HeaderSize {
		return nil
	}
	return b.Data[HeaderSize:]
}

// formatTag returns the tag matching an audio format
func formatTag(f audio.Format) uint16 {
	if f.Codec == audio.CodecMuLaw {
		return FormatMuLaw
	}
	return FormatPCM
}

// Wrap prepends a header describing payload in format
func Wrap(payload []byte, format audio.Format) Blob {
	h := Header{
		FormatTag:     formatTag(format),
		Channels:      format.Channels,
		SampleRate:    format.SampleRate,
		BitsPerSample: format.BitDepth,
		DataLength:    len(payload),
	}
	data := make([]byte, 0, HeaderSize+len(payload))
	data = append(data, h.Encode()...)
	data = append(data, payload...)
	return Blob{Data: data, Header: h}
}

// ToDecodable returns b unchanged when it already carries a RIFF header,
// otherwise b wrapped in a header for the assumed format
func ToDecodable(b []byte, assumed audio.Format) []byte {
	if IsWrapped(b) {
		return b
	}
	return Wrap(b, assumed).Data
}

// PCMChunksToWav concatenates 16-bit mono PCM chunks into one WAV
func PCMChunksToWav(chunks [][]byte, sampleRate int) Blob {
	return Wrap(concat(chunks), audio.Format{
		Codec:      audio.CodecPCM,
		SampleRate: sampleRate,
		Channels:   1,
		BitDepth:   16,
	})
}

// MuLawChunksToWav concatenates 8 kHz mono mu-law chunks into one WAV
func MuLawChunksToWav(chunks [][]byte) Blob {
	return Wrap(concat(chunks), MuLaw8kMono)
}

// EncodePCM16 wraps samples as a 16-bit mono PCM WAV
func EncodePCM16(samples []int16, sampleRate int) Blob {
	return PCMChunksToWav([][]byte{audio.Int16ToBytes(samples)}, sampleRate)
}

func concat(chunks [][]byte) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// Decode parses a WAV file and returns its audio as 16-bit PCM
func Decode(b []byte) (audio.PCMBuffer, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return audio.PCMBuffer{}, err
	}

	if h.Channels < 1 {
		return audio.PCMBuffer{}, fmt.Errorf("unsupported channel count: %d", h.Channels)
	}
	if h.SampleRate <= 0 {
		return audio.PCMBuffer{}, fmt.Errorf("invalid sample rate: %d", h.SampleRate)
	}

	payload := b[HeaderSize:]
	if len(payload) < h.DataLength {
		return audio.PCMBuffer{}, fmt.Errorf("truncated payload: header declares %d bytes, have %d", h.DataLength, len(payload))
	}
	payload = payload[:h.DataLength]

	var format audio.Format
	switch {
	case h.FormatTag == FormatPCM && h.BitsPerSample == 16:
		format = audio.Format{Codec: audio.CodecPCM, BitDepth: 16}
	case h.FormatTag == FormatMuLaw && h.BitsPerSample == 8:
		format = audio.Format{Codec: audio.CodecMuLaw, BitDepth: 8}
	default:
		return audio.PCMBuffer{}, fmt.Errorf("unsupported format: tag %d with %d bits", h.FormatTag, h.BitsPerSample)
	}
	format.SampleRate = h.SampleRate
	format.Channels = h.Channels

	decoder, err := decode.New(format)
	if err != nil {
		return audio.PCMBuffer{}, err
	}
	defer decoder.Close()

	samples, err := decoder.Decode(payload)
	if err != nil {
		return audio.PCMBuffer{}, fmt.Errorf("failed to decode payload: %w", err)
	}

	out := audio.Format{Codec: audio.CodecPCM, SampleRate: h.SampleRate, Channels: h.Channels, BitDepth: 16}
	return audio.NewPCMBuffer(out, samples), nil
}
