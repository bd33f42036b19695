// ABOUTME: RIFF/WAVE header encoding and parsing
// ABOUTME: Implements the fixed 44-byte layout with format tags 1 and 7
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the length of the canonical header
const HeaderSize = 44

// Format tags
const (
	FormatPCM   uint16 = 1
	FormatMuLaw uint16 = 7
)

// ErrInvalidHeader is wrapped by every header parse failure
var ErrInvalidHeader = errors.New("invalid WAV header")

// Header is the decoded form of the 44-byte header
type Header struct {
	FormatTag     uint16
	Channels      int
	SampleRate    int
	BitsPerSample int
	DataLength    int
}

// riffHeader mirrors the on-disk layout
type riffHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + data length
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// EncodeHeader returns the 44-byte header for a payload of dataLength bytes
func EncodeHeader(dataLength, sampleRate, channels, bitsPerSample int, formatTag uint16) []byte {
	blockAlign := channels * bitsPerSample / 8
	h := riffHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + dataLength),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   formatTag,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: uint16(bitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(dataLength),
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize))
	// writes to a bytes.Buffer of a fixed-size struct cannot fail
	_ = binary.Write(buf, binary.LittleEndian, h)
	return buf.Bytes()
}

// Encode returns the header for h
func (h Header) Encode() []byte {
	return EncodeHeader(h.DataLength, h.SampleRate, h.Channels, h.BitsPerSample, h.FormatTag)
}

// ParseHeader validates and decodes the first 44 bytes of b
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidHeader, HeaderSize, len(b))
	}

	var h riffHeader
	if err := binary.Read(bytes.NewReader(b[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	switch {
	case string(h.ChunkID[:]) != "RIFF":
		return Header{}, fmt.Errorf("%w: missing RIFF tag", ErrInvalidHeader)
	case string(h.Format[:]) != "WAVE":
		return Header{}, fmt.Errorf("%w: missing WAVE format", ErrInvalidHeader)
	case string(h.Subchunk1ID[:]) != "fmt ":
		return Header{}, fmt.Errorf("%w: missing fmt chunk", ErrInvalidHeader)
	case h.Subchunk1Size != 16:
		return Header{}, fmt.Errorf("%w: fmt chunk size %d", ErrInvalidHeader, h.Subchunk1Size)
	case string(h.Subchunk2ID[:]) != "data":
		return Header{}, fmt.Errorf("%w: missing data chunk", ErrInvalidHeader)
	}

	return Header{
		FormatTag:     h.AudioFormat,
		Channels:      int(h.NumChannels),
		SampleRate:    int(h.SampleRate),
		BitsPerSample: int(h.BitsPerSample),
		DataLength:    int(h.Subchunk2Size),
	}, nil
}

// IsWrapped reports whether b starts with the RIFF tag
func IsWrapped(b []byte) bool {
	return len(b) >= 4 && string(b[:4]) == "RIFF"
}
