// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, PCMBuffer types and sample conversion functions
// Package audio provides the fundamental audio types shared by the pipeline.
//
// This package defines core types used throughout speechbridge:
//   - Format: Describes an audio stream (codec, sample rate, channels, bit depth)
//   - PCMBuffer: Owned little-endian signed 16-bit samples tagged with a Format
//
// It also provides the sample arithmetic the pipeline relies on:
//   - float32 -> int16 conversion with asymmetric scaling
//   - saturating int16 addition
//   - int16 <-> little-endian byte packing
//
// Example:
//
//	format := audio.Format{
//	    Codec:      audio.CodecPCM,
//	    SampleRate: 16000,
//	    Channels:   1,
//	    BitDepth:   16,
//	}
//
//	buf := audio.NewPCMBuffer(format, []int16{0, 1200, -1200})
//	fmt.Println(buf.Duration())
package audio
