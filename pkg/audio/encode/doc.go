// ABOUTME: Audio encoder package for encoding PCM to wire formats
// ABOUTME: Provides Encoder interface and implementations for PCM and mu-law
// Package encode provides audio encoders for the capture uplink.
//
// Supports: PCM (16-bit little-endian), G.711 mu-law (8-bit)
//
// All encoders accept int16 samples and encode to wire format.
//
// Example:
//
//	encoder, err := encode.New(audio.Format{Codec: audio.CodecMuLaw, SampleRate: 8000, Channels: 1, BitDepth: 8})
//	data, err := encoder.Encode(samples)
package encode
