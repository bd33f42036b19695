// ABOUTME: Audio decoder package for telephony codecs
// ABOUTME: Provides Decoder interface and implementations for PCM and mu-law
// Package decode provides audio decoders for the codecs the pipeline carries.
//
// Supports: PCM (16-bit little-endian), G.711 mu-law (8-bit)
//
// All decoders implement the Decoder interface and output int16 samples.
// MuLaw is a pure per-byte function; any byte value decodes.
//
// Example:
//
//	decoder, err := decode.New(audio.MuLawMono8k)
//	samples, err := decoder.Decode(payload)
package decode
