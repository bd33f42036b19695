// ABOUTME: WAV container package for the canonical 44-byte RIFF header
// ABOUTME: Encodes, parses and detects headers and wraps raw payloads
// Package wav reads and writes the canonical 44-byte RIFF/WAVE header.
//
// Only the fixed layout is supported: a 16-byte fmt chunk immediately
// followed by the data chunk, little-endian throughout. Format tags 1 (PCM)
// and 7 (mu-law) are recognised.
//
// Raw telephony payloads arrive without a header. ToDecodable synthesizes
// one for an assumed format so the host decoder can consume them:
//
//	playable := wav.ToDecodable(payload, wav.MuLaw8kMono)
//	buf, err := wav.Decode(playable)
//
// Recordings are exported with PCMChunksToWav or EncodePCM16:
//
//	blob := wav.EncodePCM16(samples, 16000)
//	os.WriteFile("call.wav", blob.Data, 0o644)
package wav
