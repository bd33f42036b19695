// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts int16 audio between sample rates
// Package resample provides audio sample rate conversion.
//
// Resampler uses linear interpolation and carries the last frame across
// calls so chunked streams resample without seams. Duplicate performs the
// cheap integer-factor upsampling used to lift 8 kHz telephony audio onto
// a 16 kHz recording timeline.
//
// Example:
//
//	r := resample.New(8000, 16000, 1)
//	wide := r.Resample(narrow)
//
//	wide = resample.Duplicate(narrow, 2)
package resample
