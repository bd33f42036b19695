// ABOUTME: Conversion of decoded PCM to the device format
// ABOUTME: Resamples, remaps channels and applies software volume
package output

import (
	"fmt"

	"github.com/speechbridge/speechbridge-go/pkg/audio"
	"github.com/speechbridge/speechbridge-go/pkg/audio/resample"
)

// toDeviceFormat converts buf to interleaved samples at the device rate
// and channel count
func toDeviceFormat(buf audio.PCMBuffer, sampleRate, channels int) ([]int16, error) {
	if buf.Format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", buf.Format.BitDepth)
	}

	samples := buf.Samples()
	srcChannels := buf.Format.Channels
	if srcChannels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", srcChannels)
	}

	if buf.Format.SampleRate != sampleRate {
		samples = resample.New(buf.Format.SampleRate, sampleRate, srcChannels).Resample(samples)
	}

	switch {
	case srcChannels == channels:
		return samples, nil
	case srcChannels == 1:
		// Mono fans out to every device channel
		out := make([]int16, len(samples)*channels)
		for i, s := range samples {
			for ch := 0; ch < channels; ch++ {
				out[i*channels+ch] = s
			}
		}
		return out, nil
	case channels == 1:
		// Multichannel folds down to the average
		frames := len(samples) / srcChannels
		out := make([]int16, frames)
		for i := 0; i < frames; i++ {
			var sum int32
			for ch := 0; ch < srcChannels; ch++ {
				sum += int32(samples[i*srcChannels+ch])
			}
			out[i] = int16(sum / int32(srcChannels))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported channel mapping: %d -> %d", srcChannels, channels)
	}
}

// applyVolume applies volume and mute to samples with clipping protection
func applyVolume(samples []int16, volume int, muted bool) []int16 {
	multiplier := getVolumeMultiplier(volume, muted)
	if multiplier == 1.0 {
		return samples
	}

	result := make([]int16, len(samples))
	for i, sample := range samples {
		result[i] = audio.ClampInt16(int32(float64(sample) * multiplier))
	}
	return result
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}

// clampVolume limits volume to 0-100
func clampVolume(volume int) int {
	if volume < 0 {
		return 0
	}
	if volume > 100 {
		return 100
	}
	return volume
}
