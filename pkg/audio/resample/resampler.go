// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Used to convert between different sample rates using linear interpolation
package resample

import "github.com/speechbridge/speechbridge-go/pkg/audio"

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
	lastFrame  []int16
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels < 1 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]int16, channels),
	}
}

// Resample converts interleaved input at inputRate to interleaved output at
// outputRate. The final input frame is held back and interpolated against
// the next call's first frame.
func (r *Resampler) Resample(input []int16) []int16 {
	frames := len(input) / r.channels
	if frames == 0 {
		return nil
	}

	src := input[:frames*r.channels]
	if r.primed {
		src = make([]int16, 0, (frames+1)*r.channels)
		src = append(src, r.lastFrame...)
		src = append(src, input[:frames*r.channels]...)
		frames++
	}

	out := make([]int16, 0, r.OutputSamplesNeeded(len(src)))
	for {
		idx := int(r.position)
		if idx >= frames-1 {
			break
		}

		// Linear interpolation factor
		frac := r.position - float64(idx)

		for ch := 0; ch < r.channels; ch++ {
			s1 := float64(src[idx*r.channels+ch])
			s2 := float64(src[(idx+1)*r.channels+ch])
			out = append(out, audio.ClampInt16(int32(s1*(1.0-frac)+s2*frac)))
		}

		r.position += r.ratio
	}

	// Rebase position onto the held-back frame
	r.position -= float64(frames - 1)
	copy(r.lastFrame, src[(frames-1)*r.channels:])
	r.primed = true

	return out
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	r.primed = false
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames)/r.ratio) + 1
	return outputFrames * r.channels
}

// Duplicate upsamples by repeating each sample factor times
func Duplicate(samples []int16, factor int) []int16 {
	if factor <= 1 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}
	out := make([]int16, len(samples)*factor)
	for i, s := range samples {
		for j := 0; j < factor; j++ {
			out[i*factor+j] = s
		}
	}
	return out
}
