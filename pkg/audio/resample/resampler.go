// ABOUTME: Streaming linear resampler and channel remixer
// ABOUTME: Converts decoded tracks to the format the output device was opened with
package resample

// Resampler converts interleaved samples between rates using linear
// interpolation. It keeps the last input frame between calls so chunk
// boundaries do not click.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	step       float64
	position   float64 // fractional read position relative to prev
	prev       []int32 // last frame of the previous chunk
	primed     bool
}

// New creates a resampler for interleaved audio with the given channel count
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		step:       float64(inputRate) / float64(outputRate),
		prev:       make([]int32, channels),
	}
}

// Passthrough reports whether rates match and Process copies its input
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// Process resamples one chunk and returns the converted samples
func (r *Resampler) Process(input []int32) []int32 {
	if r.Passthrough() {
		return input
	}
	frames := len(input) / r.channels
	if frames == 0 {
		return nil
	}

	// frame i of the virtual stream is prev for i == 0, input[i-1] otherwise
	frame := func(i, ch int) float64 {
		if i == 0 {
			return float64(r.prev[ch])
		}
		return float64(input[(i-1)*r.channels+ch])
	}

	if !r.primed {
		copy(r.prev, input[:r.channels])
		r.primed = true
	}

	out := make([]int32, 0, r.OutputSamples(len(input)))
	for r.position < float64(frames) {
		idx := int(r.position)
		frac := r.position - float64(idx)
		for ch := 0; ch < r.channels; ch++ {
			a := frame(idx, ch)
			b := frame(idx+1, ch)
			out = append(out, int32(a+(b-a)*frac))
		}
		r.position += r.step
	}

	r.position -= float64(frames)
	copy(r.prev, input[(frames-1)*r.channels:frames*r.channels])
	return out
}

// Reset forgets the carried frame, e.g. after a seek
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	for i := range r.prev {
		r.prev[i] = 0
	}
}

// OutputSamples estimates how many samples Process returns for n input samples
func (r *Resampler) OutputSamples(n int) int {
	frames := n / r.channels
	return (int(float64(frames)/r.step) + 1) * r.channels
}

// Remix converts interleaved samples between channel counts. Mono is
// duplicated to every output channel; downmixing averages the inputs.
func Remix(samples []int32, from, to int) []int32 {
	if from == to || from <= 0 || to <= 0 {
		return samples
	}
	frames := len(samples) / from
	out := make([]int32, frames*to)
	for f := 0; f < frames; f++ {
		in := samples[f*from : (f+1)*from]
		switch {
		case from == 1:
			for ch := 0; ch < to; ch++ {
				out[f*to+ch] = in[0]
			}
		case to == 1:
			var sum int64
			for _, s := range in {
				sum += int64(s)
			}
			out[f] = int32(sum / int64(from))
		default:
			for ch := 0; ch < to; ch++ {
				out[f*to+ch] = in[ch%from]
			}
		}
	}
	return out
}
