package audio

import "math"

// downmixFloat32 averages N interleaved float32 channels down to mono,
// accumulating in float64 to avoid precision loss, then clamps to [-1,1]
// and scales to int16. This is the path for the float32 samples PortAudio
// delivers; i16-native devices go through downmixInt16 below.
func downmixFloat32(interleaved []float32, channels int) []int16 {
	if channels <= 1 {
		out := make([]int16, len(interleaved))
		for i, s := range interleaved {
			out[i] = floatToInt16(s)
		}
		return out
	}
	frames := len(interleaved) / channels
	out := make([]int16, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(interleaved[f*channels+c])
		}
		out[f] = floatToInt16(float32(sum / float64(channels)))
	}
	return out
}

// downmixInt16 averages N interleaved signed-16-bit channels down to mono
// using an int32 accumulator to avoid overflow when summing channels
// before dividing.
func downmixInt16(interleaved []int16, channels int) []int16 {
	if channels <= 1 {
		out := make([]int16, len(interleaved))
		copy(out, interleaved)
		return out
	}
	frames := len(interleaved) / channels
	out := make([]int16, frames)
	for f := 0; f < frames; f++ {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(interleaved[f*channels+c])
		}
		out[f] = int16(sum / int32(channels))
	}
	return out
}

func floatToInt16(s float32) int16 {
	if s > 1.0 {
		s = 1.0
	} else if s < -1.0 {
		s = -1.0
	}
	return int16(s * 32767)
}

// resampleLinear converts mono samples from fromRate to toRate via linear
// interpolation between the floor and floor+1 source samples, holding the
// last sample's value when floor+1 runs past the end of the input. len(output) == ceil(len(input) * toRate / fromRate) within ±1
// sample, and resampleLinear(s, r, r) returns a copy of s unchanged.
func resampleLinear(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}
	ratio := float64(fromRate) / float64(toRate)
	outLen := int(math.Ceil(float64(len(samples)) * float64(toRate) / float64(fromRate)))
	out := make([]int16, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		idx := int(math.Floor(srcPos))
		frac := srcPos - float64(idx)

		var s0, s1 float64
		if idx < len(samples) {
			s0 = float64(samples[idx])
		}
		if idx+1 < len(samples) {
			s1 = float64(samples[idx+1])
		} else {
			s1 = s0 // pad with the last sample's value rather than a hard zero edge
		}
		out[i] = int16(s0 + (s1-s0)*frac)
	}
	return out
}

// rms computes the root-mean-square level of a sample slice, normalized to
// [0,1] against the full int16 range and clamped at 1.0.
func rms(samples []int16) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		v := float64(s)
		sumSq += v * v
	}
	level := math.Sqrt(sumSq/float64(len(samples))) / 32767.0
	if level > 1.0 {
		level = 1.0
	}
	return float32(level)
}
