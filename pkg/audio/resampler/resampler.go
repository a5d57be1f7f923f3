package resampler

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Quality selects the resampling algorithm.
type Quality int

const (
	// QualityLinear interpolates linearly between neighbouring samples.
	QualityLinear Quality = iota
	// QualityHigh uses a windowed-sinc polyphase filter.
	QualityHigh
)

// String returns "linear" or "high".
func (q Quality) String() string {
	if q == QualityHigh {
		return "high"
	}
	return "linear"
}

// ParseQuality parses "linear" or "high". The empty string is linear.
func ParseQuality(s string) (Quality, error) {
	switch s {
	case "", "linear":
		return QualityLinear, nil
	case "high":
		return QualityHigh, nil
	}
	return 0, fmt.Errorf("resampler: unknown quality %q", s)
}

// OutputLen returns the length of a buffer of n samples converted from
// inRate to outRate.
func OutputLen(n, inRate, outRate int) int {
	return int(math.Round(float64(n) * float64(outRate) / float64(inRate)))
}

// Linear resamples mono in from inRate to outRate by linear interpolation.
// Equal rates return in itself. Output sample i reads the input at i/ratio,
// interpolating between the floor and the next sample, clamped to the last
// input sample.
func Linear(in []float32, inRate, outRate int) []float32 {
	if inRate == outRate || len(in) == 0 {
		return in
	}
	ratio := float64(outRate) / float64(inRate)
	out := make([]float32, OutputLen(len(in), inRate, outRate))
	last := len(in) - 1
	for i := range out {
		pos := float64(i) / ratio
		i0 := int(pos)
		if i0 > last {
			i0 = last
		}
		i1 := min(i0+1, last)
		frac := float32(pos - float64(i0))
		out[i] = in[i0] + (in[i1]-in[i0])*frac
	}
	return out
}

// Downmix averages interleaved frames of the given channel count into a
// mono buffer. A trailing partial frame is dropped. Mono input is returned
// as is.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	out := make([]float32, len(interleaved)/channels)
	for i := range out {
		var sum float32
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// HighQuality resamples mono in from inRate to outRate with
// go-audio-resampling. The filter tail is flushed with silence and the result
// is trimmed to OutputLen so both algorithms agree on length.
func HighQuality(in []float32, inRate, outRate int) ([]float32, error) {
	if inRate == outRate || len(in) == 0 {
		return in, nil
	}
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(inRate),
		OutputRate: float64(outRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: create: %w", err)
	}

	input := make([]float64, len(in))
	for i, s := range in {
		input[i] = float64(s)
	}
	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}

	want := OutputLen(len(in), inRate, outRate)
	if len(output) < want {
		tail, err := rs.Process(make([]float64, max(inRate/10, len(in)-len(output))))
		if err != nil {
			return nil, fmt.Errorf("resampler: flush: %w", err)
		}
		output = append(output, tail...)
	}

	out := make([]float32, want)
	for i := range out {
		if i < len(output) {
			out[i] = float32(output[i])
		}
	}
	return out, nil
}

// Resample converts mono in from inRate to outRate with the given quality.
func Resample(in []float32, inRate, outRate int, q Quality) ([]float32, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", inRate, outRate)
	}
	if q == QualityHigh {
		return HighQuality(in, inRate, outRate)
	}
	return Linear(in, inRate, outRate), nil
}
