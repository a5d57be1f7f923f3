package pcm

import (
	"encoding/binary"
	"math"
)

// Clamp restricts v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float32) float32 {
	if v > hi {
		return hi
	}
	if v >= lo {
		return v
	}
	return lo
}

// Quantize converts a float sample to int16. The sample is clamped to
// [-1, 1]; positive values scale by 32767 and negative values by 32768 so
// both ends of the range are reachable.
func Quantize(v float32) int16 {
	v = Clamp(v, -1, 1)
	if v >= 0 {
		return int16(math.Round(float64(v) * 32767))
	}
	return int16(math.Round(float64(v) * 32768))
}

// Dequantize converts an int16 sample to a float in [-1, 1).
func Dequantize(s int16) float32 {
	return float32(s) / 32768
}

// EncodePCM16 quantizes samples to 16-bit little-endian bytes.
func EncodePCM16(samples []float32) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(Quantize(s)))
	}
	return data
}

// DecodePCM16 converts 16-bit little-endian bytes to float samples. A
// trailing odd byte is ignored.
func DecodePCM16(data []byte) []float32 {
	out := make([]float32, len(data)/2)
	for i := range out {
		out[i] = Dequantize(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	return out
}

// AddInto adds src scaled by gain to dst without clamping, so several
// sources can be summed before a single ClampAll. It adds
// min(len(dst), len(src)) samples and returns that count.
func AddInto(dst, src []float32, gain float32) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] += src[i] * gain
	}
	return n
}

// ClampAll clamps every sample of buf to [-1, 1] in place.
func ClampAll(buf []float32) {
	for i, v := range buf {
		buf[i] = Clamp(v, -1, 1)
	}
}
