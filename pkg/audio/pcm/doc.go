// Package pcm provides the working audio formats and sample conversions used
// by the renderer, the WAV codec and the live engine.
//
// All rendering happens in float32 at 48 kHz mono (L16Mono48K). Samples are
// clamped to [-1, 1] and quantized to signed 16-bit little-endian only at the
// output boundary.
//
// Key types:
//   - Format: sample rate, channel count and bit depth of a PCM stream
//   - AtomicFloat32: lock-free gain value shared with the mix loop
//   - AddInto, ClampAll: additive mixing with a single final clamp
//
// Example usage:
//
//	// Samples in 20ms at the working rate
//	n := pcm.L16Mono48K.SamplesInDuration(20 * time.Millisecond)
//
//	// Quantize a rendered buffer
//	data := pcm.EncodePCM16(samples)
package pcm
