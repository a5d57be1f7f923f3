// Package resampler converts sample rates and channel layouts of float
// buffers.
//
// Linear is the reference converter used for click assets and backing
// tracks: it is deterministic and exact at sample 0. HighQuality runs the
// pure-Go polyphase resampler from go-audio-resampling for backing tracks
// when the configuration asks for it.
//
// Example usage:
//
//	mono := resampler.Downmix(stereo, 2)
//	out, err := resampler.Resample(mono, 44100, 48000, resampler.QualityHigh)
package resampler
