// Package wav writes rendered click tracks as PCM WAV files and reads the
// data chunk of click assets.
//
// Writing goes through the go-audio/wav encoder: a 44-byte RIFF header is
// emitted with placeholder sizes, samples are streamed, and Close seeks back
// to patch the sizes once the sample count is known. Output is always mono
// 16-bit PCM.
//
// Reading is deliberately forgiving about everything except the data chunk:
// DataChunk scans the raw bytes for the "data" marker and validates its
// declared size. A missing marker or a size running past the buffer is an
// error, never an empty result.
package wav
