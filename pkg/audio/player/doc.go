// Package player plays a rendered click track, optionally mixed with a
// backing track, in real time.
//
// An Engine owns all playback state. Its Run loop is the only goroutine that
// touches the sample cursor and the buffers; every other goroutine talks to
// it through a command queue, so a seek or a rhythm swap is applied between
// two chunks and never tears the cursor. Gains are atomics and are read
// directly by the loop.
//
// Rhythm edits arrive through an Updater, which coalesces bursts of edits
// with a debounce, renders the latest rhythm off the loop, and hands the
// finished buffer to the engine.
//
// Output goes to a Sink: a WebSocket connection, a beep.Streamer for device
// playback, or any function.
package player
