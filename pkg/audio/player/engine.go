package player

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/pcm"
)

// ErrClosed is returned by commands sent after Run has returned.
var ErrClosed = errors.New("player: engine closed")

// DefaultChunk is the length of audio mixed per tick.
const DefaultChunk = 20 * time.Millisecond

// EngineOption configures an Engine.
type EngineOption interface {
	apply(*Engine)
}

type chunkOption time.Duration

func (o chunkOption) apply(e *Engine) {
	if o > 0 {
		e.chunk = time.Duration(o)
	}
}

// WithChunk sets the length of audio mixed per tick. Defaults to
// DefaultChunk.
func WithChunk(d time.Duration) EngineOption {
	return chunkOption(d)
}

type loggerOption struct{ l *slog.Logger }

func (o loggerOption) apply(e *Engine) {
	if o.l != nil {
		e.log = o.l
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return loggerOption{l}
}

type gainsOption struct{ click, backing float32 }

func (o gainsOption) apply(e *Engine) {
	e.clickGain.Store(o.click)
	e.backingGain.Store(o.backing)
}

// WithGains sets the initial click and backing gains, each clamped to
// [0, 1]. Both default to 1.
func WithGains(click, backing float32) EngineOption {
	return gainsOption{click, backing}
}

type command func(*Engine)

// Engine mixes the click and backing buffers chunk by chunk and writes them
// to a sink.
//
// Methods other than Run may be called from any goroutine.
type Engine struct {
	format pcm.Format
	chunk  time.Duration
	sink   Sink
	log    *slog.Logger

	clickGain   *pcm.Gain
	backingGain *pcm.Gain

	cmds chan command
	done chan struct{}

	// Published copies of loop state.
	position atomic.Int64
	playing  atomic.Bool

	// Loop-owned state.
	click   []float32
	backing []float32
	cursor  int
	active  bool
	loop    bool
	buf     []float32
}

// NewEngine returns an engine writing working-format audio to sink.
func NewEngine(sink Sink, opts ...EngineOption) *Engine {
	e := &Engine{
		format:      pcm.Working,
		chunk:       DefaultChunk,
		sink:        sink,
		log:         slog.Default(),
		clickGain:   pcm.NewGain(1),
		backingGain: pcm.NewGain(1),
		cmds:        make(chan command, 64),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt.apply(e)
	}
	e.buf = make([]float32, e.format.SamplesInDuration(e.chunk))
	return e
}

// Run mixes one chunk per tick until ctx is done. It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	ticker := time.NewTicker(e.chunk)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-e.cmds:
			cmd(e)
		case <-ticker.C:
			e.drain()
			e.step()
		}
	}
}

// drain applies every queued command.
func (e *Engine) drain() {
	for {
		select {
		case cmd := <-e.cmds:
			cmd(e)
		default:
			return
		}
	}
}

func (e *Engine) send(cmd command) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	select {
	case e.cmds <- cmd:
		return nil
	case <-e.done:
		return ErrClosed
	}
}

// length is the loop length: the longer of the two buffers.
func (e *Engine) length() int {
	return max(len(e.click), len(e.backing))
}

// step mixes and writes one chunk. When the cursor passes the end it wraps
// if looping and stops otherwise; a stopped chunk is padded with silence.
func (e *Engine) step() {
	if !e.active {
		return
	}
	clear(e.buf)
	n := 0
	for n < len(e.buf) {
		end := e.length()
		if e.cursor >= end {
			if !e.loop || end == 0 {
				e.active = false
				e.playing.Store(false)
				e.log.Info("playback finished")
				break
			}
			e.cursor = 0
		}
		take := min(len(e.buf)-n, end-e.cursor)
		dst := e.buf[n : n+take]
		if e.cursor < len(e.click) {
			pcm.AddInto(dst, e.click[e.cursor:], e.clickGain.Load())
		}
		if e.cursor < len(e.backing) {
			pcm.AddInto(dst, e.backing[e.cursor:], e.backingGain.Load())
		}
		pcm.ClampAll(dst)
		n += take
		e.cursor += take
	}
	e.position.Store(int64(e.cursor))
	if n == 0 {
		return
	}
	if err := e.sink.Write(e.buf); err != nil {
		e.log.Error("sink write failed, stopping", "error", err)
		e.active = false
		e.playing.Store(false)
	}
}

// Play starts or resumes playback from the cursor.
func (e *Engine) Play() error {
	return e.send(func(e *Engine) {
		if e.active {
			return
		}
		if e.cursor >= e.length() {
			e.cursor = 0
		}
		e.active = true
		e.playing.Store(true)
		e.log.Info("playback started", "position", e.Position())
	})
}

// Pause stops output and keeps the cursor.
func (e *Engine) Pause() error {
	return e.send(func(e *Engine) {
		e.active = false
		e.playing.Store(false)
		e.log.Info("playback paused", "position", e.Position())
	})
}

// Stop halts playback, flushes the sink and rewinds to the start.
func (e *Engine) Stop() error {
	return e.send(func(e *Engine) {
		e.active = false
		e.playing.Store(false)
		e.cursor = 0
		e.position.Store(0)
		if err := e.sink.Flush(); err != nil {
			e.log.Warn("sink flush failed", "error", err)
		}
		e.log.Info("playback stopped")
	})
}

// SeekTo moves the cursor to d from the start, clamped to the loop length.
func (e *Engine) SeekTo(d time.Duration) error {
	return e.send(func(e *Engine) {
		at := int(e.format.SamplesInDuration(max(d, 0)))
		e.cursor = min(at, e.length())
		e.position.Store(int64(e.cursor))
		e.log.Info("seek", "position", e.Position())
	})
}

// SetClick swaps the click buffer. The cursor keeps its position.
func (e *Engine) SetClick(samples []float32) error {
	return e.send(func(e *Engine) {
		e.click = samples
		e.log.Debug("click swapped", "samples", len(samples))
	})
}

// SetBacking swaps the backing buffer. Nil removes the backing track.
func (e *Engine) SetBacking(samples []float32) error {
	return e.send(func(e *Engine) {
		e.backing = samples
		e.log.Debug("backing swapped", "samples", len(samples))
	})
}

// SetLoop enables or disables looping at the end of the longer buffer.
func (e *Engine) SetLoop(loop bool) error {
	return e.send(func(e *Engine) {
		e.loop = loop
	})
}

// SetClickGain sets the click gain, clamped to [0, 1].
func (e *Engine) SetClickGain(g float32) {
	e.clickGain.Store(g)
}

// SetBackingGain sets the backing gain, clamped to [0, 1].
func (e *Engine) SetBackingGain(g float32) {
	e.backingGain.Store(g)
}

// Position returns the cursor as of the last mixed chunk or command.
func (e *Engine) Position() time.Duration {
	return time.Duration(e.position.Load()) * time.Second / time.Duration(e.format.SampleRate())
}

// Playing reports whether the engine is producing audio.
func (e *Engine) Playing() bool {
	return e.playing.Load()
}

// Format returns the output format.
func (e *Engine) Format() pcm.Format {
	return e.format
}
