package player

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"
)

type recordSink struct {
	mu      sync.Mutex
	chunks  [][]float32
	flushes int
	err     error
	notify  chan struct{}
}

func (s *recordSink) Write(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.chunks = append(s.chunks, append([]float32(nil), samples...))
	if s.notify != nil {
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
	return nil
}

func (s *recordSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *recordSink) samples() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []float32
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine mixes 48 samples (1ms) per step.
func newTestEngine(sink Sink, opts ...EngineOption) *Engine {
	opts = append([]EngineOption{WithChunk(time.Millisecond), WithLogger(quietLogger())}, opts...)
	return NewEngine(sink, opts...)
}

func constant(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestEngineMixesClickAndBacking(t *testing.T) {
	sink := &recordSink{}
	e := newTestEngine(sink, WithGains(1, 0.5))
	must(t, e.SetClick(constant(48, 0.5)))
	must(t, e.SetBacking(constant(48, 0.4)))
	must(t, e.Play())
	e.drain()
	e.step()

	got := sink.samples()
	if len(got) != 48 {
		t.Fatalf("samples = %d, want 48", len(got))
	}
	for i, s := range got {
		if math.Abs(float64(s)-0.7) > 1e-6 {
			t.Fatalf("sample %d = %v, want 0.7", i, s)
		}
	}

	e.SetClickGain(3)
	e.SetBackingGain(1)
	must(t, e.SeekTo(0))
	e.drain()
	e.step()
	got = sink.samples()[48:]
	for i, s := range got {
		if math.Abs(float64(s)-0.9) > 1e-6 {
			t.Fatalf("sample %d after gain change = %v, want 0.9", i, s)
		}
	}
}

func TestEngineClampsMix(t *testing.T) {
	sink := &recordSink{}
	e := newTestEngine(sink)
	must(t, e.SetClick(constant(48, 0.9)))
	must(t, e.SetBacking(constant(48, 0.9)))
	must(t, e.Play())
	e.drain()
	e.step()
	for i, s := range sink.samples() {
		if s != 1 {
			t.Fatalf("sample %d = %v, want 1", i, s)
		}
	}
}

func TestEngineClampsOnlyTheSum(t *testing.T) {
	sink := &recordSink{}
	e := newTestEngine(sink)
	must(t, e.SetClick(constant(48, 1.5)))
	must(t, e.SetBacking(constant(48, -0.6)))
	must(t, e.Play())
	e.drain()
	e.step()
	for i, s := range sink.samples()[:48] {
		if math.Abs(float64(s)-0.9) > 1e-6 {
			t.Fatalf("sample %d = %v, want 0.9", i, s)
		}
	}
}

func TestEngineStopsAtEnd(t *testing.T) {
	sink := &recordSink{}
	e := newTestEngine(sink)
	must(t, e.SetClick(constant(100, 0.5)))
	must(t, e.Play())
	e.drain()
	for range 5 {
		e.step()
	}
	if len(sink.chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(sink.chunks))
	}
	got := sink.samples()
	if got[99] != 0.5 || got[100] != 0 {
		t.Errorf("tail not silent: got[99]=%v got[100]=%v", got[99], got[100])
	}
	if e.Playing() {
		t.Error("still playing after the end")
	}

	// Play again restarts from the beginning.
	must(t, e.Play())
	e.drain()
	e.step()
	if !e.Playing() || e.Position() != time.Millisecond {
		t.Errorf("restart: playing=%v position=%v", e.Playing(), e.Position())
	}
}

func TestEngineLoops(t *testing.T) {
	sink := &recordSink{}
	e := newTestEngine(sink)
	click := make([]float32, 30)
	click[0] = 1
	must(t, e.SetClick(click))
	must(t, e.SetLoop(true))
	must(t, e.Play())
	e.drain()
	e.step()
	e.step()

	got := sink.samples()
	if len(got) != 96 {
		t.Fatalf("samples = %d, want 96", len(got))
	}
	for i, s := range got {
		want := float32(0)
		if i%30 == 0 {
			want = 1
		}
		if s != want {
			t.Errorf("sample %d = %v, want %v", i, s, want)
		}
	}
}

func TestEngineStopFlushesAndRewinds(t *testing.T) {
	sink := &recordSink{}
	e := newTestEngine(sink)
	must(t, e.SetClick(constant(480, 0.1)))
	must(t, e.Play())
	e.drain()
	e.step()
	e.step()
	if e.Position() != 2*time.Millisecond {
		t.Fatalf("position = %v, want 2ms", e.Position())
	}

	must(t, e.Pause())
	e.drain()
	e.step()
	if len(sink.chunks) != 2 || e.Position() != 2*time.Millisecond {
		t.Fatalf("pause: chunks=%d position=%v", len(sink.chunks), e.Position())
	}

	must(t, e.Stop())
	e.drain()
	if sink.flushes != 1 || e.Position() != 0 || e.Playing() {
		t.Errorf("stop: flushes=%d position=%v playing=%v", sink.flushes, e.Position(), e.Playing())
	}
}

func TestEngineSeekClamps(t *testing.T) {
	e := newTestEngine(Discard)
	must(t, e.SetClick(constant(4800, 0)))
	must(t, e.SeekTo(50*time.Millisecond))
	e.drain()
	if e.Position() != 50*time.Millisecond {
		t.Errorf("position = %v, want 50ms", e.Position())
	}
	must(t, e.SeekTo(time.Hour))
	e.drain()
	if e.Position() != 100*time.Millisecond {
		t.Errorf("position = %v, want 100ms", e.Position())
	}
	must(t, e.SeekTo(-time.Second))
	e.drain()
	if e.Position() != 0 {
		t.Errorf("position = %v, want 0", e.Position())
	}
}

func TestEngineSinkErrorStops(t *testing.T) {
	sink := &recordSink{err: errors.New("device gone")}
	e := newTestEngine(sink)
	must(t, e.SetClick(constant(480, 0.1)))
	must(t, e.Play())
	e.drain()
	e.step()
	if e.Playing() {
		t.Error("engine kept playing after a sink error")
	}
}

func TestEngineRun(t *testing.T) {
	sink := &recordSink{notify: make(chan struct{}, 1)}
	e := newTestEngine(sink)
	must(t, e.SetClick(constant(48000, 0.2)))
	must(t, e.Play())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- e.Run(ctx) }()

	select {
	case <-sink.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("no audio written")
	}
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if err := e.Play(); !errors.Is(err, ErrClosed) {
		t.Errorf("Play after Run = %v, want ErrClosed", err)
	}
}
