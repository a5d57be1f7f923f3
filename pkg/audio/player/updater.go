package player

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/click"
	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
	"github.com/cognitivitydev/Chronal-sub002/pkg/timeline"
)

// ErrRender is returned when rendering a request panics.
var ErrRender = errors.New("player: render failed")

// DefaultDebounce is how long the Updater waits for edits to settle.
const DefaultDebounce = 150 * time.Millisecond

// Request is a rhythm to render with its tempo and compile options.
type Request struct {
	Rhythm  rhythm.Rhythm
	Tempo   float64
	Options timeline.Options
}

// Updater turns rhythm edits into click buffers for an Engine. Rapid calls
// to Update collapse into a single render of the latest request, and at most
// one render runs at a time.
type Updater struct {
	engine   *Engine
	renderer *click.Renderer
	log      *slog.Logger
	debounce func(func())

	mu      sync.Mutex
	pending *Request
	lastErr error

	renderMu sync.Mutex
}

// NewUpdater returns an updater feeding engine. A wait of zero uses
// DefaultDebounce.
func NewUpdater(engine *Engine, renderer *click.Renderer, wait time.Duration) *Updater {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	return &Updater{
		engine:   engine,
		renderer: renderer,
		log:      engine.log,
		debounce: debounce.New(wait),
	}
}

// Update schedules req to be rendered once edits settle.
func (u *Updater) Update(req Request) {
	u.mu.Lock()
	u.pending = &req
	u.mu.Unlock()
	u.debounce(func() {
		if err := u.render(); err != nil {
			u.log.Error("render failed", "error", err)
		}
	})
}

// Flush renders the pending request now, if any, and returns the render
// error.
func (u *Updater) Flush() error {
	return u.render()
}

// Err returns the error of the most recent render.
func (u *Updater) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastErr
}

func (u *Updater) render() error {
	u.renderMu.Lock()
	defer u.renderMu.Unlock()

	u.mu.Lock()
	req := u.pending
	u.pending = nil
	u.mu.Unlock()
	if req == nil {
		return nil
	}

	err := u.renderRequest(*req)
	u.mu.Lock()
	u.lastErr = err
	u.mu.Unlock()
	return err
}

// renderRequest runs on the debounce timer goroutine, so a panic is turned
// into an error rather than taking the process down.
func (u *Updater) renderRequest(req Request) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrRender, p)
		}
	}()
	start := time.Now()
	events, err := timeline.Compile(req.Rhythm, req.Tempo, req.Options)
	if err != nil {
		return err
	}
	samples, err := u.renderer.Render(events)
	if err != nil {
		return err
	}
	if err := u.engine.SetClick(samples); err != nil {
		return err
	}
	u.log.Debug("click rendered",
		"events", len(events),
		"samples", len(samples),
		"elapsed", time.Since(start),
	)
	return nil
}
