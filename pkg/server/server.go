// Package server exposes live metronome sessions over WebSocket and one-shot
// renders over HTTP.
//
// Routes:
//
//	GET /ws          live session: binary float32 audio out, JSON control in
//	GET /api/render  ?notation=|pattern=&tempo=&lead_in_ms=&repeat= returns audio/wav
//	GET /healthz     liveness probe
//
// Each WebSocket connection owns its own player.Engine and player.Updater,
// so sessions never share playback state.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/player"
	"github.com/cognitivitydev/Chronal-sub002/pkg/render"
	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
	"github.com/cognitivitydev/Chronal-sub002/pkg/timeline"
)

// Config configures a Server.
type Config struct {
	// Render serves /api/render and provides the click voice for sessions.
	Render *render.Service

	// Rhythm and Tempo start every new session.
	Rhythm  rhythm.Rhythm
	Tempo   float64
	Options timeline.Options

	// Backing is loaded into every session when set.
	Backing []float32

	Chunk       time.Duration
	ClickGain   float32
	BackingGain float32
	Loop        bool
	Debounce    time.Duration

	Log *slog.Logger
}

// Server handles HTTP and WebSocket requests.
type Server struct {
	cfg      Config
	log      *slog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	wg sync.WaitGroup
}

// New returns a server for cfg.
func New(cfg Config) *Server {
	if cfg.Render == nil {
		cfg.Render = render.NewService()
	}
	if cfg.Chunk <= 0 {
		cfg.Chunk = player.DefaultChunk
	}
	if cfg.ClickGain == 0 {
		cfg.ClickGain = 1
	}
	if cfg.BackingGain == 0 {
		cfg.BackingGain = 1
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg: cfg,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16384,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /ws", s.handleWS)
	s.mux.HandleFunc("GET /api/render", s.handleRender)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down and
// waits for open sessions to end.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     s.mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.wg.Wait()
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return err
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.cfg.Render.WAV(r.Context(), job)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	cache := "miss"
	if res.Cached {
		cache = "hit"
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(res.WAV)))
	w.Header().Set("X-Render-Cache", cache)
	w.Write(res.WAV)
}

func (s *Server) jobFromQuery(r *http.Request) (render.Job, error) {
	q := r.URL.Query()
	job := render.Job{Tempo: s.cfg.Tempo, Options: s.cfg.Options}
	var err error
	if v := q.Get("tempo"); v != "" {
		if job.Tempo, err = strconv.ParseFloat(v, 64); err != nil {
			return job, fmt.Errorf("tempo: %w", err)
		}
	}
	if v := q.Get("lead_in_ms"); v != "" {
		if job.Options.LeadInMs, err = strconv.ParseFloat(v, 64); err != nil {
			return job, fmt.Errorf("lead_in_ms: %w", err)
		}
	}
	if v := q.Get("repeat"); v != "" {
		if job.Options.Repeat, err = strconv.Atoi(v); err != nil {
			return job, fmt.Errorf("repeat: %w", err)
		}
	}

	text, pattern := q.Get("notation"), q.Get("pattern")
	switch {
	case text != "" && pattern != "":
		return job, errors.New("pass either notation or pattern, not both")
	case pattern != "":
		p, err := timeline.ParsePattern(pattern, job.Tempo)
		if err != nil {
			return job, err
		}
		job.Pattern = &p
	case text != "":
		if job.Rhythm, err = rhythm.ParseStrict(text); err != nil {
			return job, err
		}
	default:
		return job, errors.New("notation or pattern is required")
	}
	return job, job.Validate()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	log := s.log.With("remote", r.RemoteAddr)
	sess := s.newSession(conn, log)
	log.Info("session opened")
	err = sess.run(r.Context())
	log.Info("session closed", "error", err)
}
