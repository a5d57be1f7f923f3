package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/player"
	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
	"github.com/cognitivitydev/Chronal-sub002/pkg/timeline"
)

// Control is a client message on the session socket.
type Control struct {
	// Op is one of play, pause, stop, seek, rhythm, gain, loop or state.
	Op string `json:"op"`

	// seek
	Ms float64 `json:"ms,omitempty"`

	// rhythm
	Notation string  `json:"notation,omitempty"`
	Tempo    float64 `json:"tempo,omitempty"`
	LeadInMs float64 `json:"lead_in_ms,omitempty"`

	// gain
	Click   *float32 `json:"click,omitempty"`
	Backing *float32 `json:"backing,omitempty"`

	// loop
	Loop bool `json:"loop,omitempty"`
}

// Status is a server message on the session socket.
type Status struct {
	Type       string  `json:"type"`
	Playing    bool    `json:"playing"`
	PositionMs float64 `json:"position_ms"`
	Notation   string  `json:"notation,omitempty"`
	Tempo      float64 `json:"tempo,omitempty"`
	Error      string  `json:"error,omitempty"`
}

type session struct {
	conn    *websocket.Conn
	sink    *player.WebSocketSink
	engine  *player.Engine
	updater *player.Updater
	log     *slog.Logger

	req player.Request
}

func (s *Server) newSession(conn *websocket.Conn, log *slog.Logger) *session {
	sink := player.NewWebSocketSink(conn)
	engine := player.NewEngine(sink,
		player.WithChunk(s.cfg.Chunk),
		player.WithLogger(log),
		player.WithGains(s.cfg.ClickGain, s.cfg.BackingGain),
	)
	sess := &session{
		conn:    conn,
		sink:    sink,
		engine:  engine,
		updater: player.NewUpdater(engine, s.cfg.Render.Clicks, s.cfg.Debounce),
		log:     log,
		req: player.Request{
			Rhythm:  s.cfg.Rhythm,
			Tempo:   s.cfg.Tempo,
			Options: s.cfg.Options,
		},
	}
	if s.cfg.Backing != nil {
		engine.SetBacking(s.cfg.Backing)
	}
	engine.SetLoop(s.cfg.Loop)
	if len(s.cfg.Rhythm.Measures) > 0 {
		sess.updater.Update(sess.req)
		if err := sess.updater.Flush(); err != nil {
			log.Warn("initial render failed", "error", err)
		}
	}
	return sess
}

// run drives the engine until the client disconnects or ctx is done.
func (sess *session) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engineErr := make(chan error, 1)
	go func() { engineErr <- sess.engine.Run(ctx) }()

	readErr := make(chan error, 1)
	go func() { readErr <- sess.readLoop() }()

	var err error
	select {
	case err = <-readErr:
	case <-ctx.Done():
		err = ctx.Err()
	}
	cancel()
	<-engineErr
	sess.sink.Close()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return err
}

func (sess *session) readLoop() error {
	for {
		typ, msg, err := sess.conn.ReadMessage()
		if err != nil {
			return err
		}
		if typ != websocket.TextMessage {
			continue
		}
		var c Control
		if err := json.Unmarshal(msg, &c); err != nil {
			sess.reply(Status{Type: "error", Error: "bad control message: " + err.Error()})
			continue
		}
		if err := sess.apply(c); err != nil {
			if errors.Is(err, player.ErrClosed) {
				return err
			}
			sess.reply(Status{Type: "error", Error: err.Error()})
		}
	}
}

func (sess *session) apply(c Control) error {
	e := sess.engine
	switch c.Op {
	case "play":
		return e.Play()
	case "pause":
		return e.Pause()
	case "stop":
		return e.Stop()
	case "seek":
		return e.SeekTo(time.Duration(c.Ms * float64(time.Millisecond)))
	case "rhythm":
		req := sess.req
		if c.Notation != "" {
			r, err := rhythm.ParseStrict(c.Notation)
			if err != nil {
				return err
			}
			req.Rhythm = r
		}
		if c.Tempo != 0 {
			req.Tempo = c.Tempo
		}
		if c.LeadInMs != 0 {
			req.Options.LeadInMs = c.LeadInMs
		}
		if err := timeline.CheckTempo(req.Tempo); err != nil {
			return err
		}
		if err := req.Options.Validate(); err != nil {
			return err
		}
		sess.req = req
		sess.updater.Update(req)
		return nil
	case "gain":
		if c.Click != nil {
			e.SetClickGain(*c.Click)
		}
		if c.Backing != nil {
			e.SetBackingGain(*c.Backing)
		}
		return nil
	case "loop":
		return e.SetLoop(c.Loop)
	case "state":
		sess.reply(Status{
			Type:       "state",
			Playing:    e.Playing(),
			PositionMs: float64(e.Position()) / float64(time.Millisecond),
			Notation:   sess.req.Rhythm.String(),
			Tempo:      sess.req.Tempo,
		})
		return nil
	}
	return fmt.Errorf("unknown op %q", c.Op)
}

func (sess *session) reply(st Status) {
	data, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := sess.sink.SendText(data); err != nil {
		sess.log.Debug("reply failed", "error", err)
	}
}
