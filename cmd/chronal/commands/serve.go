package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/backing"
	"github.com/cognitivitydev/Chronal-sub002/pkg/server"
)

var serveFlags playbackFlags

var serveCmd = &cobra.Command{
	Use:   "serve [notation|-]",
	Short: "Serve live metronome sessions over WebSocket",
	Long: `Serve live metronome sessions.

Every WebSocket client on /ws gets its own playback engine streaming 48 kHz
mono float32 frames. Clients send JSON control messages:

  {"op":"play"}  {"op":"pause"}  {"op":"stop"}  {"op":"seek","ms":1500}
  {"op":"rhythm","notation":"{3/4}Q;q;q;","tempo":90}
  {"op":"gain","click":0.8,"backing":0.5}  {"op":"loop","loop":true}
  {"op":"state"}

GET /api/render?notation=...&tempo=... returns a WAV render.

Examples:
  chronal serve --addr :8080
  chronal serve --preset groove --backing song.mp3 --loop`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		f := &serveFlags

		job := jobDefaults(cfg)
		if len(args) > 0 || f.preset != "" {
			if job, err = resolveJob(cmd, args, f, cfg); err != nil {
				return err
			}
		} else if cmd.Flags().Changed("tempo") {
			job.Tempo = f.tempo
			if err := job.Validate(); err != nil {
				return err
			}
		}

		svc, err := newRenderService(cfg, f)
		if err != nil {
			return err
		}
		if !f.noCache {
			if cache, err := cfg.OpenRenders(); err == nil {
				svc.Cache = cache
			}
		}

		scfg := server.Config{
			Render:      svc,
			Rhythm:      job.Rhythm,
			Tempo:       job.Tempo,
			Options:     job.Options,
			Chunk:       time.Duration(cfg.ChunkMs) * time.Millisecond,
			ClickGain:   cfg.ClickGain,
			BackingGain: cfg.BackingGain,
			Loop:        f.loop,
			Debounce:    time.Duration(f.debounce) * time.Millisecond,
		}
		if f.backing != "" {
			track, err := backing.Open(f.backing, cfg.Quality())
			if err != nil {
				return err
			}
			scfg.Backing = track.Samples
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New(scfg).ListenAndServe(ctx, f.addr)
	},
}

func init() {
	addPlaybackFlags(serveCmd, &serveFlags)
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "127.0.0.1:8080", "listen address")
	serveCmd.Flags().BoolVar(&serveFlags.loop, "loop", false, "loop playback")
	serveCmd.Flags().BoolVar(&serveFlags.noCache, "no-cache", false, "skip the render cache for /api/render")
	serveCmd.Flags().IntVar(&serveFlags.debounce, "debounce-ms", 150, "wait for rhythm edits to settle before re-rendering")
	rootCmd.AddCommand(serveCmd)
}
