package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/backing"
	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/click"
	"github.com/cognitivitydev/Chronal-sub002/pkg/cli"
	"github.com/cognitivitydev/Chronal-sub002/pkg/preset"
	"github.com/cognitivitydev/Chronal-sub002/pkg/render"
	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
	"github.com/cognitivitydev/Chronal-sub002/pkg/timeline"
)

// playbackFlags are shared by render and serve.
type playbackFlags struct {
	preset   string
	pattern  string
	tempo    float64
	leadIn   float64
	repeat   int
	maxMs    float64
	backing  string
	click    string
	accent   string
	noCache  bool
	loop     bool
	outFile  string
	addr     string
	debounce int
}

var renderFlags playbackFlags

var renderCmd = &cobra.Command{
	Use:   "render [notation|-]",
	Short: "Render a click track to a WAV file",
	Long: `Render a rhythm as a 48 kHz mono 16-bit WAV click track.

The rhythm comes from the argument, from --preset, or from --pattern for a
plain metronome (beats per bar x bars). Tempo and lead-in come from flags,
then the preset, then the config file. Click-only renders are
cached in the render store (local directory or S3) and reused.

Examples:
  chronal render "{4/4}Q;q;q;q;" -f click.wav
  chronal render --preset groove --repeat 8 -f groove.wav
  chronal render --pattern 4x8 -t 96 -f count-in.wav
  chronal render "{4/4}Q;q;q;q;" --backing song.mp3 --lead-in 350 -f mix.wav
  chronal render "{4/4}Q;q;q;q;" -f - > click.wav`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		f := &renderFlags
		if f.outFile == "" {
			return errors.New("output file is required (-f path, or -f - for stdout)")
		}
		job, err := resolveJob(cmd, args, f, cfg)
		if err != nil {
			return err
		}
		if f.backing != "" {
			track, err := backing.Open(f.backing, cfg.Quality())
			if err != nil {
				return err
			}
			job.Backing = track.Samples
			job.BackingGain = cfg.BackingGain
		}

		svc, err := newRenderService(cfg, f)
		if err != nil {
			return err
		}
		if !f.noCache && job.Backing == nil {
			cache, err := cfg.OpenRenders()
			if err != nil {
				slog.Warn("render cache unavailable", "error", err)
			} else {
				svc.Cache = cache
			}
		}

		res, err := svc.WAV(cmd.Context(), job)
		if err != nil {
			return err
		}
		if f.outFile == "-" {
			_, err = cmd.OutOrStdout().Write(res.WAV)
			return err
		}
		if err := os.WriteFile(f.outFile, res.WAV, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.outFile, err)
		}
		if res.Events != nil {
			slog.Info("rendered", "file", f.outFile, "timeline", render.Describe(res.Events), "cached", res.Cached)
		} else {
			slog.Info("rendered", "file", f.outFile, "samples", res.Samples, "cached", res.Cached)
		}
		ms := float64(res.Samples) * 1000 / float64(svc.Clicks.Format.SampleRate())
		cli.PrintSuccess(cmd.ErrOrStderr(), "wrote %s (%s)", f.outFile, cli.FormatDuration(ms))
		return nil
	},
}

// resolveJob builds a render job from the notation argument or preset,
// applying flag, preset and config precedence.
func resolveJob(cmd *cobra.Command, args []string, f *playbackFlags, cfg *cli.Config) (render.Job, error) {
	job := jobDefaults(cfg)
	sources := 0
	for _, set := range []bool{f.preset != "", f.pattern != "", len(args) > 0} {
		if set {
			sources++
		}
	}
	switch {
	case sources > 1:
		return job, errors.New("pass only one of a notation, --preset or --pattern")
	case f.preset != "":
		p, err := findPreset(cmd.Context(), f.preset)
		if err != nil {
			return job, err
		}
		r, err := p.Rhythm()
		if err != nil {
			return job, err
		}
		job.Rhythm = r
		job.Tempo = p.Tempo
		if p.LeadInMs > 0 {
			job.Options.LeadInMs = p.LeadInMs
		}
	case len(args) == 1:
		r, err := parseNotation(cmd, args[0])
		if err != nil {
			return job, err
		}
		job.Rhythm = r
	case f.pattern == "":
		return job, errors.New("a notation argument, --preset or --pattern is required")
	}

	flags := cmd.Flags()
	if flags.Changed("tempo") {
		job.Tempo = f.tempo
	}
	if flags.Changed("lead-in") {
		job.Options.LeadInMs = f.leadIn
	}
	if flags.Changed("max-ms") {
		job.Options.MaxEndMs = f.maxMs
	}
	job.Options.Repeat = f.repeat
	if f.pattern != "" {
		p, err := timeline.ParsePattern(f.pattern, job.Tempo)
		if err != nil {
			return job, err
		}
		job.Pattern = &p
	} else if err := rhythm.Validate(job.Rhythm); err != nil {
		slog.Warn("rendering an unbalanced rhythm", "error", err)
	}
	return job, job.Validate()
}

// jobDefaults returns a job without a rhythm carrying the config defaults.
func jobDefaults(cfg *cli.Config) render.Job {
	return render.Job{
		Tempo:     cfg.Tempo,
		ClickGain: cfg.ClickGain,
		Options: timeline.Options{
			LeadInMs: cfg.LeadInMs,
			MaxEndMs: cfg.MaxDurationMs,
		},
	}
}

func findPreset(ctx context.Context, ref string) (*preset.Preset, error) {
	store, closeFn, err := openPresets()
	if err != nil {
		return nil, err
	}
	defer closeFn()
	p, err := preset.Find(ctx, store, ref)
	if err != nil {
		return nil, fmt.Errorf("preset %q: %w", ref, err)
	}
	return p, nil
}

// newRenderService loads custom clicks from flags or config.
func newRenderService(cfg *cli.Config, f *playbackFlags) (*render.Service, error) {
	svc := render.NewService()
	clickPath, accentPath := cfg.Click, cfg.AccentClick
	if f.click != "" {
		clickPath = f.click
	}
	if f.accent != "" {
		accentPath = f.accent
	}
	if clickPath == "" && accentPath == "" {
		return svc, nil
	}
	var clickSamples, accentSamples []float32
	var err error
	if clickPath != "" {
		if clickSamples, err = click.Load(clickPath, cfg.Quality()); err != nil {
			return nil, fmt.Errorf("click: %w", err)
		}
	}
	if accentPath != "" {
		if accentSamples, err = click.Load(accentPath, cfg.Quality()); err != nil {
			return nil, fmt.Errorf("accent click: %w", err)
		}
	}
	svc.Clicks = click.NewRenderer(clickSamples, accentSamples)
	svc.Voice = render.VoiceID(svc.Clicks.Click, svc.Clicks.Accent)
	slog.Debug("click voice", "click", clickPath, "accent", accentPath, "voice", svc.Voice)
	return svc, nil
}

func addPlaybackFlags(cmd *cobra.Command, f *playbackFlags) {
	flags := cmd.Flags()
	flags.StringVarP(&f.preset, "preset", "p", "", "use a saved preset (ID or name)")
	flags.Float64VarP(&f.tempo, "tempo", "t", 120, "tempo in beats per minute")
	flags.Float64Var(&f.leadIn, "lead-in", 0, "silence before the first click, in ms")
	flags.Float64Var(&f.maxMs, "max-ms", 0, "clamp the timeline to this many ms")
	flags.StringVar(&f.backing, "backing", "", "backing track (mp3 or wav)")
	flags.StringVar(&f.click, "click", "", "WAV file for unaccented clicks")
	flags.StringVar(&f.accent, "accent", "", "WAV file for accented clicks")
}

func init() {
	addPlaybackFlags(renderCmd, &renderFlags)
	renderCmd.Flags().StringVar(&renderFlags.pattern, "pattern", "", "render a plain metronome, e.g. 4x8 for eight bars of four")
	renderCmd.Flags().IntVar(&renderFlags.repeat, "repeat", 1, "play the rhythm this many times")
	renderCmd.Flags().BoolVar(&renderFlags.noCache, "no-cache", false, "skip the render cache")
	renderCmd.Flags().StringVarP(&renderFlags.outFile, "file", "f", "", "output WAV file, - for stdout")
	rootCmd.AddCommand(renderCmd)
}
