package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anisan-cli/adplay/adplayer"
	"github.com/anisan-cli/adplay/dai"
	"github.com/anisan-cli/adplay/history"
	"github.com/anisan-cli/adplay/key"
	"github.com/anisan-cli/adplay/lifecycle"
	"github.com/anisan-cli/adplay/log"
	"github.com/anisan-cli/adplay/metrics"
	"github.com/anisan-cli/adplay/player"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().Float64P("start", "s", 0, "Content position to start from, in seconds")
	playCmd.Flags().BoolP("continue", "c", false, "Resume from the saved position of this stream")
	playCmd.MarkFlagsMutuallyExclusive("start", "continue")

	playCmd.Flags().StringP("title", "t", "", "Window title")
	playCmd.Flags().StringToString("header", nil, "HTTP header sent with manifest and media requests (key=value)")

	playCmd.Flags().Bool("preroll", true, "Show the preroll even when starting past it")
	lo.Must0(viper.BindPFlag(key.AdsStartWithPreroll, playCmd.Flags().Lookup("preroll")))

	playCmd.Flags().Duration("timeout", 8*time.Second, "Deadline for loading the manifest")
	lo.Must0(viper.BindPFlag(key.AdsRequestTimeout, playCmd.Flags().Lookup("timeout")))

	playCmd.Flags().Int("retries", 5, "Timed out manifest requests to retry before playing without ads")
	lo.Must0(viper.BindPFlag(key.AdsRetryLimit, playCmd.Flags().Lookup("retries")))

	playCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while playing")
	lo.Must0(viper.BindPFlag(key.MetricsAddr, playCmd.Flags().Lookup("metrics-addr")))
}

var playCmd = &cobra.Command{
	Use:     "play <manifest>",
	Short:   "Play a stitched HLS stream with its ad breaks",
	Long:    "Play a stitched HLS media playlist in mpv. Ad breaks are read from its SCTE-35 cues, seeking past an unwatched break plays it first.",
	Example: "  adplay play https://cdn.example.com/live/stitched.m3u8 --start 600",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		CheckDependencies()

		source := args[0]
		start := lo.Must(cmd.Flags().GetFloat64("start"))

		if lo.Must(cmd.Flags().GetBool("continue")) {
			saved, err := history.Get(source)
			handleErr(err)
			start = saved.OrElse(0)
		}

		cfg := player.MediaConfig{
			Source:    source,
			Title:     lo.Must(cmd.Flags().GetString("title")),
			StartTime: start,
			Headers:   lo.Must(cmd.Flags().GetStringToString("header")),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		handleErr(play(ctx, cfg))
	},
}

func play(ctx context.Context, cfg player.MediaConfig) error {
	if addr := viper.GetString(key.MetricsAddr); addr != "" {
		go serveMetrics(ctx, addr)
	}

	notifier := lifecycle.NewNotifier()
	go lifecycle.WatchSignals(ctx, notifier)

	engine := player.NewMPV()
	adsCfg := dai.ConfigFromViper(cfg.Source)
	adsCfg.Headers = cfg.Headers
	plugin := dai.New(adsCfg)

	observer := newSessionObserver()
	opts := adplayer.OptionsFromConfig()
	opts.Observer = observer
	opts.Lifecycle = notifier

	p := adplayer.NewDAI(engine, plugin, opts)
	defer func() {
		if err := p.Destroy(); err != nil {
			log.Warnf("destroy: %v", err)
		}
	}()

	if err := p.Prepare(cfg); err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	if err := p.Play(); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	// The engine process exists once the stream has started.
	select {
	case <-ctx.Done():
		return nil
	case err := <-observer.errs:
		return err
	case <-observer.started:
	}

	finished := make(chan struct{}, 1)
	listener := player.NewEventListener(engine.Socket(), func(c player.PropertyChange) {
		switch c.Name {
		case player.PropertyTimePos:
			if t, ok := c.Float(); ok {
				plugin.Observe(t)
			}
		case player.PropertyEOFReached:
			if eof, ok := c.Bool(); ok && eof {
				select {
				case finished <- struct{}{}:
				default:
				}
			}
		}
	})
	if err := listener.Start(); err != nil {
		return fmt.Errorf("listen to engine events: %w", err)
	}
	defer listener.Stop()

	// Engine errors after the start are logged by the observer and do not end playback.
	select {
	case <-ctx.Done():
	case <-finished:
	case <-engine.Exited():
	}

	if viper.GetBool(key.HistorySaveOnExit) {
		position, duration := p.CurrentPosition(), p.Duration()
		if saveErr := history.Save(cfg.Source, position, duration); saveErr != nil {
			log.Warnf("save history: %v", saveErr)
		} else {
			log.Infof("saved position %.1fs of %s", position, cfg.Source)
		}
	}

	return nil
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Infof("serving metrics on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("metrics server: %v", err)
	}
}
