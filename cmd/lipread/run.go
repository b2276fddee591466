package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ayusman/lipread/internal/app"
	"github.com/ayusman/lipread/internal/capture"
	"github.com/ayusman/lipread/internal/config"
	"github.com/ayusman/lipread/internal/detector"
	"github.com/ayusman/lipread/internal/reader"
	"github.com/ayusman/lipread/internal/server"
	"github.com/ayusman/lipread/internal/tray"
)

func newRunCmd() *cobra.Command {
	var (
		noCamera bool
		withTray bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the camera pipeline and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("tray") {
				cfg.Tray.Enabled = withTray
			}
			return run(cmd.Context(), cfg, !noCamera)
		},
	}

	cmd.Flags().BoolVar(&noCamera, "no-camera", false, "serve the API without starting the camera")
	cmd.Flags().BoolVar(&withTray, "tray", false, "show the menu bar icon (overrides tray.enabled)")

	return cmd
}

func run(parent context.Context, cfg *config.Config, withCamera bool) error {
	logger := newLogger(cfg)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	patterns := openPatterns(cfg, afero.NewOsFs(), st, logger)

	application := app.New(app.Config{
		Patterns: patterns,
		Store:    st,
		Camera: capture.Config{
			DeviceID: cfg.Camera.DeviceID,
			FPS:      cfg.Camera.FPS,
			Width:    capture.DefaultWidth,
			Height:   capture.DefaultHeight,
		},
		Detector: detector.Config{
			MaxFaces:        cfg.Detector.MaxFaces,
			MinConfidence:   cfg.Detector.MinConfidence,
			MinTrackingConf: cfg.Detector.MinTrackingConfidence,
		},
		PluginDir:       cfg.Plugins.Dir,
		PluginTimeoutMs: cfg.Plugins.TimeoutMs,
		Classifier: reader.Config{
			Threshold: cfg.Classifier.Threshold,
			Cooldown:  cfg.Classifier.Cooldown,
		},
		Window:        cfg.Window,
		TargetSamples: cfg.Training.TargetSamples,
		Logger:        logger,
	})

	if err := application.DiscoverPlugins(); err != nil {
		logger.Warn().Err(err).Msg("plugin discovery failed")
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		logger.Info().Str("dir", staticDir).Msg("serving static files")
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		App:       application,
		Logger:    logger,
	})

	if withCamera {
		application.SetEnabled(true)
		if err := application.Start(ctx); err != nil {
			return err
		}
		defer application.Stop()
	}

	logger.Info().
		Strs("vocabulary", cfg.Vocabulary).
		Str("backend", cfg.Store.Backend).
		Str("addr", cfg.Server.Addr).
		Msg("lipread running")

	if !cfg.Tray.Enabled {
		if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	// The tray owns the main thread, so the server runs beside it.
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, cfg.Server.Addr)
	}()

	t := newTray(application, cfg, logger, stop)
	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()

	stop()
	return <-errCh
}

// newTray builds a menu bar icon kept in sync with the application.
func newTray(a *app.App, cfg *config.Config, logger zerolog.Logger, quit context.CancelFunc) *tray.Tray {
	progress := a.Progress()
	words := make([]tray.WordStatus, len(progress))
	for i, p := range progress {
		words[i] = tray.WordStatus{Word: p.Word, Samples: p.Samples, Target: p.Target}
	}

	t := tray.New(words, a.IsEnabled())
	t.OnToggle(a.SetEnabled)
	t.OnTrain(a.ArmTraining)
	t.OnQuit(quit)
	t.OnSettings(func() {
		openBrowser(settingsURL(cfg.Server.Addr), logger)
	})

	a.Subscribe(func(e app.Event) {
		switch e.Kind {
		case app.EventPrediction:
			t.SetLastWord(e.Word)
		case app.EventTrained:
			t.SetProgress(tray.WordStatus{Word: e.Word, Samples: e.Samples, Target: cfg.Training.TargetSamples})
		}
	})

	return t
}

// settingsURL turns a listen address into a browsable URL.
func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// openBrowser opens url with the platform's default handler.
func openBrowser(url string, logger zerolog.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logger.Warn().Err(err).Str("url", url).Msg("failed to open browser")
	}
}
