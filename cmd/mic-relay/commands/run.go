package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petems/mic-relay/internal/app"
	"github.com/petems/mic-relay/internal/audio"
	"github.com/petems/mic-relay/internal/codec"
	"github.com/petems/mic-relay/internal/config"
	"github.com/petems/mic-relay/internal/discord"
	"github.com/petems/mic-relay/internal/logging"
	"github.com/petems/mic-relay/internal/permissions"
	"github.com/petems/mic-relay/internal/tray"
)

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logging.NewWithLevel(cfg.LogLevel)

	// Missing credentials are a diagnostic, not a crash.
	var missing *config.MissingError
	if err := cfg.Validate(); errors.As(err, &missing) {
		log.Error().Strs("missing", missing.Fields).Msg("Configuration incomplete, not connecting")
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\nSet them in %s, a .env file or the environment.\n", err, config.Path())
		return nil
	}

	// macOS delivers silence from every device until capture is approved
	if err := permissions.EnsurePermissions(); err != nil {
		return err
	}

	backend, err := audio.NewPortAudio()
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer backend.Close()

	catalog := audio.NewCatalog(backend, log)
	logDevices(log, catalog.Refresh())

	transport, err := discord.New(discord.Config{
		Token: cfg.Discord.Token,
		Opus: codec.Config{
			Bitrate:     cfg.Opus.Bitrate,
			Application: cfg.Opus.Application,
		},
		Logger: log,
	})
	if err != nil {
		return err
	}

	appCfg := app.Config{
		Transport: transport,
		Catalog:   catalog,
		Open: func(dev audio.Device) (audio.FrameSource, error) {
			src, err := audio.Open(backend, dev, audio.DefaultStreamParams(), log)
			if err != nil {
				return nil, err
			}
			return src, nil
		},
		Config: cfg,
		Logger: log,
	}

	var trayUI *tray.UI
	if cfg.Tray {
		trayUI = tray.New(nil, cfg, version, commit, log) // App reference set below
		appCfg.StatusUpdater = trayUI
	}

	application := app.New(appCfg)

	// Interrupts take the same cleanup path as !close
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", version).Msg("mic-relay starting...")

	if trayUI == nil {
		return application.Run(ctx)
	}

	trayUI.SetApp(application)
	errc := make(chan error, 1)
	go func() {
		errc <- application.Run(ctx)
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Tray error")
	}
	if err := application.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("Cleanup finished with errors")
	}
	return <-errc
}
