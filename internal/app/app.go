package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/mic-relay/internal/audio"
	"github.com/petems/mic-relay/internal/command"
	"github.com/petems/mic-relay/internal/config"
	"github.com/petems/mic-relay/internal/relay"
	"github.com/petems/mic-relay/internal/voice"
)

// startTimeout bounds joining the voice channel and opening the first device.
const startTimeout = 30 * time.Second

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetState(relay.State)
}

type Config struct {
	Transport     voice.Transport
	Catalog       *audio.Catalog
	Open          relay.OpenFunc
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

// App drives the relay from transport events and owns shutdown.
type App struct {
	transport  voice.Transport
	catalog    *audio.Catalog
	session    *relay.Session
	dispatcher *command.Dispatcher
	cfg        *config.Config
	log        zerolog.Logger
	status     StatusUpdater

	ctx    context.Context
	cancel context.CancelFunc

	startOnce    sync.Once
	shutdownOnce sync.Once
	shutdownErr  error
	done         chan struct{}

	mu  sync.Mutex
	err error
}

func New(cfg Config) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		transport: cfg.Transport,
		catalog:   cfg.Catalog,
		cfg:       cfg.Config,
		log:       cfg.Logger,
		status:    cfg.StatusUpdater,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	a.session = relay.New(relay.Config{
		Transport:       cfg.Transport,
		Catalog:         cfg.Catalog,
		Open:            cfg.Open,
		ChannelID:       cfg.Config.Discord.VoiceChannelID,
		PreferredDevice: cfg.Config.Audio.Device,
		Logger:          cfg.Logger,
		OnStateChange:   a.onStateChange,
	})
	a.dispatcher = command.NewDispatcher(command.Config{
		Catalog: cfg.Catalog,
		Session: a.session,
		Shutdown: func() {
			if err := a.Shutdown(); err != nil {
				a.log.Warn().Err(err).Msg("Cleanup finished with errors")
			}
		},
		Logger: cfg.Logger,
	})
	return a
}

func (a *App) onStateChange(s relay.State) {
	if a.status != nil {
		a.status.SetState(s)
	}
}

// Run validates the configuration, opens the transport and blocks until the
// app shuts down or ctx is cancelled. A missing setting is reported before
// any connection is attempted.
func (a *App) Run(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	err := a.transport.Open(voice.Handlers{
		Ready:   a.OnReady,
		Message: a.OnMessage,
	})
	if err != nil {
		a.setErr(fmt.Errorf("%w: %w", relay.ErrConnect, err))
		if err := a.Shutdown(); err != nil {
			a.log.Warn().Err(err).Msg("Cleanup finished with errors")
		}
		return a.Err()
	}

	select {
	case <-ctx.Done():
		a.log.Info().Msg("Stopping...")
		if err := a.Shutdown(); err != nil {
			a.log.Warn().Err(err).Msg("Cleanup finished with errors")
		}
	case <-a.done:
	}

	return a.Err()
}

// OnReady sends the ready notification and starts the relay. Only the first
// call has any effect; later ready events come from gateway reconnects.
func (a *App) OnReady() {
	a.startOnce.Do(func() {
		if a.ctx.Err() != nil {
			return
		}
		if msg := a.cfg.NotifyMessage; msg != "" {
			if err := a.transport.Send(a.cfg.Discord.ControlChannelID, msg); err != nil {
				a.log.Warn().Err(err).Msg("Failed to send ready notification")
			}
		}

		ctx, cancel := context.WithTimeout(a.ctx, startTimeout)
		defer cancel()

		if err := a.session.Start(ctx); err != nil {
			// Shutdown got there first; not a start failure.
			if a.ctx.Err() != nil || errors.Is(err, relay.ErrAlreadyStarted) {
				a.log.Info().Err(err).Msg("Relay start abandoned during shutdown")
				return
			}
			a.log.Error().Err(err).Msg("Error starting relay")
			a.setErr(err)
			if err := a.Shutdown(); err != nil {
				a.log.Warn().Err(err).Msg("Cleanup finished with errors")
			}
			return
		}
		a.log.Info().Msg("Microphone relay started")
	})
}

// OnMessage dispatches control-channel messages from human authors.
func (a *App) OnMessage(msg voice.Message) {
	if msg.FromBot || msg.ChannelID != a.cfg.Discord.ControlChannelID {
		return
	}
	select {
	case <-a.done:
		return
	default:
	}

	a.log.Debug().Str("author", msg.AuthorID).Str("text", msg.Content).Msg("Control message")

	reply, ok := a.dispatcher.Handle(a.ctx, msg.Content)
	if !ok {
		return
	}
	if err := a.transport.Send(msg.ChannelID, reply); err != nil {
		a.log.Warn().Err(err).Msg("Failed to send reply")
	}
}

// Execute runs a command as if it arrived on the control channel.
func (a *App) Execute(text string) (string, bool) {
	return a.dispatcher.Handle(a.ctx, text)
}

// Shutdown stops the relay, disconnects and releases the transport. Every
// step is attempted; it is safe to call any number of times and from any
// goroutine. All callers block until cleanup has finished.
func (a *App) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.log.Info().Msg("Cleaning up...")
		a.cancel()

		var errs []error
		if err := a.session.Stop(); err != nil {
			errs = append(errs, err)
		}
		if err := a.transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close transport: %w", err))
		}
		a.shutdownErr = errors.Join(errs...)
		close(a.done)
	})
	return a.shutdownErr
}

// Done is closed once Shutdown has completed.
func (a *App) Done() <-chan struct{} {
	return a.done
}

// Err returns the error that ended the app, if any.
func (a *App) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *App) setErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err == nil {
		a.err = err
	}
}

func (a *App) State() relay.State {
	return a.session.State()
}

// ListDevices refreshes and returns the device catalog.
func (a *App) ListDevices() audio.Snapshot {
	return a.catalog.Refresh()
}

// CurrentDevice returns the catalog index backing the stream, 0 if none.
func (a *App) CurrentDevice() int {
	return a.catalog.Current()
}
