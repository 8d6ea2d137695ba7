// Package relay streams the active capture device into a voice connection
// and swaps the device while the stream is live.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/petems/mic-relay/internal/audio"
	"github.com/petems/mic-relay/internal/voice"
)

var (
	ErrConnect        = errors.New("cannot connect to voice channel")
	ErrNoDevices      = errors.New("no input devices")
	ErrInvalidIndex   = errors.New("invalid index")
	ErrNotConnected   = errors.New("no active voice connection")
	ErrNotStreaming   = errors.New("session is not streaming")
	ErrAlreadyStarted = errors.New("session already started")
	ErrStreamLost     = errors.New("stream lost during device change")
)

// OpenFunc opens a frame source for a catalog device.
type OpenFunc func(dev audio.Device) (audio.FrameSource, error)

// Config wires a Session to its collaborators.
type Config struct {
	Transport voice.Transport
	Catalog   *audio.Catalog
	Open      OpenFunc
	ChannelID string
	// PreferredDevice is opened on start instead of the default when the
	// catalog has a device with this name.
	PreferredDevice string
	Logger          zerolog.Logger
	// OnStateChange is optional and called after every transition.
	OnStateChange func(State)
}

// Session owns the voice connection and the active frame source.
type Session struct {
	transport voice.Transport
	catalog   *audio.Catalog
	open      OpenFunc
	channelID string
	preferred string
	log       zerolog.Logger
	onState   func(State)

	state atomic.Int32
	slot  slot

	// mu serializes Start, Swap and Stop. Frame pulls never take it.
	mu     sync.Mutex
	conn   voice.Connection
	active audio.Device
}

func New(cfg Config) *Session {
	return &Session{
		transport: cfg.Transport,
		catalog:   cfg.Catalog,
		open:      cfg.Open,
		channelID: cfg.ChannelID,
		preferred: cfg.PreferredDevice,
		log:       cfg.Logger.With().Str("component", "relay").Logger(),
		onState:   cfg.OnStateChange,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev == st {
		return
	}
	s.log.Debug().Stringer("from", prev).Stringer("to", st).Msg("State changed")
	if s.onState != nil {
		s.onState(st)
	}
}

// ActiveDevice returns the device backing the stream, if any.
func (s *Session) ActiveDevice() (audio.Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.slot.load() != nil
}

// ReadFrame pulls one frame from whichever source is installed.
func (s *Session) ReadFrame() []byte {
	return s.slot.ReadFrame()
}

// Start connects to the voice channel, opens the current device and begins
// streaming. The session is Streaming as soon as the connection accepts the
// source; frames are pushed asynchronously after that. On failure everything
// acquired is released and the session ends in Stopped.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != Idle {
		return ErrAlreadyStarted
	}
	s.setState(Starting)

	conn, err := s.transport.Connect(ctx, s.channelID)
	if err != nil {
		s.setState(Stopped)
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	s.conn = conn

	dev, err := s.startDevice()
	if err != nil {
		s.abortStartLocked()
		return err
	}

	src, err := s.open(dev)
	if err != nil {
		s.abortStartLocked()
		return fmt.Errorf("failed to open device %d: %w", dev.Index, err)
	}

	s.slot.swap(src)
	if err := conn.Play(&s.slot); err != nil {
		s.abortStartLocked()
		return fmt.Errorf("failed to start playback: %w", err)
	}

	s.active = dev
	s.catalog.SetCurrent(dev.Index)
	s.setState(Streaming)
	s.log.Info().Int("index", dev.Index).Str("device", dev.Name).Msg("Relay started")
	return nil
}

// startDevice picks the device to open on start: the preferred device by
// name, then the catalog's current index, then the default.
func (s *Session) startDevice() (audio.Device, error) {
	snap := s.catalog.Refresh()
	if snap.Len() == 0 {
		return audio.Device{}, ErrNoDevices
	}

	if s.preferred != "" {
		if dev, ok := s.catalog.Find(s.preferred); ok {
			return dev, nil
		}
		s.log.Warn().Str("device", s.preferred).Msg("Preferred device not found, using default")
	}

	index := snap.Current
	if index == 0 {
		index = snap.Default
	}
	dev, err := s.catalog.Describe(index)
	if err != nil {
		return audio.Device{}, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	return dev, nil
}

func (s *Session) abortStartLocked() {
	if err := s.releaseLocked(); err != nil {
		s.log.Warn().Err(err).Msg("Cleanup after failed start")
	}
	s.setState(Stopped)
}

// Swap replaces the active source with the device at index in a freshly
// refreshed catalog. The new device is fully opened before the stream is
// touched; on any failure the existing stream continues unchanged. If the
// previous source cannot be resumed either, the session is released and
// ErrStreamLost is returned.
func (s *Session) Swap(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.State() != Streaming {
		return ErrNotStreaming
	}

	s.catalog.Refresh()
	dev, err := s.catalog.Describe(index)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	if s.conn == nil || !s.conn.IsConnected() {
		return ErrNotConnected
	}

	s.setState(SwappingSource)

	src, err := s.open(dev)
	if err != nil {
		s.setState(Streaming)
		return fmt.Errorf("failed to open device %d: %w", index, err)
	}

	if s.conn.IsPlaying() {
		s.conn.Stop()
	}
	old := s.slot.swap(src)
	if err := s.conn.Play(&s.slot); err != nil {
		s.slot.swap(old)
		if cerr := src.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("Failed to close replacement source")
		}
		if rerr := s.conn.Play(&s.slot); rerr != nil {
			s.log.Error().Err(rerr).Msg("Failed to resume previous source, stopping relay")
			s.setState(Stopping)
			if cerr := s.releaseLocked(); cerr != nil {
				s.log.Warn().Err(cerr).Msg("Cleanup after lost stream")
			}
			s.setState(Stopped)
			return fmt.Errorf("%w: %w", ErrStreamLost, rerr)
		}
		s.setState(Streaming)
		return fmt.Errorf("failed to play device %d: %w", index, err)
	}

	if old != nil {
		if err := old.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close previous source")
		}
	}

	s.active = dev
	s.catalog.SetCurrent(index)
	s.setState(Streaming)
	s.log.Info().Int("index", index).Str("device", dev.Name).Msg("Switched microphone")
	return nil
}

// Stop stops streaming, disconnects and closes the source. Every step is
// attempted; failures are joined into the returned error. Calling Stop again
// is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == Stopped {
		return nil
	}
	s.setState(Stopping)
	err := s.releaseLocked()
	s.setState(Stopped)
	return err
}

func (s *Session) releaseLocked() error {
	var errs []error

	if s.conn != nil {
		if s.conn.IsPlaying() {
			s.conn.Stop()
		}
		if err := s.conn.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("disconnect: %w", err))
		}
		s.conn = nil
	}

	if src := s.slot.swap(nil); src != nil {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source: %w", err))
		}
	}
	s.active = audio.Device{}

	return errors.Join(errs...)
}
