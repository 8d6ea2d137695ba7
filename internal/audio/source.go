package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// OpenError reports a device that could not be opened for capture.
type OpenError struct {
	Device string
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %q: %v", e.Device, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Source is a FrameSource backed by one open capture stream.
type Source struct {
	channels int
	log      zerolog.Logger
	faults   zerolog.Logger

	mu     sync.Mutex
	stream InputStream
	buf    []int16
	out    []byte
	closed bool
}

// Open opens dev for capture and starts the stream. The channel count is
// clamped to what the device supports.
func Open(backend Backend, dev Device, params StreamParams, log zerolog.Logger) (*Source, error) {
	channels := min(params.Channels, dev.MaxInputChannels)
	if channels < 1 {
		return nil, &OpenError{Device: dev.Name, Err: ErrNoInputChannels}
	}
	params.Channels = channels

	buf := make([]int16, params.FrameSize*channels)
	stream, err := backend.OpenInput(dev.host, params, buf)
	if err != nil {
		return nil, &OpenError{Device: dev.Name, Err: err}
	}

	if err := stream.Start(); err != nil {
		if cerr := stream.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("device", dev.Name).Msg("Failed to close stream after start error")
		}
		return nil, &OpenError{Device: dev.Name, Err: fmt.Errorf("failed to start audio stream: %w", err)}
	}

	log = log.With().Str("component", "source").Int("index", dev.Index).Str("device", dev.Name).Logger()
	log.Info().Int("channels", channels).Float64("rate", params.SampleRate).Msg("Opened capture device")

	return &Source{
		channels: channels,
		log:      log,
		faults:   log.Sample(&zerolog.BurstSampler{Burst: 1, Period: time.Second}),
		stream:   stream,
		buf:      buf,
		out:      make([]byte, 0, len(buf)*2),
	}, nil
}

// Channels returns the number of interleaved channels in each frame.
func (s *Source) Channels() int {
	return s.channels
}

// ReadFrame blocks for one frame from the device. Read faults and reads after
// Close yield silence of the exact frame length.
func (s *Source) ReadFrame() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Silence(s.channels)
	}

	if err := s.stream.Read(); err != nil {
		if !errors.Is(err, ErrInputOverflowed) {
			s.faults.Warn().Err(err).Msg("Error reading audio, sending silence")
			return Silence(s.channels)
		}
		s.faults.Warn().Msg("Audio buffer overflow")
	}

	s.out = leS16SliceToBytes(s.buf, s.out[:0])
	frame := make([]byte, len(s.out))
	copy(frame, s.out)
	return frame
}

// Close stops and closes the stream. Errors are logged, not returned.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.stream.Stop(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to stop capture stream")
	}
	if err := s.stream.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close capture stream")
	}
	s.log.Info().Msg("Closed capture device")
	return nil
}
