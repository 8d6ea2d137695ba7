package audio

import "errors"

// Capture format shared by every frame source and the outbound stream.
const (
	SampleRate = 48000 // Hz
	Channels   = 2     // maximum channels captured, interleaved
	FrameSize  = 960   // samples per channel per frame (20 ms)
)

var (
	// ErrNoInputChannels is returned when a device cannot capture at least one channel.
	ErrNoInputChannels = errors.New("device has no input channels")
	// ErrDeviceNotFound is returned for a logical index outside the current snapshot.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrInputOverflowed is reported by an InputStream whose read lost samples.
	// The buffer still holds valid audio.
	ErrInputOverflowed = errors.New("input overflowed")
)

// FrameSource produces fixed-size PCM frames for the outbound stream.
type FrameSource interface {
	// ReadFrame returns one frame of interleaved signed 16-bit little-endian
	// samples. It never fails: on a capture fault it returns silence of the
	// same length.
	ReadFrame() []byte
	// Close stops and releases the source. It is safe to call more than once.
	Close() error
}

// Backend is the host audio subsystem.
type Backend interface {
	Devices() ([]HostDevice, error)
	OpenInput(dev HostDevice, params StreamParams, buf []int16) (InputStream, error)
	Close() error
}

// InputStream is a blocking capture stream bound to the buffer it was opened with.
type InputStream interface {
	Start() error
	Read() error
	Stop() error
	Close() error
}

// HostDevice is a device as reported by the backend.
type HostDevice struct {
	Name             string
	MaxInputChannels int
	Default          bool

	handle any
}

// StreamParams describes a capture stream.
type StreamParams struct {
	SampleRate float64
	Channels   int
	FrameSize  int
}

// DefaultStreamParams returns the capture format used for relaying.
func DefaultStreamParams() StreamParams {
	return StreamParams{
		SampleRate: SampleRate,
		Channels:   Channels,
		FrameSize:  FrameSize,
	}
}

// FrameBytes is the byte length of one frame with the given channel count.
func FrameBytes(channels int) int {
	return FrameSize * channels * 2
}

// Silence returns a zero-filled frame for the given channel count.
func Silence(channels int) []byte {
	return make([]byte, FrameBytes(channels))
}
