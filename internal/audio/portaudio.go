package audio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudio is a Backend on top of the PortAudio host library.
type PortAudio struct{}

// NewPortAudio initializes PortAudio. Close must be called to terminate it.
func NewPortAudio() (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &PortAudio{}, nil
}

func (p *PortAudio) Devices() ([]HostDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	// A host without any input device reports an error here; that only
	// means nothing is marked default.
	defaultDevice, _ := portaudio.DefaultInputDevice()

	result := make([]HostDevice, 0, len(devices))
	for _, d := range devices {
		result = append(result, HostDevice{
			Name:             d.Name,
			MaxInputChannels: d.MaxInputChannels,
			Default:          sameDevice(d, defaultDevice),
			handle:           d,
		})
	}

	return result, nil
}

func sameDevice(a, b *portaudio.DeviceInfo) bool {
	if a == nil || b == nil {
		return false
	}
	if a == b {
		return true
	}
	return a.Name == b.Name && a.HostApi != nil && b.HostApi != nil && a.HostApi.Name == b.HostApi.Name
}

func (p *PortAudio) OpenInput(dev HostDevice, params StreamParams, buf []int16) (InputStream, error) {
	info, ok := dev.handle.(*portaudio.DeviceInfo)
	if !ok || info == nil {
		return nil, fmt.Errorf("device %q is not a PortAudio device", dev.Name)
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: params.Channels,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      params.SampleRate,
		FramesPerBuffer: params.FrameSize,
	}, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	return &portAudioStream{stream}, nil
}

func (p *PortAudio) Close() error {
	return portaudio.Terminate()
}

type portAudioStream struct {
	*portaudio.Stream
}

func (s *portAudioStream) Read() error {
	err := s.Stream.Read()
	if errors.Is(err, portaudio.InputOverflowed) {
		return ErrInputOverflowed
	}
	return err
}
