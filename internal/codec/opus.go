// Package codec encodes relay frames for the voice transport.
package codec

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/petems/mic-relay/internal/audio"
)

// Output format of the voice platform.
const (
	SampleRate = audio.SampleRate
	Channels   = 2

	// maxPacketSize bounds one encoded opus packet.
	maxPacketSize = 4000
)

// Config configures the opus encoder.
type Config struct {
	Bitrate     int    // bits per second, 0 keeps the library default
	Application string // "voip", "audio" or "lowdelay"
}

// Encoder turns PCM frames into opus packets.
type Encoder struct {
	enc     *opus.Encoder
	samples []int16
	stereo  []int16
	packet  []byte
}

// NewEncoder creates a stereo 48 kHz opus encoder.
func NewEncoder(cfg Config) (*Encoder, error) {
	app, err := application(cfg.Application)
	if err != nil {
		return nil, err
	}

	enc, err := opus.NewEncoder(SampleRate, Channels, app)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	if cfg.Bitrate > 0 {
		if err := enc.SetBitrate(cfg.Bitrate); err != nil {
			return nil, fmt.Errorf("failed to set opus bitrate: %w", err)
		}
	}

	return &Encoder{
		enc:     enc,
		samples: make([]int16, 0, audio.FrameSize*Channels),
		stereo:  make([]int16, 0, audio.FrameSize*Channels),
		packet:  make([]byte, maxPacketSize),
	}, nil
}

func application(name string) (opus.Application, error) {
	switch name {
	case "", "voip":
		return opus.AppVoIP, nil
	case "audio":
		return opus.AppAudio, nil
	case "lowdelay":
		return opus.AppRestrictedLowdelay, nil
	default:
		return 0, fmt.Errorf("unknown opus application %q", name)
	}
}

// Encode encodes one mono or stereo frame. The returned packet is a new slice.
func (e *Encoder) Encode(frame []byte) ([]byte, error) {
	channels := FrameChannels(frame)
	if channels == 0 {
		return nil, fmt.Errorf("frame of %d bytes is not a whole frame", len(frame))
	}

	e.samples = audio.BytesToS16(frame, e.samples[:0])
	pcm := e.samples
	if channels == 1 {
		e.stereo = Upmix(e.samples, e.stereo[:0])
		pcm = e.stereo
	}

	n, err := e.enc.Encode(pcm, e.packet)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	packet := make([]byte, n)
	copy(packet, e.packet[:n])
	return packet, nil
}
