package discord

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/petems/mic-relay/internal/audio"
	"github.com/petems/mic-relay/internal/voice"
)

type frameEncoder interface {
	Encode(frame []byte) ([]byte, error)
}

// conn pushes encoded frames into a discordgo voice connection. The send
// channel is drained by discordgo every 20ms, which paces the pull loop.
type conn struct {
	log        zerolog.Logger
	faults     zerolog.Logger
	enc        frameEncoder
	opus       chan<- []byte
	speaking   func(bool) error
	ready      func() bool
	disconnect func() error

	mu           sync.Mutex
	stop         chan struct{}
	done         chan struct{}
	disconnected bool
}

var _ voice.Connection = (*conn)(nil)

func newConn(vc *discordgo.VoiceConnection, enc frameEncoder, log zerolog.Logger) *conn {
	return &conn{
		log:      log,
		faults:   log.Sample(&zerolog.BurstSampler{Burst: 1, Period: time.Second}),
		enc:      enc,
		opus:     vc.OpusSend,
		speaking: vc.Speaking,
		ready: func() bool {
			vc.RLock()
			defer vc.RUnlock()
			return vc.Ready
		},
		disconnect: vc.Disconnect,
	}
}

func (c *conn) Play(src audio.FrameSource) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disconnected || !c.ready() {
		return voice.ErrNotConnected
	}
	if c.stop != nil {
		return voice.ErrAlreadyPlaying
	}

	if err := c.speaking(true); err != nil {
		c.log.Warn().Err(err).Msg("Failed to set speaking state")
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.pump(src, c.stop, c.done)
	return nil
}

func (c *conn) pump(src audio.FrameSource, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		packet, err := c.enc.Encode(src.ReadFrame())
		if err != nil {
			c.faults.Warn().Err(err).Msg("Dropping frame")
			continue
		}

		select {
		case c.opus <- packet:
		case <-stop:
			return
		}
	}
}

func (c *conn) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *conn) stopLocked() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop, c.done = nil, nil

	if !c.disconnected {
		if err := c.speaking(false); err != nil {
			c.log.Warn().Err(err).Msg("Failed to clear speaking state")
		}
	}
}

func (c *conn) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

func (c *conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disconnected && c.ready()
}

func (c *conn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	if c.disconnected {
		return nil
	}
	c.disconnected = true
	return c.disconnect()
}
