package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/petems/mic-relay/internal/audio"
	"github.com/petems/mic-relay/internal/voice"
)

type fakeHost struct {
	devices []audio.HostDevice
}

func (h *fakeHost) Devices() ([]audio.HostDevice, error) {
	return h.devices, nil
}

func (h *fakeHost) OpenInput(audio.HostDevice, audio.StreamParams, []int16) (audio.InputStream, error) {
	return nil, errors.New("not used")
}

func (h *fakeHost) Close() error {
	return nil
}

func micHost() *fakeHost {
	return &fakeHost{devices: []audio.HostDevice{
		{Name: "default-mic", MaxInputChannels: 2, Default: true},
		{Name: "usb-mic", MaxInputChannels: 1},
	}}
}

// fakeSource returns frames filled entirely with its marker byte.
type fakeSource struct {
	marker byte
	closes atomic.Int32
}

func (s *fakeSource) ReadFrame() []byte {
	frame := audio.Silence(2)
	for i := range frame {
		frame[i] = s.marker
	}
	return frame
}

func (s *fakeSource) Close() error {
	s.closes.Add(1)
	return nil
}

type opener struct {
	mu      sync.Mutex
	fail    map[int]error
	opened  []*fakeSource
	devices []audio.Device
}

func (o *opener) open(dev audio.Device) (audio.FrameSource, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fail[dev.Index]; err != nil {
		return nil, err
	}
	src := &fakeSource{marker: byte(dev.Index)}
	o.opened = append(o.opened, src)
	o.devices = append(o.devices, dev)
	return src, nil
}

func (o *opener) last() *fakeSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened[len(o.opened)-1]
}

// fakeConn pulls frames on its own goroutine like a real transport.
type fakeConn struct {
	mu          sync.Mutex
	stop        chan struct{}
	done        chan struct{}
	connected   bool
	playErr     error
	failOnce    bool // clear playErr after it is returned once
	plays       int
	disconnects int
	frames      [][]byte
}

func (c *fakeConn) Play(src audio.FrameSource) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.playErr; err != nil {
		if c.failOnce {
			c.playErr = nil
		}
		return err
	}
	if !c.connected {
		return voice.ErrNotConnected
	}
	if c.stop != nil {
		return voice.ErrAlreadyPlaying
	}
	c.plays++
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			frame := src.ReadFrame()
			c.mu.Lock()
			if len(c.frames) < 10000 {
				c.frames = append(c.frames, frame)
			}
			c.mu.Unlock()
		}
	}(c.stop, c.done)
	return nil
}

func (c *fakeConn) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (c *fakeConn) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

func (c *fakeConn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConn) Disconnect() error {
	c.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnects++
	return nil
}

func (c *fakeConn) recorded() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

type fakeTransport struct {
	conn       *fakeConn
	connectErr error
	connects   int
}

func (t *fakeTransport) Open(voice.Handlers) error {
	return nil
}

func (t *fakeTransport) Connect(ctx context.Context, channelID string) (voice.Connection, error) {
	t.connects++
	if t.connectErr != nil {
		return nil, t.connectErr
	}
	return t.conn, nil
}

func (t *fakeTransport) Send(string, string) error {
	return nil
}

func (t *fakeTransport) Close() error {
	return nil
}
