package discord

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/mic-relay/internal/audio"
	"github.com/petems/mic-relay/internal/voice"
)

type passthroughEncoder struct {
	fail atomic.Bool
}

func (e *passthroughEncoder) Encode(frame []byte) ([]byte, error) {
	if e.fail.Load() {
		return nil, errors.New("encode failed")
	}
	return frame[:1], nil
}

type markerSource struct {
	marker byte
	reads  atomic.Int32
}

func (s *markerSource) ReadFrame() []byte {
	s.reads.Add(1)
	frame := audio.Silence(2)
	frame[0] = s.marker
	return frame
}

func (s *markerSource) Close() error {
	return nil
}

type fakeVoice struct {
	mu          sync.Mutex
	speaking    []bool
	disconnects int
	ready       bool
}

func (v *fakeVoice) setSpeaking(b bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.speaking = append(v.speaking, b)
	return nil
}

func (v *fakeVoice) disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disconnects++
	return nil
}

func newTestConn(v *fakeVoice, enc frameEncoder, out chan []byte) *conn {
	return &conn{
		log:        zerolog.Nop(),
		faults:     zerolog.Nop(),
		enc:        enc,
		opus:       out,
		speaking:   v.setSpeaking,
		ready:      func() bool { return v.ready },
		disconnect: v.disconnect,
	}
}

func receive(t *testing.T, out <-chan []byte) []byte {
	t.Helper()
	select {
	case p := <-out:
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a packet")
		return nil
	}
}

func TestPlayPushesEncodedFrames(t *testing.T) {
	v := &fakeVoice{ready: true}
	out := make(chan []byte)
	c := newTestConn(v, &passthroughEncoder{}, out)

	src := &markerSource{marker: 7}
	if err := c.Play(src); err != nil {
		t.Fatalf("play: %v", err)
	}
	if !c.IsPlaying() {
		t.Error("expected connection to be playing")
	}

	for i := 0; i < 3; i++ {
		if p := receive(t, out); p[0] != 7 {
			t.Fatalf("packet %d: expected marker 7, got %d", i, p[0])
		}
	}

	c.Stop()
	if c.IsPlaying() {
		t.Error("expected connection to stop playing")
	}

	reads := src.reads.Load()
	time.Sleep(20 * time.Millisecond)
	if src.reads.Load() != reads {
		t.Error("source was read after Stop returned")
	}

	if len(v.speaking) != 2 || !v.speaking[0] || v.speaking[1] {
		t.Errorf("expected speaking true then false, got %v", v.speaking)
	}
}

func TestPlayTwice(t *testing.T) {
	v := &fakeVoice{ready: true}
	c := newTestConn(v, &passthroughEncoder{}, make(chan []byte))

	if err := c.Play(&markerSource{}); err != nil {
		t.Fatalf("play: %v", err)
	}
	defer c.Stop()

	if err := c.Play(&markerSource{}); !errors.Is(err, voice.ErrAlreadyPlaying) {
		t.Errorf("expected ErrAlreadyPlaying, got %v", err)
	}
}

func TestPlayRestartsWithNewSource(t *testing.T) {
	v := &fakeVoice{ready: true}
	out := make(chan []byte)
	c := newTestConn(v, &passthroughEncoder{}, out)

	if err := c.Play(&markerSource{marker: 1}); err != nil {
		t.Fatalf("play: %v", err)
	}
	receive(t, out)
	c.Stop()

	if err := c.Play(&markerSource{marker: 2}); err != nil {
		t.Fatalf("second play: %v", err)
	}
	defer c.Stop()
	if p := receive(t, out); p[0] != 2 {
		t.Errorf("expected packet from the new source, got marker %d", p[0])
	}
}

func TestEncodeErrorsDoNotStopPump(t *testing.T) {
	v := &fakeVoice{ready: true}
	out := make(chan []byte)
	enc := &passthroughEncoder{}
	enc.fail.Store(true)
	c := newTestConn(v, enc, out)

	src := &markerSource{marker: 3}
	if err := c.Play(src); err != nil {
		t.Fatalf("play: %v", err)
	}
	defer c.Stop()

	for src.reads.Load() < 5 {
		time.Sleep(time.Millisecond)
	}
	enc.fail.Store(false)
	if p := receive(t, out); p[0] != 3 {
		t.Errorf("expected marker 3, got %d", p[0])
	}
}

func TestPlayRequiresConnection(t *testing.T) {
	v := &fakeVoice{ready: false}
	c := newTestConn(v, &passthroughEncoder{}, make(chan []byte))

	if err := c.Play(&markerSource{}); !errors.Is(err, voice.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if c.IsConnected() {
		t.Error("expected connection to report not connected")
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	v := &fakeVoice{ready: true}
	c := newTestConn(v, &passthroughEncoder{}, make(chan []byte))

	if err := c.Play(&markerSource{}); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("second disconnect: %v", err)
	}

	if v.disconnects != 1 {
		t.Errorf("expected one disconnect, got %d", v.disconnects)
	}
	if c.IsPlaying() || c.IsConnected() {
		t.Error("expected connection to be stopped and disconnected")
	}
	if err := c.Play(&markerSource{}); !errors.Is(err, voice.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected after disconnect, got %v", err)
	}
}
