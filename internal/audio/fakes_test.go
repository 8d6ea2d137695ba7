package audio

import (
	"errors"
	"sync"
)

type fakeBackend struct {
	devices []HostDevice
	err     error

	opened  []StreamParams
	openErr error
	streams []*fakeStream
	next    func() *fakeStream
}

func (b *fakeBackend) Devices() ([]HostDevice, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.devices, nil
}

func (b *fakeBackend) OpenInput(dev HostDevice, params StreamParams, buf []int16) (InputStream, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opened = append(b.opened, params)
	s := &fakeStream{}
	if b.next != nil {
		s = b.next()
	}
	s.buf = buf
	b.streams = append(b.streams, s)
	return s, nil
}

func (b *fakeBackend) Close() error {
	return nil
}

type fakeStream struct {
	mu       sync.Mutex
	buf      []int16
	fill     int16
	readErr  error
	startErr error
	stops    int
	closes   int
}

func (s *fakeStream) Start() error {
	return s.startErr
}

func (s *fakeStream) Read() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.buf {
		s.buf[i] = s.fill
	}
	return s.readErr
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return errors.New("stop failed")
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func twoMics() []HostDevice {
	return []HostDevice{
		{Name: "Speakers", MaxInputChannels: 0},
		{Name: "Built-in Microphone", MaxInputChannels: 2, Default: true},
		{Name: "HDMI Out", MaxInputChannels: 0},
		{Name: "USB Mic", MaxInputChannels: 1},
	}
}
