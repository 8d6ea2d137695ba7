package relay

import (
	"sync/atomic"

	"github.com/petems/mic-relay/internal/audio"
)

type installed struct {
	src audio.FrameSource
}

// slot holds the active frame source. The transport plays the slot itself,
// so every pull reads whichever source is installed at that moment.
type slot struct {
	p atomic.Pointer[installed]
}

func (s *slot) load() audio.FrameSource {
	if in := s.p.Load(); in != nil {
		return in.src
	}
	return nil
}

// swap installs src and returns the previous source.
func (s *slot) swap(src audio.FrameSource) audio.FrameSource {
	var next *installed
	if src != nil {
		next = &installed{src: src}
	}
	if prev := s.p.Swap(next); prev != nil {
		return prev.src
	}
	return nil
}

func (s *slot) ReadFrame() []byte {
	if src := s.load(); src != nil {
		return src.ReadFrame()
	}
	return audio.Silence(audio.Channels)
}

// Close is a no-op: the session owns the installed source.
func (s *slot) Close() error {
	return nil
}
