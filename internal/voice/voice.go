// Package voice defines the chat-platform transport the relay streams through.
package voice

import (
	"context"
	"errors"

	"github.com/petems/mic-relay/internal/audio"
)

var (
	// ErrAlreadyPlaying is returned by Play while another source is being pulled.
	ErrAlreadyPlaying = errors.New("already playing audio")
	// ErrNotConnected is returned when the voice connection is gone.
	ErrNotConnected = errors.New("not connected to voice")
)

// Message is an inbound text message.
type Message struct {
	ChannelID string
	AuthorID  string
	FromBot   bool
	Content   string
}

// Handlers receives transport events. Either field may be nil.
type Handlers struct {
	Ready   func()
	Message func(Message)
}

// Transport is the platform client: one authenticated session able to join
// voice channels and exchange text messages.
type Transport interface {
	Open(h Handlers) error
	Connect(ctx context.Context, channelID string) (Connection, error)
	Send(channelID, text string) error
	Close() error
}

// Connection is a joined voice channel.
type Connection interface {
	// Play starts pulling frames from src on the transport's own cadence.
	// The connection never closes src; the caller keeps ownership.
	Play(src audio.FrameSource) error
	// Stop stops pulling and returns once no ReadFrame call is in flight.
	Stop()
	IsPlaying() bool
	IsConnected() bool
	Disconnect() error
}
