// Package discord implements the voice transport on top of discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/petems/mic-relay/internal/codec"
	"github.com/petems/mic-relay/internal/voice"
)

// ErrNotVoiceChannel is returned when the target id is not a voice channel.
var ErrNotVoiceChannel = errors.New("voice channel not found")

// Config configures the Discord transport.
type Config struct {
	Token  string
	Opus   codec.Config
	Logger zerolog.Logger
}

// Transport is a bot session on the Discord gateway.
type Transport struct {
	session *discordgo.Session
	opus    codec.Config
	log     zerolog.Logger
}

var _ voice.Transport = (*Transport)(nil)

// New creates a bot session. No connection is made until Open.
func New(cfg Config) (*Transport, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	return &Transport{
		session: s,
		opus:    cfg.Opus,
		log:     cfg.Logger.With().Str("component", "discord").Logger(),
	}, nil
}

// Open registers the handlers and connects to the gateway.
func (t *Transport) Open(h voice.Handlers) error {
	if h.Ready != nil {
		t.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
			if r.User != nil {
				t.log.Info().Str("user", r.User.String()).Msg("Logged in")
			}
			h.Ready()
		})
	}
	if h.Message != nil {
		t.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			if m.Author == nil {
				return
			}
			h.Message(voice.Message{
				ChannelID: m.ChannelID,
				AuthorID:  m.Author.ID,
				FromBot:   m.Author.Bot,
				Content:   m.Content,
			})
		})
	}

	if err := t.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

// Connect joins the voice channel with the given id.
func (t *Transport) Connect(ctx context.Context, channelID string) (voice.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch, err := t.channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotVoiceChannel, channelID, err)
	}
	if ch.Type != discordgo.ChannelTypeGuildVoice && ch.Type != discordgo.ChannelTypeGuildStageVoice {
		return nil, fmt.Errorf("%w: %s is not a voice channel", ErrNotVoiceChannel, channelID)
	}

	t.log.Info().Str("channel", ch.Name).Msg("Connecting to voice channel")

	vc, err := t.session.ChannelVoiceJoin(ch.GuildID, ch.ID, false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	enc, err := codec.NewEncoder(t.opus)
	if err != nil {
		if derr := vc.Disconnect(); derr != nil {
			t.log.Warn().Err(derr).Msg("Failed to leave voice channel")
		}
		return nil, err
	}

	t.log.Info().Str("channel", ch.Name).Msg("Connected to voice channel")
	return newConn(vc, enc, t.log), nil
}

func (t *Transport) channel(id string) (*discordgo.Channel, error) {
	if ch, err := t.session.State.Channel(id); err == nil {
		return ch, nil
	}
	return t.session.Channel(id)
}

// Send posts a text message to a channel.
func (t *Transport) Send(channelID, text string) error {
	if _, err := t.session.ChannelMessageSend(channelID, text); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close closes the gateway connection.
func (t *Transport) Close() error {
	return t.session.Close()
}
