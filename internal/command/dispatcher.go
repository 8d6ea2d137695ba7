package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/petems/mic-relay/internal/audio"
)

// Responses sent back to the control channel.
const (
	NoDevices    = "no devices"
	InvalidIndex = "invalid index"
)

// Swapper switches the active capture device.
type Swapper interface {
	Swap(ctx context.Context, index int) error
}

// Config wires a Dispatcher.
type Config struct {
	Catalog *audio.Catalog
	Session Swapper
	// Shutdown runs the full cleanup sequence and ends the process.
	Shutdown func()
	Logger   zerolog.Logger
}

// Dispatcher executes commands one at a time.
type Dispatcher struct {
	catalog  *audio.Catalog
	session  Swapper
	shutdown func()
	log      zerolog.Logger

	mu sync.Mutex
}

func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{
		catalog:  cfg.Catalog,
		session:  cfg.Session,
		shutdown: cfg.Shutdown,
		log:      cfg.Logger.With().Str("component", "commands").Logger(),
	}
}

// Handle executes text and returns the reply. ok is false when nothing
// should be sent back. Panics are recovered and logged.
func (d *Dispatcher) Handle(ctx context.Context, text string) (reply string, ok bool) {
	cmd := Parse(text)
	if cmd.Kind == NoOp {
		return "", false
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("command", cmd.Kind.String()).Msg("Command handler panicked")
			reply, ok = "", false
		}
	}()

	switch cmd.Kind {
	case ListDevices:
		d.mu.Lock()
		defer d.mu.Unlock()
		return RenderList(d.catalog.Refresh()), true

	case ChangeDevice:
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.session.Swap(ctx, cmd.Index); err != nil {
			d.log.Warn().Err(err).Int("index", cmd.Index).Msg("Device change failed")
			return InvalidIndex, true
		}
		return fmt.Sprintf("swapped to %d", cmd.Index), true

	case Close:
		d.log.Info().Msg("Close requested")
		if d.shutdown != nil {
			d.shutdown()
		}
		return "", false
	}

	return "", false
}

// RenderList formats a snapshot as "1 (default) (in use),2".
func RenderList(snap audio.Snapshot) string {
	if snap.Len() == 0 {
		return NoDevices
	}

	parts := make([]string, 0, snap.Len())
	for _, dev := range snap.Devices {
		var b strings.Builder
		b.WriteString(strconv.Itoa(dev.Index))
		if dev.Index == snap.Default {
			b.WriteString(" (default)")
		}
		if dev.Index == snap.Current {
			b.WriteString(" (in use)")
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ",")
}
