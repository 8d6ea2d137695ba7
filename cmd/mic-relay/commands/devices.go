package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petems/mic-relay/internal/audio"
	"github.com/petems/mic-relay/internal/logging"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture devices with the indices !change accepts",
	Long: `List capture devices without connecting to Discord.

Indices are assigned in enumeration order and change when devices are
plugged in or removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.NewWithLevel(logLevel)

		backend, err := audio.NewPortAudio()
		if err != nil {
			return fmt.Errorf("failed to initialize audio: %w", err)
		}
		defer backend.Close()

		snap := audio.NewCatalog(backend, log).Refresh()
		fmt.Fprint(cmd.OutOrStdout(), renderDevices(snap))
		return nil
	},
}

// renderDevices prints one "index  name  [default]" line per device.
func renderDevices(snap audio.Snapshot) string {
	if snap.Len() == 0 {
		return "no devices\n"
	}
	var b strings.Builder
	for _, dev := range snap.Devices {
		fmt.Fprintf(&b, "%2d  %s (%d ch)", dev.Index, dev.Name, dev.MaxInputChannels)
		if dev.Index == snap.Default {
			b.WriteString("  [default]")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func logDevices(log zerolog.Logger, snap audio.Snapshot) {
	if snap.Len() == 0 {
		log.Warn().Msg("No capture devices found")
		return
	}
	for _, dev := range snap.Devices {
		log.Info().
			Int("index", dev.Index).
			Str("device", dev.Name).
			Int("channels", dev.MaxInputChannels).
			Bool("default", dev.Index == snap.Default).
			Msg("Capture device")
	}
}
