package commands

import (
	"github.com/spf13/cobra"

	"github.com/petems/mic-relay/internal/config"
)

var (
	// Global flags
	cfgFile  string
	envFile  string
	logLevel string
	useTray  bool

	version = "dev"
	commit  = "unknown"
)

// rootCmd runs the relay when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mic-relay",
	Short: "Relay a local microphone into a Discord voice channel",
	Long: `mic-relay joins a Discord voice channel as a bot and streams a local
capture device into it. The device is controlled from a text channel:

  !list        list capture devices
  !change <n>  switch to device n while streaming
  !close       disconnect and exit

Credentials come from the config file, a .env file or the environment
(DISCORD_TOKEN, VOICE_CHANNEL_ID, CONTROL_CHANNEL_ID).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRelay,
}

// Execute adds all child commands to the root command and runs it.
func Execute(v, c string) error {
	version, commit = v, c
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.Path()+")")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file (default is ./.env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.Flags().BoolVar(&useTray, "tray", false, "show the system tray icon")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads configuration and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.Options{Path: cfgFile, EnvFile: envFile})
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, logLevel, useTray, cmd.Flags().Changed("tray"))
	return cfg, nil
}

func applyFlags(cfg *config.Config, level string, tray, trayChanged bool) {
	if level != "" {
		cfg.LogLevel = level
	}
	if trayChanged {
		cfg.Tray = tray
	}
}
