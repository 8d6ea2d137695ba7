package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvToken            = "DISCORD_TOKEN"
	EnvVoiceChannelID   = "VOICE_CHANNEL_ID"
	EnvControlChannelID = "CONTROL_CHANNEL_ID"
	EnvLogLevel         = "MIC_RELAY_LOG_LEVEL"
)

type Config struct {
	Discord       DiscordConfig `json:"discord"`
	Audio         AudioConfig   `json:"audio"`
	Opus          OpusConfig    `json:"opus"`
	LogLevel      string        `json:"log_level"`
	NotifyMessage string        `json:"notify_message"` // sent to the control channel once ready, empty disables
	Tray          bool          `json:"tray"`
}

type DiscordConfig struct {
	Token            string `json:"token"`
	VoiceChannelID   string `json:"voice_channel_id"`
	ControlChannelID string `json:"control_channel_id"`
}

type AudioConfig struct {
	Device string `json:"device"` // preferred device name, empty for the system default
}

type OpusConfig struct {
	Bitrate     int    `json:"bitrate"`
	Application string `json:"application"` // "voip", "audio", "lowdelay"
}

// MissingError lists required settings that were not provided.
type MissingError struct {
	Fields []string
}

func (e *MissingError) Error() string {
	return "configuration missing: " + strings.Join(e.Fields, ", ")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Opus: OpusConfig{
			Bitrate:     64000,
			Application: "audio",
		},
		LogLevel:      "info",
		NotifyMessage: "Connected",
	}
}

// Options selects where configuration is read from.
type Options struct {
	Path    string // config file, empty for the platform default
	EnvFile string // dotenv file, empty for ./.env
}

// Load reads the config file over the defaults, then applies the dotenv
// file and process environment. Missing files are not an error.
func Load(opts Options) (*Config, error) {
	path := opts.Path
	if path == "" {
		path = configPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && opts.Path == "":
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !(errors.Is(err, fs.ErrNotExist) && opts.EnvFile == "") {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Discord.Token, EnvToken)
	set(&c.Discord.VoiceChannelID, EnvVoiceChannelID)
	set(&c.Discord.ControlChannelID, EnvControlChannelID)
	set(&c.LogLevel, EnvLogLevel)
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Discord.Token) == "" {
		missing = append(missing, EnvToken)
	}
	if strings.TrimSpace(c.Discord.VoiceChannelID) == "" {
		missing = append(missing, EnvVoiceChannelID)
	}
	if strings.TrimSpace(c.Discord.ControlChannelID) == "" {
		missing = append(missing, EnvControlChannelID)
	}
	if len(missing) > 0 {
		return &MissingError{Fields: missing}
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save(path string) error {
	if path == "" {
		path = configPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	// The file holds the bot token.
	return os.WriteFile(path, data, 0600)
}

// Path returns the platform-specific config file path
func Path() string {
	return configPath()
}

func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "mic-relay", "config.json")
}
