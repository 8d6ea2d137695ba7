package tray

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/mic-relay/internal/app"
	"github.com/petems/mic-relay/internal/audio"
	"github.com/petems/mic-relay/internal/config"
	"github.com/petems/mic-relay/internal/logging"
	"github.com/petems/mic-relay/internal/relay"
)

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger

	ready atomic.Bool
	state atomic.Int32

	// Menu items
	mStatus  *systray.MenuItem
	mDevices *systray.MenuItem

	mu          sync.Mutex
	deviceItems map[int]*systray.MenuItem
}

func New(application *app.App, cfg *config.Config, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		app:         application,
		cfg:         cfg,
		version:     version,
		commit:      commit,
		log:         log.With().Str("component", "tray").Logger(),
		deviceItems: make(map[int]*systray.MenuItem),
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

// SetState is called by the app on every relay transition.
func (u *UI) SetState(s relay.State) {
	u.state.Store(int32(s))
	if !u.ready.Load() {
		return
	}
	u.updateStatus(s)
	if s == relay.Streaming {
		u.checkDevice(u.app.CurrentDevice())
	}
}

// Run blocks on the tray event loop. It must be called from the main
// goroutine.
func (u *UI) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
		case <-u.app.Done():
		}
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	systray.SetTooltip("Microphone relay to Discord")

	u.mStatus = systray.AddMenuItem("", "Relay state")
	u.mStatus.Disable()
	systray.AddSeparator()

	u.mDevices = systray.AddMenuItem("Microphone", "Select capture device")
	u.buildDeviceMenu()
	mCopy := systray.AddMenuItem("Copy Device List", "Copy the device list to the clipboard")

	systray.AddSeparator()
	mLogs := systray.AddMenuItem("Copy Log Path", "Copy the log file location to the clipboard")
	mAbout := systray.AddMenuItem("About", "About mic-relay")
	mQuit := systray.AddMenuItem("Quit", "Disconnect and exit")

	u.ready.Store(true)
	u.updateStatus(relay.State(u.state.Load()))

	// Event loop
	go u.handleEvents(mCopy, mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mCopy, mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-mCopy.ClickedCh:
			u.copyDevices()
		case <-mLogs.ClickedCh:
			u.copyLogPath()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			if err := u.app.Shutdown(); err != nil {
				u.log.Warn().Err(err).Msg("Cleanup finished with errors")
			}
			systray.Quit()
			return
		}
	}
}

func (u *UI) buildDeviceMenu() {
	snap := u.app.ListDevices()
	if snap.Len() == 0 {
		item := u.mDevices.AddSubMenuItem(noDevicesLabel, "")
		item.Disable()
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	for _, dev := range snap.Devices {
		item := u.mDevices.AddSubMenuItem(deviceLabel(dev, snap.Default), dev.Name)
		if dev.Index == snap.Current {
			item.Check()
		}
		u.deviceItems[dev.Index] = item

		go func(index int, name string, menuItem *systray.MenuItem) {
			for range menuItem.ClickedCh {
				reply, _ := u.app.Execute("!change " + strconv.Itoa(index))
				u.log.Info().Int("index", index).Str("device", name).Str("result", reply).Msg("Device selected from tray")
			}
		}(dev.Index, dev.Name, item)
	}
}

// checkDevice moves the check mark to the device at index.
func (u *UI) checkDevice(index int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, item := range u.deviceItems {
		if i == index {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

func (u *UI) copyDevices() {
	text := deviceList(u.app.ListDevices())
	if err := clipboard.WriteAll(text); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy device list")
		return
	}
	u.log.Info().Msg("Copied device list to clipboard")
}

func (u *UI) copyLogPath() {
	path := logging.LogPath()
	if err := clipboard.WriteAll(path); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy log path")
		return
	}
	u.log.Info().Str("path", path).Msg("Copied log path to clipboard")
}

func (u *UI) showAbout() {
	u.log.Info().
		Str("version", u.version).
		Str("commit", u.commit).
		Str("voice_channel", u.cfg.Discord.VoiceChannelID).
		Msg("mic-relay")
}

func (u *UI) onExit() {
	if err := u.app.Shutdown(); err != nil {
		u.log.Warn().Err(err).Msg("Cleanup finished with errors")
	}
}

// updateStatus sets the tray title with microphone emoji and status indicator
func (u *UI) updateStatus(s relay.State) {
	systray.SetTitle(fmt.Sprintf("🎤 %s", emojiForState(s)))
	if u.mStatus != nil {
		u.mStatus.SetTitle("Status: " + s.String())
	}
}

const noDevicesLabel = "No input devices"

// emojiForState returns the status emoji for a relay state
func emojiForState(s relay.State) string {
	switch s {
	case relay.Streaming:
		return "🔴" // Red - live
	case relay.Starting, relay.SwappingSource:
		return "🟡" // Yellow - transitioning
	case relay.Stopping, relay.Stopped:
		return "⚪️" // White - ended
	default:
		return "🟢" // Green - waiting to connect
	}
}

// deviceLabel renders a device for the microphone submenu.
func deviceLabel(dev audio.Device, defaultIndex int) string {
	label := fmt.Sprintf("%d: %s", dev.Index, dev.Name)
	if dev.Index == defaultIndex {
		label += " (default)"
	}
	return label
}

// deviceList renders one device per line with the same annotations as !list.
func deviceList(snap audio.Snapshot) string {
	if snap.Len() == 0 {
		return noDevicesLabel
	}
	lines := make([]string, 0, snap.Len())
	for _, dev := range snap.Devices {
		line := deviceLabel(dev, snap.Default)
		if dev.Index == snap.Current {
			line += " (in use)"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
