package audio

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Device is an input-capable device within one catalog snapshot.
type Device struct {
	Index            int // 1-based, valid only for the snapshot it came from
	Name             string
	MaxInputChannels int
	Default          bool

	host HostDevice
}

// Snapshot is the result of one catalog refresh.
type Snapshot struct {
	Devices []Device
	Default int // 0 when the snapshot is empty
	Current int // 0 before any device has been selected
}

// Len returns the number of devices in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Devices)
}

// Catalog enumerates capture devices and tracks the default and in-use
// logical indices. Indices are reassigned on every Refresh.
type Catalog struct {
	backend Backend
	log     zerolog.Logger

	mu      sync.RWMutex
	devices []Device
	def     int
	current int
}

// NewCatalog creates an empty catalog. Call Refresh to populate it.
func NewCatalog(backend Backend, log zerolog.Logger) *Catalog {
	return &Catalog{
		backend: backend,
		log:     log.With().Str("component", "catalog").Logger(),
	}
}

// Refresh re-queries the backend. On a query error the previous snapshot is
// kept and returned.
func (c *Catalog) Refresh() Snapshot {
	hostDevices, err := c.backend.Devices()
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to query audio devices")
		return c.Snapshot()
	}

	devices := make([]Device, 0, len(hostDevices))
	for _, hd := range hostDevices {
		if hd.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, Device{
			Index:            len(devices) + 1,
			Name:             hd.Name,
			MaxInputChannels: hd.MaxInputChannels,
			Default:          hd.Default,
			host:             hd,
		})
	}

	def := 0
	for _, d := range devices {
		if d.Default {
			def = d.Index
			break
		}
	}
	if def == 0 && len(devices) > 0 {
		def = 1
	}

	c.mu.Lock()
	c.devices = devices
	c.def = def
	if c.current == 0 {
		c.current = def
	}
	c.mu.Unlock()

	c.log.Debug().Int("devices", len(devices)).Int("default", def).Msg("Refreshed audio devices")

	return c.Snapshot()
}

// Snapshot returns the most recent catalog contents without querying the backend.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	devices := make([]Device, len(c.devices))
	copy(devices, c.devices)
	return Snapshot{
		Devices: devices,
		Default: c.def,
		Current: c.current,
	}
}

// Describe returns the device at a logical index of the most recent snapshot.
func (c *Catalog) Describe(index int) (Device, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index < 1 || index > len(c.devices) {
		return Device{}, fmt.Errorf("%w: index %d of %d", ErrDeviceNotFound, index, len(c.devices))
	}
	return c.devices[index-1], nil
}

// Find returns the first device whose name matches.
func (c *Catalog) Find(name string) (Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, d := range c.devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

// Current returns the index backing the active frame source, 0 before the
// first refresh. It may be stale after a later refresh.
func (c *Catalog) Current() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// SetCurrent records the index backing the active frame source. It is not
// corrected by later refreshes.
func (c *Catalog) SetCurrent(index int) {
	c.mu.Lock()
	c.current = index
	c.mu.Unlock()
}
