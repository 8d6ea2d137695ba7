package audio

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestRefreshAssignsIndicesToInputDevices(t *testing.T) {
	c := NewCatalog(&fakeBackend{devices: twoMics()}, zerolog.Nop())

	snap := c.Refresh()
	if snap.Len() != 2 {
		t.Fatalf("expected 2 input devices, got %d", snap.Len())
	}

	seen := make(map[int]bool)
	for i := 1; i <= snap.Len(); i++ {
		d, err := c.Describe(i)
		if err != nil {
			t.Fatalf("describe(%d): %v", i, err)
		}
		if d.Index != i {
			t.Errorf("describe(%d) returned index %d", i, d.Index)
		}
		if seen[d.Index] {
			t.Errorf("index %d is not unique", d.Index)
		}
		seen[d.Index] = true
	}

	if d, _ := c.Describe(1); d.Name != "Built-in Microphone" {
		t.Errorf("expected index 1 to be the built-in mic, got %q", d.Name)
	}
	if d, _ := c.Describe(2); d.Name != "USB Mic" {
		t.Errorf("expected index 2 to be the USB mic, got %q", d.Name)
	}
}

func TestRefreshDefaultAndCurrent(t *testing.T) {
	devices := []HostDevice{
		{Name: "USB Mic", MaxInputChannels: 1},
		{Name: "Built-in Microphone", MaxInputChannels: 2, Default: true},
	}
	backend := &fakeBackend{devices: devices}
	c := NewCatalog(backend, zerolog.Nop())

	if c.Current() != 0 {
		t.Fatalf("expected no current device before refresh, got %d", c.Current())
	}

	snap := c.Refresh()
	if snap.Default != 2 {
		t.Errorf("expected default 2, got %d", snap.Default)
	}
	if snap.Current != 2 {
		t.Errorf("expected current to start at default 2, got %d", snap.Current)
	}

	// Current is only initialized once.
	c.SetCurrent(1)
	backend.devices = devices[1:]
	snap = c.Refresh()
	if snap.Default != 1 {
		t.Errorf("expected default 1 after device removal, got %d", snap.Default)
	}
	if snap.Current != 1 {
		t.Errorf("expected current to stay 1, got %d", snap.Current)
	}
}

func TestRefreshDefaultsToFirstDevice(t *testing.T) {
	c := NewCatalog(&fakeBackend{devices: []HostDevice{
		{Name: "a", MaxInputChannels: 1},
		{Name: "b", MaxInputChannels: 1},
	}}, zerolog.Nop())

	if snap := c.Refresh(); snap.Default != 1 {
		t.Errorf("expected default 1 when none is marked, got %d", snap.Default)
	}
}

func TestRefreshEmpty(t *testing.T) {
	c := NewCatalog(&fakeBackend{devices: []HostDevice{{Name: "Speakers"}}}, zerolog.Nop())

	snap := c.Refresh()
	if snap.Len() != 0 || snap.Default != 0 || snap.Current != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
	if _, err := c.Describe(1); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestRefreshKeepsPreviousSnapshotOnError(t *testing.T) {
	backend := &fakeBackend{devices: twoMics()}
	c := NewCatalog(backend, zerolog.Nop())
	c.Refresh()

	backend.err = errors.New("host unavailable")
	snap := c.Refresh()
	if snap.Len() != 2 {
		t.Fatalf("expected previous 2 devices, got %d", snap.Len())
	}

	empty := NewCatalog(&fakeBackend{err: errors.New("host unavailable")}, zerolog.Nop())
	if snap := empty.Refresh(); snap.Len() != 0 {
		t.Errorf("expected empty snapshot, got %d devices", snap.Len())
	}
}

func TestDescribeOutOfRange(t *testing.T) {
	c := NewCatalog(&fakeBackend{devices: twoMics()}, zerolog.Nop())
	c.Refresh()

	for _, i := range []int{-1, 0, 3, 9} {
		if _, err := c.Describe(i); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("describe(%d): expected ErrDeviceNotFound, got %v", i, err)
		}
	}
}

func TestFind(t *testing.T) {
	c := NewCatalog(&fakeBackend{devices: twoMics()}, zerolog.Nop())
	c.Refresh()

	d, ok := c.Find("USB Mic")
	if !ok || d.Index != 2 {
		t.Errorf("expected USB Mic at index 2, got %+v (found=%v)", d, ok)
	}
	if _, ok := c.Find("Speakers"); ok {
		t.Error("output-only device should not be in the catalog")
	}
}
