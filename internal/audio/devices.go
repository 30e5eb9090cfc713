package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device describes one enumerated input device with a stable,
// de-duplicated ID. Device names can collide across physical devices (e.g.
// two identical USB mics); the Nth duplicate of a name gets id "N:{count}"
// with count >= 1.
type Device struct {
	ID        string
	Name      string
	IsDefault bool
}

// dedupID assigns the stable ID for the next occurrence of name: the first
// occurrence is the plain name, the Nth duplicate after it gets
// "name:{count}" with count starting at 1. seen tracks how many
// occurrences have already been assigned.
func dedupID(seen map[string]int, name string) string {
	id := name
	if seen[name] > 0 {
		id = fmt.Sprintf("%s:%d", name, seen[name])
	}
	seen[name]++
	return id
}

// ListInputDevices enumerates every input-capable PortAudio device, assigning
// stable IDs and flagging the host's default input device.
func ListInputDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audio: enumerate devices: %w", err)
	}
	defaultIn, _ := portaudio.DefaultInputDevice()

	seen := make(map[string]int)
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels <= 0 {
			continue
		}
		out = append(out, Device{
			ID:        dedupID(seen, d.Name),
			Name:      d.Name,
			IsDefault: defaultIn != nil && d.Name == defaultIn.Name,
		})
	}
	return out, nil
}

// probeDevice checks that a device ID still resolves to a live device,
// returning its name. The recovery protocol uses this between backoff
// sleeps to decide whether the device has come back.
func probeDevice(id string) (string, error) {
	d, err := findDevice(id)
	if err != nil {
		return "", err
	}
	return d.Name, nil
}

// findDevice resolves a device ID (as produced by ListInputDevices) back to
// a *portaudio.DeviceInfo, or the default input device when id is empty.
func findDevice(id string) (*portaudio.DeviceInfo, error) {
	if id == "" {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audio: enumerate devices: %w", err)
	}
	seen := make(map[string]int)
	for _, d := range devices {
		if d.MaxInputChannels <= 0 {
			continue
		}
		if dedupID(seen, d.Name) == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("audio: device %q not found", id)
}
