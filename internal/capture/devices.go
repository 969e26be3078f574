package capture

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device describes an input-capable audio device.
type Device struct {
	Index             int     `json:"index"`
	Name              string  `json:"name"`
	MaxInputChannels  int     `json:"max_input_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate"`
	IsDefault         bool    `json:"is_default"`
}

// ListDevices enumerates devices with at least one input channel.
// The PortAudio runtime must be initialized first.
func ListDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	defaultDevice, err := portaudio.DefaultInputDevice()
	if err != nil {
		// No default input device is not fatal for listing.
		defaultDevice = nil
	}

	result := make([]Device, 0, len(devices))
	for i, d := range devices {
		if d.MaxInputChannels < 1 {
			continue
		}
		result = append(result, Device{
			Index:             i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			IsDefault:         defaultDevice != nil && d.Name == defaultDevice.Name,
		})
	}

	return result, nil
}
