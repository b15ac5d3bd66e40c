//go:build !windows
// +build !windows

package midiwindows

import (
	"github.com/leandrodaf/midistream/sdk/contracts"
)

type dummyPort struct {
	logger contracts.Logger
}

// NewPlatformPort returns a port whose operations fail with ErrUnavailable.
func NewPlatformPort(options *contracts.Options) (contracts.PlatformPort, error) {
	options.Logger.Info("Using dummy MIDI port for non-Windows system")
	return &dummyPort{logger: options.Logger}, nil
}

// ListDevices logs a warning and reports that winmm is unavailable.
func (p *dummyPort) ListDevices() ([]contracts.DeviceInfo, error) {
	p.logger.Warn("ListDevices called on dummy MIDI port")
	return nil, ErrUnavailable
}

// Open logs a warning and reports that winmm is unavailable.
func (p *dummyPort) Open(deviceID int) (contracts.Stream, error) {
	p.logger.Warn("Open called on dummy MIDI port", p.logger.Field().Int("deviceID", deviceID))
	return nil, ErrUnavailable
}

// Stop does nothing.
func (p *dummyPort) Stop() error {
	return nil
}
