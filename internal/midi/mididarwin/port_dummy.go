//go:build !darwin
// +build !darwin

package mididarwin

import (
	"github.com/leandrodaf/midistream/sdk/contracts"
)

type dummyPort struct {
	logger contracts.Logger
}

// NewPlatformPort returns a port whose operations fail with ErrUnavailable.
func NewPlatformPort(options *contracts.Options) (contracts.PlatformPort, error) {
	options.Logger.Info("Using dummy MIDI port for non-macOS system")
	return &dummyPort{logger: options.Logger}, nil
}

func (p *dummyPort) ListDevices() ([]contracts.DeviceInfo, error) {
	p.logger.Warn("ListDevices called on dummy MIDI port")
	return nil, ErrUnavailable
}

func (p *dummyPort) Open(deviceID int) (contracts.Stream, error) {
	p.logger.Warn("Open called on dummy MIDI port", p.logger.Field().Int("deviceID", deviceID))
	return nil, ErrUnavailable
}

func (p *dummyPort) Stop() error {
	return nil
}
