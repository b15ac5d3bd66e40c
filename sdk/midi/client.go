package midi

import (
	"github.com/leandrodaf/midistream/internal/codec"
	"github.com/leandrodaf/midistream/internal/manager"
	"github.com/leandrodaf/midistream/sdk/contracts"
)

// NewMIDIManager creates a device manager with the specified options.
// It applies default options before building the manager.
//
// opts ...contracts.Option: A variadic list of option functions to customize the manager configuration.
//
// Returns:
//   - contracts.Manager: A manager with no devices attached.
//   - error: An error, if any occurred during the creation of the manager.
func NewMIDIManager(opts ...contracts.Option) (contracts.Manager, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	m, err := manager.New(options)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewDecoder returns a stand-alone decoder tagging events with source. It
// buffers SysEx frames up to codec.DefaultMaxSysExSize bytes.
func NewDecoder(source string, sink contracts.EventSink) *codec.Decoder {
	return codec.NewDecoder(source, sink)
}

// NewEncoder returns a stand-alone encoder.
func NewEncoder() *codec.Encoder {
	return codec.NewEncoder()
}

// NewDispatcher returns an EventSink that routes events to per-kind callbacks.
func NewDispatcher() *codec.Dispatcher {
	return codec.NewDispatcher()
}
