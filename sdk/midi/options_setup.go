package midi

import (
	"time"

	"github.com/leandrodaf/midistream/internal/device"
	"github.com/leandrodaf/midistream/internal/logger"
	"github.com/leandrodaf/midistream/sdk/contracts"
)

// Default option values.
const (
	DefaultPollInterval   = 10 * time.Millisecond
	DefaultReadTimeout    = 5 * time.Millisecond
	DefaultWorkerPoolSize = 8
	DefaultMaxAttempts    = 3
	DefaultBaseBackoff    = 100 * time.Millisecond
	DefaultStableAfter    = time.Second
	DefaultClientName     = "GO MIDI Client"
)

// applyDefaultOptions sets default values for Options if not explicitly provided.
//
// opts ...contracts.Option: A variadic list of option functions that can modify Options.
//
// Returns:
//   - contracts.Options: A structure containing the finalized options with defaults applied.
//   - error: An error if there was an issue applying the options.
func applyDefaultOptions(opts ...contracts.Option) (contracts.Options, error) {
	options := &contracts.Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultPollInterval
	}
	if options.ReadTimeout <= 0 {
		options.ReadTimeout = DefaultReadTimeout
	}
	if options.ReadBufferSize <= 0 {
		options.ReadBufferSize = device.DefaultReadBufferSize
	}
	if options.WorkerPoolSize <= 0 {
		options.WorkerPoolSize = DefaultWorkerPoolSize
	}
	if options.ReconnectPolicy.MaxAttempts == 0 {
		options.ReconnectPolicy.MaxAttempts = DefaultMaxAttempts
	}
	if options.ReconnectPolicy.BaseBackoff <= 0 {
		options.ReconnectPolicy.BaseBackoff = DefaultBaseBackoff
	}
	if options.ReconnectPolicy.StableAfter <= 0 {
		options.ReconnectPolicy.StableAfter = DefaultStableAfter
	}
	if options.CoreMIDIConfig == nil {
		options.CoreMIDIConfig = &contracts.CoreMIDIConfig{ClientName: DefaultClientName}
	}

	options.Logger.SetLevel(options.LogLevel)
	return *options, nil
}
