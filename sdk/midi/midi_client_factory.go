package midi

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/midistream/internal/midi/mididarwin"
	"github.com/leandrodaf/midistream/internal/midi/midiwindows"
	"github.com/leandrodaf/midistream/sdk/contracts"
)

// ErrUnsupportedOS is returned when the operating system has no platform MIDI port.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// portInitializers maps OS names to corresponding platform port initializers.
var portInitializers = map[string]func(*contracts.Options) (contracts.PlatformPort, error){
	"darwin":  mididarwin.NewPlatformPort,  // macOS (CoreMIDI) port initializer.
	"windows": midiwindows.NewPlatformPort, // Windows (winmm) port initializer.
}

// OpenPlatformPort initializes the operating system's MIDI port. Streams it
// opens can be attached to a manager like any other stream.
//
// Returns ErrUnsupportedOS on anything but macOS and Windows.
func OpenPlatformPort(opts ...contracts.Option) (contracts.PlatformPort, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	return newPlatformPort(runtime.GOOS, &options)
}

func newPlatformPort(goos string, options *contracts.Options) (contracts.PlatformPort, error) {
	if initializer, exists := portInitializers[goos]; exists {
		return initializer(options)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
}
