package mididarwin

import "errors"

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIDevices       = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice   = errors.New("invalid MIDI device")
	ErrMIDIConnectionError = errors.New("error connecting to MIDI device")
	ErrCreateClient        = errors.New("error creating MIDI client")
	ErrCreateInputPort     = errors.New("error creating input port")
	ErrCreateOutputPort    = errors.New("error creating output port")
	ErrUnavailable         = errors.New("CoreMIDI is not available on this platform")
)

// packetBacklog is how many CoreMIDI packets may wait for the next poll.
const packetBacklog = 256
