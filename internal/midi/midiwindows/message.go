package midiwindows

import "errors"

// Error definitions for winmm MIDI input.
var (
	ErrNoMIDIDevices     = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice = errors.New("invalid MIDI device")
	ErrOpenDevice        = errors.New("error opening MIDI device")
	ErrStartDevice       = errors.New("error starting MIDI input")
	ErrUnavailable       = errors.New("winmm is not available on this platform")
)

// messageBacklog is how many short messages may wait for the next poll.
const messageBacklog = 1024

// unpackShortMessage turns the packed dwParam1 of a MIM_DATA callback into
// the wire bytes it carries: status in the low byte, then up to two data
// bytes. Bytes beyond the message length are not returned.
func unpackShortMessage(param uint32) []byte {
	msg := []byte{byte(param), byte(param >> 8), byte(param >> 16)}
	return msg[:shortMessageLength(msg[0])]
}

func shortMessageLength(status byte) int {
	switch {
	case status < 0x80:
		return 0
	case status < 0xF0:
		switch status & 0xF0 {
		case 0xC0, 0xD0:
			return 2
		default:
			return 3
		}
	case status == 0xF1, status == 0xF3:
		return 2
	case status == 0xF2:
		return 3
	default:
		return 1
	}
}
