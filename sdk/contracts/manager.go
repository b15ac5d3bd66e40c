package contracts

import "context"

// Sender exposes one send method per MIDI message kind. Out-of-range values
// are masked into their protocol widths; failures surface only as a device
// disconnect.
type Sender interface {
	SendNoteOn(channel, note, velocity int)
	SendNoteOff(channel, note, velocity int)
	SendPolyphonicAftertouch(channel, note, pressure int)
	SendControlChange(channel, function, value int)
	SendProgramChange(channel, program int)
	SendChannelAftertouch(channel, pressure int)
	SendPitchWheel(channel, amount int)
	SendSystemExclusive(sysEx []byte)
	SendTimeCodeQuarterFrame(timing int)
	SendSongSelect(song int)
	SendSongPositionPointer(position int)
	SendTuneRequest()
	SendTimingClock()
	SendStart()
	SendContinue()
	SendStop()
	SendActiveSensing()
	SendReset()
}

// ConnectionState is where an endpoint is in its attach/redial lifecycle.
type ConnectionState int

const (
	// Unknown endpoints have never been attached.
	Unknown ConnectionState = iota
	// Attached endpoints have an open device in the manager.
	Attached
	// Detached endpoints were removed on purpose, or dropped with no redialer.
	Detached
	// Redialing endpoints disconnected on their own and are being reopened.
	Redialing
	// Abandoned endpoints used up their redial attempts.
	Abandoned
)

func (s ConnectionState) String() string {
	switch s {
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	case Redialing:
		return "redialing"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Subscriber registers event callbacks.
type Subscriber interface {
	On(kind EventKind, fn func(Event))  // Registers fn for a single kind.
	Subscribe(handler any) []EventKind // Registers every capability interface handler implements.
}

// Manager owns the attached input and output devices, polls inputs and routes
// outgoing messages by device id.
type Manager interface {
	Subscriber

	AttachInput(id string, stream Stream)
	AttachOutput(id string, stream Stream)
	DetachInput(id string)
	DetachOutput(id string)
	InputIDs() []string
	OutputIDs() []string

	// Output returns the Sender for an attached output device.
	Output(id string) (Sender, bool)
	// Send encodes ev and writes it to the output device with the given id.
	// Unknown ids are ignored.
	Send(id string, ev Event)

	// State reports the attach/redial state of an endpoint.
	State(id string, dir Direction) ConnectionState

	PollOnce()
	Run(ctx context.Context) error
	Close() error
}
