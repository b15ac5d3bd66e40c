package contracts

// Per-category capability interfaces. A handler implements only the categories
// it cares about and is registered with Dispatcher.Subscribe.

type NoteOnHandler interface {
	OnNoteOn(deviceID string, channel, note, velocity int)
}

type NoteOffHandler interface {
	OnNoteOff(deviceID string, channel, note, velocity int)
}

type PolyphonicAftertouchHandler interface {
	OnPolyphonicAftertouch(deviceID string, channel, note, pressure int)
}

type ControlChangeHandler interface {
	OnControlChange(deviceID string, channel, function, value int)
}

type ProgramChangeHandler interface {
	OnProgramChange(deviceID string, channel, program int)
}

type ChannelAftertouchHandler interface {
	OnChannelAftertouch(deviceID string, channel, pressure int)
}

type PitchWheelHandler interface {
	OnPitchWheel(deviceID string, channel, amount int)
}

type SystemExclusiveHandler interface {
	OnSystemExclusive(deviceID string, payload []byte)
}

type TimeCodeQuarterFrameHandler interface {
	OnTimeCodeQuarterFrame(deviceID string, timing int)
}

type SongSelectHandler interface {
	OnSongSelect(deviceID string, song int)
}

type SongPositionPointerHandler interface {
	OnSongPositionPointer(deviceID string, position int)
}

type TuneRequestHandler interface {
	OnTuneRequest(deviceID string)
}

type TimingClockHandler interface {
	OnTimingClock(deviceID string)
}

type StartHandler interface {
	OnStart(deviceID string)
}

type ContinueHandler interface {
	OnContinue(deviceID string)
}

type StopHandler interface {
	OnStop(deviceID string)
}

type ActiveSensingHandler interface {
	OnActiveSensing(deviceID string)
}

type ResetHandler interface {
	OnReset(deviceID string)
}

// PlayingEventsHandler handles every channel-voice event.
type PlayingEventsHandler interface {
	NoteOnHandler
	NoteOffHandler
	PolyphonicAftertouchHandler
	ControlChangeHandler
	ProgramChangeHandler
	ChannelAftertouchHandler
	PitchWheelHandler
}

// SystemEventsHandler handles every system common and real-time event.
type SystemEventsHandler interface {
	SystemExclusiveHandler
	TimeCodeQuarterFrameHandler
	SongSelectHandler
	SongPositionPointerHandler
	TuneRequestHandler
	TimingClockHandler
	StartHandler
	ContinueHandler
	StopHandler
	ActiveSensingHandler
	ResetHandler
}

// AllEventsHandler handles every event kind.
type AllEventsHandler interface {
	PlayingEventsHandler
	SystemEventsHandler
}
