package contracts

import "fmt"

// EventKind identifies the MIDI message category carried by an Event.
type EventKind uint8

const (
	// NoteOff is a note release (0x8n, or 0x9n with velocity 0).
	NoteOff EventKind = iota + 1
	// NoteOn is a note press (0x9n).
	NoteOn
	// PolyphonicAftertouch is per-key pressure (0xAn).
	PolyphonicAftertouch
	// ControlChange is a controller change (0xBn).
	ControlChange
	// ProgramChange selects a patch (0xCn).
	ProgramChange
	// ChannelAftertouch is channel-wide pressure (0xDn).
	ChannelAftertouch
	// PitchWheel is a 14-bit pitch bend (0xEn).
	PitchWheel
	// SystemExclusive is a 0xF0 ... 0xF7 frame.
	SystemExclusive
	// TimeCodeQuarterFrame is MTC (0xF1).
	TimeCodeQuarterFrame
	// SongSelect is 0xF3.
	SongSelect
	// SongPositionPointer is a 14-bit song position (0xF2).
	SongPositionPointer
	// TuneRequest is 0xF6.
	TuneRequest
	// TimingClock is 0xF8.
	TimingClock
	// Start is 0xFA.
	Start
	// Continue is 0xFB.
	Continue
	// Stop is 0xFC.
	Stop
	// ActiveSensing is 0xFE.
	ActiveSensing
	// Reset is 0xFF.
	Reset
)

var kindNames = map[EventKind]string{
	NoteOff:              "note-off",
	NoteOn:               "note-on",
	PolyphonicAftertouch: "polyphonic-aftertouch",
	ControlChange:        "control-change",
	ProgramChange:        "program-change",
	ChannelAftertouch:    "channel-aftertouch",
	PitchWheel:           "pitch-wheel",
	SystemExclusive:      "system-exclusive",
	TimeCodeQuarterFrame: "time-code-quarter-frame",
	SongSelect:           "song-select",
	SongPositionPointer:  "song-position-pointer",
	TuneRequest:          "tune-request",
	TimingClock:          "timing-clock",
	Start:                "start",
	Continue:             "continue",
	Stop:                 "stop",
	ActiveSensing:        "active-sensing",
	Reset:                "reset",
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// Playing reports whether the kind is a channel-voice ("playing") event.
func (k EventKind) Playing() bool {
	return k >= NoteOff && k <= PitchWheel
}

// Kinds lists every event kind in declaration order.
func Kinds() []EventKind {
	kinds := make([]EventKind, 0, len(kindNames))
	for k := NoteOff; k <= Reset; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Event is a decoded MIDI message. Only the fields relevant to Kind are set:
//
//   - NoteOn, NoteOff: Channel, Note, Velocity
//   - PolyphonicAftertouch: Channel, Note, Pressure
//   - ControlChange: Channel, Controller, Value
//   - ProgramChange: Channel, Value
//   - ChannelAftertouch: Channel, Pressure
//   - PitchWheel: Channel, Value (0-16383)
//   - SongPositionPointer: Value (0-16383)
//   - TimeCodeQuarterFrame, SongSelect: Value
//   - SystemExclusive: Payload (leading 0xF0, no trailing 0xF7)
type Event struct {
	Kind       EventKind
	Source     string // Device the event was read from.
	Channel    int
	Note       int
	Velocity   int
	Pressure   int
	Controller int
	Value      int
	Payload    []byte
}

func (e Event) String() string {
	switch e.Kind {
	case NoteOn, NoteOff:
		return fmt.Sprintf("%s[%s] ch=%d note=%d vel=%d", e.Kind, e.Source, e.Channel, e.Note, e.Velocity)
	case PolyphonicAftertouch:
		return fmt.Sprintf("%s[%s] ch=%d note=%d pressure=%d", e.Kind, e.Source, e.Channel, e.Note, e.Pressure)
	case ControlChange:
		return fmt.Sprintf("%s[%s] ch=%d cc=%d value=%d", e.Kind, e.Source, e.Channel, e.Controller, e.Value)
	case ChannelAftertouch:
		return fmt.Sprintf("%s[%s] ch=%d pressure=%d", e.Kind, e.Source, e.Channel, e.Pressure)
	case ProgramChange, PitchWheel:
		return fmt.Sprintf("%s[%s] ch=%d value=%d", e.Kind, e.Source, e.Channel, e.Value)
	case SystemExclusive:
		return fmt.Sprintf("%s[%s] % X", e.Kind, e.Source, e.Payload)
	case TimeCodeQuarterFrame, SongSelect, SongPositionPointer:
		return fmt.Sprintf("%s[%s] value=%d", e.Kind, e.Source, e.Value)
	default:
		return fmt.Sprintf("%s[%s]", e.Kind, e.Source)
	}
}

// EventSink receives decoded events. Decoders call HandleEvent synchronously,
// in stream order, from the goroutine feeding them bytes.
type EventSink interface {
	HandleEvent(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// HandleEvent calls f(ev).
func (f EventSinkFunc) HandleEvent(ev Event) { f(ev) }
