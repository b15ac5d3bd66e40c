package codec

import (
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/midistream/sdk/contracts"
)

// DefaultMaxSysExSize is the SysEx buffer cap used when none is configured.
const DefaultMaxSysExSize = 64 * 1024

// Status bytes.
const (
	statusNoteOff              = 0x80
	statusNoteOn               = 0x90
	statusPolyphonicAftertouch = 0xA0
	statusControlChange        = 0xB0
	statusProgramChange        = 0xC0
	statusChannelAftertouch    = 0xD0
	statusPitchWheel           = 0xE0
	statusSystem               = 0xF0

	statusSysExStart     = 0xF0
	statusTimeCode       = 0xF1
	statusSongPosition   = 0xF2
	statusSongSelect     = 0xF3
	statusTuneRequest    = 0xF6
	statusSysExEnd       = 0xF7
	statusTimingClock    = 0xF8
	statusStart          = 0xFA
	statusContinue       = 0xFB
	statusStop           = 0xFC
	statusActiveSensing  = 0xFE
	statusReset          = 0xFF
	statusRealTimeLowest = 0xF8
)

type decoderState int

const (
	stateIdle decoderState = iota
	stateAwaitingSecondOfTwo
	stateAwaitingSecondOfThree
	stateAwaitingThirdOfThree
	stateInSysEx
)

// realTimeKinds maps the single-byte system messages to their event kind.
var realTimeKinds = map[byte]contracts.EventKind{
	statusTuneRequest:   contracts.TuneRequest,
	statusTimingClock:   contracts.TimingClock,
	statusStart:         contracts.Start,
	statusContinue:      contracts.Continue,
	statusStop:          contracts.Stop,
	statusActiveSensing: contracts.ActiveSensing,
	statusReset:         contracts.Reset,
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithMaxSysExSize caps the SysEx buffer, including the leading 0xF0.
// Frames that grow past n are dropped whole. Zero disables the cap.
func WithMaxSysExSize(n int) DecoderOption {
	return func(d *Decoder) {
		d.maxSysEx = n
	}
}

// WithOverflowHandler is called with the number of bytes discarded each time
// an oversized SysEx frame is dropped.
func WithOverflowHandler(fn func(dropped int)) DecoderOption {
	return func(d *Decoder) {
		d.onOverflow = fn
	}
}

// Decoder reconstructs MIDI messages from a byte stream one byte at a time.
// Feed must be called from a single goroutine, in stream order. Reset may be
// called from any goroutine.
type Decoder struct {
	source string
	sink   contracts.EventSink

	state         decoderState
	statusByte    byte
	firstDataByte byte
	resetPending  atomic.Bool

	sysExMu      sync.Mutex
	sysEx        []byte
	sysExDropped int
	maxSysEx     int
	onOverflow   func(dropped int)
}

// NewDecoder returns a decoder that tags events with source and hands them
// to sink.
func NewDecoder(source string, sink contracts.EventSink, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		source:   source,
		sink:     sink,
		maxSysEx: DefaultMaxSysExSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Write feeds every byte of p in order. It never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	for _, b := range p {
		d.Feed(b)
	}
	return len(p), nil
}

// Reset discards the SysEx buffer immediately and the rest of the in-flight
// state, including the retained running status, before the next byte is fed.
func (d *Decoder) Reset() {
	d.resetPending.Store(true)
	d.sysExMu.Lock()
	d.sysEx = nil
	d.sysExDropped = 0
	d.sysExMu.Unlock()
}

// Feed consumes one byte, emitting any message it completes.
func (d *Decoder) Feed(b byte) {
	if d.resetPending.Load() {
		d.resetPending.Store(false)
		d.state = stateIdle
		d.statusByte = 0
		d.firstDataByte = 0
	}

	switch d.state {
	case stateIdle:
		d.feedIdle(b)

	case stateInSysEx:
		d.feedSysEx(b)

	default:
		if b >= statusRealTimeLowest {
			// Real-time bytes may interleave with any message.
			d.emitRealTime(b)
			return
		}
		if b&0x80 != 0 {
			// A new status where data was expected: drop the partial message.
			d.state = stateIdle
			d.feedIdle(b)
			return
		}
		d.feedData(b)
	}
}

func (d *Decoder) feedIdle(b byte) {
	if b&0x80 == 0 {
		d.feedRunningStatus(b)
		return
	}

	switch b & 0xF0 {
	case statusNoteOff, statusNoteOn, statusPolyphonicAftertouch, statusControlChange, statusPitchWheel:
		d.statusByte = b
		d.state = stateAwaitingSecondOfThree
	case statusProgramChange, statusChannelAftertouch:
		d.statusByte = b
		d.state = stateAwaitingSecondOfTwo
	case statusSystem:
		d.feedSystem(b)
	}
}

func (d *Decoder) feedSystem(b byte) {
	switch b {
	case statusSysExStart:
		d.sysExMu.Lock()
		d.sysEx = append(make([]byte, 0, 64), b)
		d.sysExDropped = 0
		d.sysExMu.Unlock()
		d.state = stateInSysEx
	case statusTimeCode, statusSongSelect:
		d.statusByte = b
		d.state = stateAwaitingSecondOfTwo
	case statusSongPosition:
		d.statusByte = b
		d.state = stateAwaitingSecondOfThree
	default:
		d.emitRealTime(b)
	}
}

// feedRunningStatus reuses the retained channel status for a data byte that
// arrives without one.
func (d *Decoder) feedRunningStatus(b byte) {
	if d.statusByte < statusNoteOff || d.statusByte >= statusSystem {
		return
	}
	switch d.statusByte & 0xF0 {
	case statusProgramChange, statusChannelAftertouch:
		d.dispatchTwo(b)
	default:
		d.firstDataByte = b
		d.state = stateAwaitingThirdOfThree
	}
}

func (d *Decoder) feedData(b byte) {
	switch d.state {
	case stateAwaitingSecondOfTwo:
		d.state = stateIdle
		d.dispatchTwo(b)

	case stateAwaitingSecondOfThree:
		switch d.statusByte & 0xF0 {
		case statusNoteOff, statusNoteOn, statusPolyphonicAftertouch, statusControlChange, statusPitchWheel:
			d.firstDataByte = b
			d.state = stateAwaitingThirdOfThree
		default:
			if d.statusByte == statusSongPosition {
				d.firstDataByte = b
				d.state = stateAwaitingThirdOfThree
				return
			}
			d.state = stateIdle
		}

	case stateAwaitingThirdOfThree:
		d.state = stateIdle
		d.dispatchThree(b)
	}
}

func (d *Decoder) feedSysEx(b byte) {
	if b >= statusRealTimeLowest {
		d.emitRealTime(b)
		return
	}

	d.sysExMu.Lock()
	if b != statusSysExEnd {
		switch {
		case d.sysExDropped > 0:
			d.sysExDropped++
		case d.sysEx == nil:
			// Discarded by Reset; wait for the terminator.
		case d.maxSysEx > 0 && len(d.sysEx) >= d.maxSysEx:
			d.sysExDropped = len(d.sysEx) + 1
			d.sysEx = nil
		default:
			d.sysEx = append(d.sysEx, b)
		}
		d.sysExMu.Unlock()
		return
	}

	payload, dropped := d.sysEx, d.sysExDropped
	d.sysEx = nil
	d.sysExDropped = 0
	d.sysExMu.Unlock()

	d.state = stateIdle
	switch {
	case dropped > 0:
		if d.onOverflow != nil {
			d.onOverflow(dropped)
		}
	case payload != nil:
		d.emit(contracts.Event{Kind: contracts.SystemExclusive, Payload: payload})
	}
}

func (d *Decoder) dispatchTwo(b byte) {
	channel := int(d.statusByte & 0x0F)
	switch d.statusByte & 0xF0 {
	case statusProgramChange:
		d.emit(contracts.Event{Kind: contracts.ProgramChange, Channel: channel, Value: int(b)})
	case statusChannelAftertouch:
		d.emit(contracts.Event{Kind: contracts.ChannelAftertouch, Channel: channel, Pressure: int(b)})
	case statusSystem:
		switch d.statusByte {
		case statusTimeCode:
			d.emit(contracts.Event{Kind: contracts.TimeCodeQuarterFrame, Value: int(b)})
		case statusSongSelect:
			d.emit(contracts.Event{Kind: contracts.SongSelect, Value: int(b)})
		}
	}
}

func (d *Decoder) dispatchThree(b byte) {
	channel := int(d.statusByte & 0x0F)
	first := int(d.firstDataByte)
	second := int(b)

	switch d.statusByte & 0xF0 {
	case statusNoteOff:
		d.emit(contracts.Event{Kind: contracts.NoteOff, Channel: channel, Note: first, Velocity: second})
	case statusNoteOn:
		if second == 0 {
			d.emit(contracts.Event{Kind: contracts.NoteOff, Channel: channel, Note: first})
			return
		}
		d.emit(contracts.Event{Kind: contracts.NoteOn, Channel: channel, Note: first, Velocity: second})
	case statusPolyphonicAftertouch:
		d.emit(contracts.Event{Kind: contracts.PolyphonicAftertouch, Channel: channel, Note: first, Pressure: second})
	case statusControlChange:
		d.emit(contracts.Event{Kind: contracts.ControlChange, Channel: channel, Controller: first, Value: second})
	case statusPitchWheel:
		d.emit(contracts.Event{Kind: contracts.PitchWheel, Channel: channel, Value: join14(first, second)})
	case statusSystem:
		if d.statusByte == statusSongPosition {
			d.emit(contracts.Event{Kind: contracts.SongPositionPointer, Value: join14(first, second)})
		}
	}
}

func (d *Decoder) emitRealTime(b byte) {
	if kind, ok := realTimeKinds[b]; ok {
		d.emit(contracts.Event{Kind: kind})
	}
}

func (d *Decoder) emit(ev contracts.Event) {
	if d.sink == nil {
		return
	}
	ev.Source = d.source
	d.sink.HandleEvent(ev)
}

func join14(lsb, msb int) int {
	return (lsb & 0x7F) | ((msb & 0x7F) << 7)
}
