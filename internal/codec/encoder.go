package codec

import "github.com/leandrodaf/midistream/sdk/contracts"

// Encoder serializes MIDI messages into their wire bytes. Values are masked
// into their protocol widths instead of being validated, so the output is
// always legal. The slice returned by every method except SystemExclusive
// aliases an internal buffer and is only valid until the next call; an
// Encoder is not safe for concurrent use.
type Encoder struct {
	buf [3]byte
}

// NewEncoder returns a ready Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) channelVoice3(status byte, channel, data1, data2 int) []byte {
	e.buf[0] = status | byte(channel&0x0F)
	e.buf[1] = byte(data1 & 0x7F)
	e.buf[2] = byte(data2 & 0x7F)
	return e.buf[:3]
}

func (e *Encoder) channelVoice2(status byte, channel, data int) []byte {
	e.buf[0] = status | byte(channel&0x0F)
	e.buf[1] = byte(data & 0x7F)
	return e.buf[:2]
}

func (e *Encoder) system2(status byte, data int) []byte {
	e.buf[0] = status
	e.buf[1] = byte(data & 0x7F)
	return e.buf[:2]
}

func (e *Encoder) system1(status byte) []byte {
	e.buf[0] = status
	return e.buf[:1]
}

// NoteOn encodes [0x9n, note, velocity].
func (e *Encoder) NoteOn(channel, note, velocity int) []byte {
	return e.channelVoice3(statusNoteOn, channel, note, velocity)
}

// NoteOff encodes [0x8n, note, velocity].
func (e *Encoder) NoteOff(channel, note, velocity int) []byte {
	return e.channelVoice3(statusNoteOff, channel, note, velocity)
}

// PolyphonicAftertouch encodes [0xAn, note, pressure].
func (e *Encoder) PolyphonicAftertouch(channel, note, pressure int) []byte {
	return e.channelVoice3(statusPolyphonicAftertouch, channel, note, pressure)
}

// ControlChange encodes [0xBn, function, value].
func (e *Encoder) ControlChange(channel, function, value int) []byte {
	return e.channelVoice3(statusControlChange, channel, function, value)
}

// ProgramChange encodes [0xCn, program].
func (e *Encoder) ProgramChange(channel, program int) []byte {
	return e.channelVoice2(statusProgramChange, channel, program)
}

// ChannelAftertouch encodes [0xDn, pressure].
func (e *Encoder) ChannelAftertouch(channel, pressure int) []byte {
	return e.channelVoice2(statusChannelAftertouch, channel, pressure)
}

// PitchWheel encodes [0xEn, lsb, msb] for a 14-bit amount (8192 is centre).
func (e *Encoder) PitchWheel(channel, amount int) []byte {
	return e.channelVoice3(statusPitchWheel, channel, amount, amount>>7)
}

// SystemExclusive returns sysEx unchanged; the caller supplies the whole
// frame including 0xF0 and 0xF7.
func (e *Encoder) SystemExclusive(sysEx []byte) []byte {
	return sysEx
}

// TimeCodeQuarterFrame encodes [0xF1, timing].
func (e *Encoder) TimeCodeQuarterFrame(timing int) []byte {
	return e.system2(statusTimeCode, timing)
}

// SongSelect encodes [0xF3, song].
func (e *Encoder) SongSelect(song int) []byte {
	return e.system2(statusSongSelect, song)
}

// SongPositionPointer encodes [0xF2, lsb, msb].
func (e *Encoder) SongPositionPointer(position int) []byte {
	e.buf[0] = statusSongPosition
	e.buf[1] = byte(position & 0x7F)
	e.buf[2] = byte((position >> 7) & 0x7F)
	return e.buf[:3]
}

// TuneRequest encodes [0xF6].
func (e *Encoder) TuneRequest() []byte { return e.system1(statusTuneRequest) }

// TimingClock encodes [0xF8].
func (e *Encoder) TimingClock() []byte { return e.system1(statusTimingClock) }

// Start encodes [0xFA].
func (e *Encoder) Start() []byte { return e.system1(statusStart) }

// Continue encodes [0xFB].
func (e *Encoder) Continue() []byte { return e.system1(statusContinue) }

// Stop encodes [0xFC].
func (e *Encoder) Stop() []byte { return e.system1(statusStop) }

// ActiveSensing encodes [0xFE].
func (e *Encoder) ActiveSensing() []byte { return e.system1(statusActiveSensing) }

// Reset encodes [0xFF].
func (e *Encoder) Reset() []byte { return e.system1(statusReset) }

// Encode serializes a decoded event back to the wire. SysEx payloads get the
// 0xF7 terminator the decoder strips. Unknown kinds encode to nil.
func (e *Encoder) Encode(ev contracts.Event) []byte {
	switch ev.Kind {
	case contracts.NoteOn:
		return e.NoteOn(ev.Channel, ev.Note, ev.Velocity)
	case contracts.NoteOff:
		return e.NoteOff(ev.Channel, ev.Note, ev.Velocity)
	case contracts.PolyphonicAftertouch:
		return e.PolyphonicAftertouch(ev.Channel, ev.Note, ev.Pressure)
	case contracts.ControlChange:
		return e.ControlChange(ev.Channel, ev.Controller, ev.Value)
	case contracts.ProgramChange:
		return e.ProgramChange(ev.Channel, ev.Value)
	case contracts.ChannelAftertouch:
		return e.ChannelAftertouch(ev.Channel, ev.Pressure)
	case contracts.PitchWheel:
		return e.PitchWheel(ev.Channel, ev.Value)
	case contracts.SystemExclusive:
		frame := make([]byte, 0, len(ev.Payload)+1)
		frame = append(frame, ev.Payload...)
		return append(frame, statusSysExEnd)
	case contracts.TimeCodeQuarterFrame:
		return e.TimeCodeQuarterFrame(ev.Value)
	case contracts.SongSelect:
		return e.SongSelect(ev.Value)
	case contracts.SongPositionPointer:
		return e.SongPositionPointer(ev.Value)
	case contracts.TuneRequest:
		return e.TuneRequest()
	case contracts.TimingClock:
		return e.TimingClock()
	case contracts.Start:
		return e.Start()
	case contracts.Continue:
		return e.Continue()
	case contracts.Stop:
		return e.Stop()
	case contracts.ActiveSensing:
		return e.ActiveSensing()
	case contracts.Reset:
		return e.Reset()
	}
	return nil
}
