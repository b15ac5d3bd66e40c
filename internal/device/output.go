package device

import (
	"io"
	"sync"

	"github.com/leandrodaf/midistream/internal/codec"
	"github.com/leandrodaf/midistream/sdk/contracts"
)

// Output encodes MIDI messages onto a stream. Sends on a closed device are
// dropped; a failed write closes the device instead of returning an error.
type Output struct {
	logger contracts.Logger

	sendMu  sync.Mutex
	encoder *codec.Encoder

	lifecycle
}

var _ contracts.Sender = (*Output)(nil)

// NewOutput wraps stream as the output device id.
func NewOutput(id string, stream contracts.Stream, logger contracts.Logger) *Output {
	out := &Output{
		logger:  logger,
		encoder: codec.NewEncoder(),
	}
	out.lifecycle.init(id, stream)
	return out
}

// Close closes the stream and fires the disconnect notification. Only the
// first call has any effect.
func (o *Output) Close() error {
	closed, err := o.lifecycle.close()
	if closed {
		if o.logger != nil {
			o.logger.Info("MIDI output device disconnected", o.logger.Field().String("deviceID", o.id))
		}
		o.lifecycle.notify()
	}
	return err
}

// send encodes with fn and writes the result while holding the send lock,
// since the encoder's buffer is shared.
func (o *Output) send(fn func(e *codec.Encoder) []byte) {
	stream := o.current()
	if stream == nil {
		return
	}

	o.sendMu.Lock()
	data := fn(o.encoder)
	if len(data) == 0 {
		o.sendMu.Unlock()
		return
	}
	n, err := stream.Write(data)
	o.sendMu.Unlock()

	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("MIDI output write failed",
				o.logger.Field().String("deviceID", o.id),
				o.logger.Field().Error("error", err))
		}
		_ = o.Close()
	}
}

// Send writes any event kind, as produced by the decoder.
func (o *Output) Send(ev contracts.Event) {
	o.send(func(e *codec.Encoder) []byte { return e.Encode(ev) })
}

// SendNoteOn writes a note-on message.
func (o *Output) SendNoteOn(channel, note, velocity int) {
	o.send(func(e *codec.Encoder) []byte { return e.NoteOn(channel, note, velocity) })
}

// SendNoteOff writes a note-off message.
func (o *Output) SendNoteOff(channel, note, velocity int) {
	o.send(func(e *codec.Encoder) []byte { return e.NoteOff(channel, note, velocity) })
}

// SendPolyphonicAftertouch writes per-note pressure.
func (o *Output) SendPolyphonicAftertouch(channel, note, pressure int) {
	o.send(func(e *codec.Encoder) []byte { return e.PolyphonicAftertouch(channel, note, pressure) })
}

// SendControlChange sets controller function to value.
func (o *Output) SendControlChange(channel, function, value int) {
	o.send(func(e *codec.Encoder) []byte { return e.ControlChange(channel, function, value) })
}

// SendProgramChange selects a program on channel.
func (o *Output) SendProgramChange(channel, program int) {
	o.send(func(e *codec.Encoder) []byte { return e.ProgramChange(channel, program) })
}

// SendChannelAftertouch writes channel-wide pressure.
func (o *Output) SendChannelAftertouch(channel, pressure int) {
	o.send(func(e *codec.Encoder) []byte { return e.ChannelAftertouch(channel, pressure) })
}

// SendPitchWheel writes a 14-bit bend amount; 8192 is centre.
func (o *Output) SendPitchWheel(channel, amount int) {
	o.send(func(e *codec.Encoder) []byte { return e.PitchWheel(channel, amount) })
}

// SendSystemExclusive writes sysEx as given; it must start with 0xF0 and end
// with 0xF7.
func (o *Output) SendSystemExclusive(sysEx []byte) {
	o.send(func(e *codec.Encoder) []byte { return e.SystemExclusive(sysEx) })
}

// SendTimeCodeQuarterFrame writes one MTC quarter frame.
func (o *Output) SendTimeCodeQuarterFrame(timing int) {
	o.send(func(e *codec.Encoder) []byte { return e.TimeCodeQuarterFrame(timing) })
}

// SendSongSelect selects a song by number.
func (o *Output) SendSongSelect(song int) {
	o.send(func(e *codec.Encoder) []byte { return e.SongSelect(song) })
}

// SendSongPositionPointer writes a 14-bit position in MIDI beats.
func (o *Output) SendSongPositionPointer(position int) {
	o.send(func(e *codec.Encoder) []byte { return e.SongPositionPointer(position) })
}

// SendTuneRequest asks analog synths to tune themselves.
func (o *Output) SendTuneRequest() { o.send((*codec.Encoder).TuneRequest) }

// SendTimingClock writes one clock tick; there are 24 per quarter note.
func (o *Output) SendTimingClock() { o.send((*codec.Encoder).TimingClock) }

// SendStart starts playback from the beginning.
func (o *Output) SendStart() { o.send((*codec.Encoder).Start) }

// SendContinue resumes playback from the current position.
func (o *Output) SendContinue() { o.send((*codec.Encoder).Continue) }

// SendStop stops playback.
func (o *Output) SendStop() { o.send((*codec.Encoder).Stop) }

// SendActiveSensing writes the keep-alive byte.
func (o *Output) SendActiveSensing() { o.send((*codec.Encoder).ActiveSensing) }

// SendReset asks the receiver to return to its power-up state.
func (o *Output) SendReset() { o.send((*codec.Encoder).Reset) }
