package codec

import (
	"sync"

	"github.com/leandrodaf/midistream/sdk/contracts"
)

// Dispatcher is an EventSink that fans events out to the callbacks
// registered for their kind. Registration may happen while events are being
// dispatched; callbacks run on the dispatching goroutine.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[contracts.EventKind][]func(contracts.Event)
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[contracts.EventKind][]func(contracts.Event))}
}

// On registers fn for events of the given kind.
func (d *Dispatcher) On(kind contracts.EventKind, fn func(contracts.Event)) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.handlers[kind] = append(d.handlers[kind], fn)
	d.mu.Unlock()
}

// HandleEvent delivers ev to every callback registered for its kind.
func (d *Dispatcher) HandleEvent(ev contracts.Event) {
	d.mu.RLock()
	fns := d.handlers[ev.Kind]
	d.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribe registers every per-category handler interface that handler
// implements and returns the kinds it was registered for.
func (d *Dispatcher) Subscribe(handler any) []contracts.EventKind {
	var kinds []contracts.EventKind
	on := func(kind contracts.EventKind, fn func(contracts.Event)) {
		d.On(kind, fn)
		kinds = append(kinds, kind)
	}

	if h, ok := handler.(contracts.NoteOffHandler); ok {
		on(contracts.NoteOff, func(ev contracts.Event) { h.OnNoteOff(ev.Source, ev.Channel, ev.Note, ev.Velocity) })
	}
	if h, ok := handler.(contracts.NoteOnHandler); ok {
		on(contracts.NoteOn, func(ev contracts.Event) { h.OnNoteOn(ev.Source, ev.Channel, ev.Note, ev.Velocity) })
	}
	if h, ok := handler.(contracts.PolyphonicAftertouchHandler); ok {
		on(contracts.PolyphonicAftertouch, func(ev contracts.Event) {
			h.OnPolyphonicAftertouch(ev.Source, ev.Channel, ev.Note, ev.Pressure)
		})
	}
	if h, ok := handler.(contracts.ControlChangeHandler); ok {
		on(contracts.ControlChange, func(ev contracts.Event) {
			h.OnControlChange(ev.Source, ev.Channel, ev.Controller, ev.Value)
		})
	}
	if h, ok := handler.(contracts.ProgramChangeHandler); ok {
		on(contracts.ProgramChange, func(ev contracts.Event) { h.OnProgramChange(ev.Source, ev.Channel, ev.Value) })
	}
	if h, ok := handler.(contracts.ChannelAftertouchHandler); ok {
		on(contracts.ChannelAftertouch, func(ev contracts.Event) { h.OnChannelAftertouch(ev.Source, ev.Channel, ev.Pressure) })
	}
	if h, ok := handler.(contracts.PitchWheelHandler); ok {
		on(contracts.PitchWheel, func(ev contracts.Event) { h.OnPitchWheel(ev.Source, ev.Channel, ev.Value) })
	}
	if h, ok := handler.(contracts.SystemExclusiveHandler); ok {
		on(contracts.SystemExclusive, func(ev contracts.Event) { h.OnSystemExclusive(ev.Source, ev.Payload) })
	}
	if h, ok := handler.(contracts.TimeCodeQuarterFrameHandler); ok {
		on(contracts.TimeCodeQuarterFrame, func(ev contracts.Event) { h.OnTimeCodeQuarterFrame(ev.Source, ev.Value) })
	}
	if h, ok := handler.(contracts.SongSelectHandler); ok {
		on(contracts.SongSelect, func(ev contracts.Event) { h.OnSongSelect(ev.Source, ev.Value) })
	}
	if h, ok := handler.(contracts.SongPositionPointerHandler); ok {
		on(contracts.SongPositionPointer, func(ev contracts.Event) { h.OnSongPositionPointer(ev.Source, ev.Value) })
	}
	if h, ok := handler.(contracts.TuneRequestHandler); ok {
		on(contracts.TuneRequest, func(ev contracts.Event) { h.OnTuneRequest(ev.Source) })
	}
	if h, ok := handler.(contracts.TimingClockHandler); ok {
		on(contracts.TimingClock, func(ev contracts.Event) { h.OnTimingClock(ev.Source) })
	}
	if h, ok := handler.(contracts.StartHandler); ok {
		on(contracts.Start, func(ev contracts.Event) { h.OnStart(ev.Source) })
	}
	if h, ok := handler.(contracts.ContinueHandler); ok {
		on(contracts.Continue, func(ev contracts.Event) { h.OnContinue(ev.Source) })
	}
	if h, ok := handler.(contracts.StopHandler); ok {
		on(contracts.Stop, func(ev contracts.Event) { h.OnStop(ev.Source) })
	}
	if h, ok := handler.(contracts.ActiveSensingHandler); ok {
		on(contracts.ActiveSensing, func(ev contracts.Event) { h.OnActiveSensing(ev.Source) })
	}
	if h, ok := handler.(contracts.ResetHandler); ok {
		on(contracts.Reset, func(ev contracts.Event) { h.OnReset(ev.Source) })
	}

	return kinds
}
