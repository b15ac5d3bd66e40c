package codec

import (
	"bytes"
	"sync"
	"testing"

	"github.com/leandrodaf/midistream/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []contracts.Event
}

func (r *recorder) HandleEvent(ev contracts.Event) {
	r.events = append(r.events, ev)
}

func decodeAll(t *testing.T, data []byte, opts ...DecoderOption) []contracts.Event {
	t.Helper()
	rec := &recorder{}
	d := NewDecoder("dev", rec, opts...)
	n, err := d.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	return rec.events
}

func TestDecoderSingleMessages(t *testing.T) {
	var tests = map[string]struct {
		in   []byte
		want contracts.Event
	}{
		"note on":               {[]byte{0x93, 60, 100}, contracts.Event{Kind: contracts.NoteOn, Channel: 3, Note: 60, Velocity: 100}},
		"note off":              {[]byte{0x80, 60, 64}, contracts.Event{Kind: contracts.NoteOff, Note: 60, Velocity: 64}},
		"note on velocity zero": {[]byte{0x9F, 61, 0}, contracts.Event{Kind: contracts.NoteOff, Channel: 15, Note: 61}},
		"poly aftertouch":       {[]byte{0xA1, 62, 33}, contracts.Event{Kind: contracts.PolyphonicAftertouch, Channel: 1, Note: 62, Pressure: 33}},
		"control change":        {[]byte{0xB2, 7, 127}, contracts.Event{Kind: contracts.ControlChange, Channel: 2, Controller: 7, Value: 127}},
		"program change":        {[]byte{0xC4, 12}, contracts.Event{Kind: contracts.ProgramChange, Channel: 4, Value: 12}},
		"channel aftertouch":    {[]byte{0xD5, 90}, contracts.Event{Kind: contracts.ChannelAftertouch, Channel: 5, Pressure: 90}},
		"pitch wheel centre":    {[]byte{0xE0, 0x00, 0x40}, contracts.Event{Kind: contracts.PitchWheel, Value: 8192}},
		"pitch wheel max":       {[]byte{0xE6, 0x7F, 0x7F}, contracts.Event{Kind: contracts.PitchWheel, Channel: 6, Value: 16383}},
		"time code":             {[]byte{0xF1, 0x35}, contracts.Event{Kind: contracts.TimeCodeQuarterFrame, Value: 0x35}},
		"song select":           {[]byte{0xF3, 9}, contracts.Event{Kind: contracts.SongSelect, Value: 9}},
		"song position":         {[]byte{0xF2, 0x01, 0x02}, contracts.Event{Kind: contracts.SongPositionPointer, Value: 0x101}},
		"tune request":          {[]byte{0xF6}, contracts.Event{Kind: contracts.TuneRequest}},
		"timing clock":          {[]byte{0xF8}, contracts.Event{Kind: contracts.TimingClock}},
		"start":                 {[]byte{0xFA}, contracts.Event{Kind: contracts.Start}},
		"continue":              {[]byte{0xFB}, contracts.Event{Kind: contracts.Continue}},
		"stop":                  {[]byte{0xFC}, contracts.Event{Kind: contracts.Stop}},
		"active sensing":        {[]byte{0xFE}, contracts.Event{Kind: contracts.ActiveSensing}},
		"reset":                 {[]byte{0xFF}, contracts.Event{Kind: contracts.Reset}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			test.want.Source = "dev"
			got := decodeAll(t, test.in)
			require.Len(t, got, 1)
			assert.Equal(t, test.want, got[0])
		})
	}
}

func TestDecoderRunningStatus(t *testing.T) {
	got := decodeAll(t, []byte{0x90, 64, 100, 72, 110, 80, 0})

	assert.Equal(t, []contracts.Event{
		{Kind: contracts.NoteOn, Source: "dev", Note: 64, Velocity: 100},
		{Kind: contracts.NoteOn, Source: "dev", Note: 72, Velocity: 110},
		{Kind: contracts.NoteOff, Source: "dev", Note: 80},
	}, got)
}

func TestDecoderRunningStatusTwoByteKinds(t *testing.T) {
	got := decodeAll(t, []byte{0xC2, 1, 2, 3})

	require.Len(t, got, 3)
	for i, ev := range got {
		assert.Equal(t, contracts.ProgramChange, ev.Kind)
		assert.Equal(t, 2, ev.Channel)
		assert.Equal(t, i+1, ev.Value)
	}
}

func TestDecoderRunningStatusNotFromSystemMessages(t *testing.T) {
	got := decodeAll(t, []byte{0xF3, 4, 5, 6})

	require.Len(t, got, 1)
	assert.Equal(t, contracts.SongSelect, got[0].Kind)
}

func TestDecoderStrayDataIgnored(t *testing.T) {
	assert.Empty(t, decodeAll(t, []byte{0x10, 0x20, 0x30}))
}

func TestDecoderSysEx(t *testing.T) {
	frame := []byte{0xF0, 0x01, 0x02, 0x03, 0xF7}
	want := []byte{0xF0, 0x01, 0x02, 0x03}

	whole := decodeAll(t, frame)
	require.Len(t, whole, 1)
	assert.Equal(t, contracts.SystemExclusive, whole[0].Kind)
	assert.Equal(t, want, whole[0].Payload)

	rec := &recorder{}
	d := NewDecoder("dev", rec)
	for _, b := range frame {
		_, _ = d.Write([]byte{b})
	}
	assert.Equal(t, whole, rec.events)

	rec = &recorder{}
	d = NewDecoder("dev", rec)
	_, _ = d.Write(frame[:2])
	_, _ = d.Write(frame[2:])
	assert.Equal(t, whole, rec.events)
}

func TestDecoderMalformedRecovery(t *testing.T) {
	got := decodeAll(t, []byte{0xC0, 0x90, 64, 100})

	assert.Equal(t, []contracts.Event{
		{Kind: contracts.NoteOn, Source: "dev", Note: 64, Velocity: 100},
	}, got)
}

func TestDecoderStatusInterruptsThreeByteMessage(t *testing.T) {
	got := decodeAll(t, []byte{0x90, 64, 0xB0, 7, 100})

	require.Len(t, got, 1)
	assert.Equal(t, contracts.ControlChange, got[0].Kind)
	assert.Equal(t, 7, got[0].Controller)
}

func TestDecoderRealTimeInterleaved(t *testing.T) {
	got := decodeAll(t, []byte{0x90, 64, 0xF8, 100, 0xF0, 0x01, 0xFE, 0x02, 0xF7})

	kinds := make([]contracts.EventKind, 0, len(got))
	for _, ev := range got {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []contracts.EventKind{
		contracts.TimingClock, contracts.NoteOn, contracts.ActiveSensing, contracts.SystemExclusive,
	}, kinds)
	assert.Equal(t, []byte{0xF0, 0x01, 0x02}, got[3].Payload)
}

func TestDecoderUndefinedSystemBytesIgnored(t *testing.T) {
	assert.Empty(t, decodeAll(t, []byte{0xF4, 0xF5, 0xF9, 0xFD, 0xF7}))
}

func TestDecoderSysExOverflow(t *testing.T) {
	var dropped []int
	got := decodeAll(t,
		[]byte{0xF0, 1, 2, 3, 4, 5, 0xF7, 0xF0, 1, 2, 0xF7},
		WithMaxSysExSize(4),
		WithOverflowHandler(func(n int) { dropped = append(dropped, n) }),
	)

	require.Len(t, got, 1)
	assert.Equal(t, []byte{0xF0, 1, 2}, got[0].Payload)
	assert.Equal(t, []int{6}, dropped)
}

func TestDecoderReset(t *testing.T) {
	rec := &recorder{}
	d := NewDecoder("dev", rec)

	_, _ = d.Write([]byte{0x90, 64, 100, 0xF0, 0x01})
	d.Reset()
	_, _ = d.Write([]byte{0x02, 0xF7, 72, 110})

	require.Len(t, rec.events, 1)
	assert.Equal(t, contracts.NoteOn, rec.events[0].Kind)
}

func TestDecoderNilSink(t *testing.T) {
	d := NewDecoder("dev", nil)
	assert.NotPanics(t, func() { _, _ = d.Write([]byte{0x90, 1, 2, 0xF0, 0xF7}) })
}

func TestDecoderResetConcurrentWithSysEx(t *testing.T) {
	frame := append([]byte{0xF0}, bytes.Repeat([]byte{0x11}, 200)...)
	frame = append(frame, 0xF7)
	want := frame[:len(frame)-1]

	rec := &recorder{}
	d := NewDecoder("dev", rec, WithMaxSysExSize(0))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 0; i < 300; i++ {
			_, _ = d.Write(frame)
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				d.Reset()
			}
		}
	}()
	wg.Wait()

	for _, ev := range rec.events {
		require.Equal(t, contracts.SystemExclusive, ev.Kind)
		require.Equal(t, want, ev.Payload)
	}

	rec.events = nil
	_, _ = d.Write(frame)
	_, _ = d.Write(frame)
	require.NotEmpty(t, rec.events)
	assert.Equal(t, want, rec.events[len(rec.events)-1].Payload)
}
