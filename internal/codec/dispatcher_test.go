package codec

import (
	"sync"
	"testing"

	"github.com/leandrodaf/midistream/sdk/contracts"
	"github.com/stretchr/testify/assert"
)

type playingOnly struct {
	calls []string
}

func (p *playingOnly) OnNoteOn(id string, ch, note, vel int) { p.calls = append(p.calls, "on") }
func (p *playingOnly) OnNoteOff(id string, ch, note, vel int) {
	p.calls = append(p.calls, "off")
}
func (p *playingOnly) OnPolyphonicAftertouch(id string, ch, note, pressure int) {}
func (p *playingOnly) OnControlChange(id string, ch, fn, value int)             {}
func (p *playingOnly) OnProgramChange(id string, ch, program int)              {}
func (p *playingOnly) OnChannelAftertouch(id string, ch, pressure int)         {}
func (p *playingOnly) OnPitchWheel(id string, ch, amount int) {
	p.calls = append(p.calls, "bend")
}

type clockOnly struct {
	ticks int
	from  string
}

func (c *clockOnly) OnTimingClock(id string) {
	c.ticks++
	c.from = id
}

func TestDispatcherSubscribeCapabilities(t *testing.T) {
	d := NewDispatcher()
	p := &playingOnly{}
	c := &clockOnly{}

	var _ contracts.PlayingEventsHandler = p
	assert.Len(t, d.Subscribe(p), 7)
	assert.Equal(t, []contracts.EventKind{contracts.TimingClock}, d.Subscribe(c))
	assert.Empty(t, d.Subscribe(struct{}{}))

	dec := NewDecoder("ep-1", d)
	_, _ = dec.Write([]byte{0x90, 60, 1, 60, 0, 0xE0, 0, 0x40, 0xF8, 0xF8, 0xFA})

	assert.Equal(t, []string{"on", "off", "bend"}, p.calls)
	assert.Equal(t, 2, c.ticks)
	assert.Equal(t, "ep-1", c.from)
}

func TestDispatcherOn(t *testing.T) {
	d := NewDispatcher()
	var got []contracts.Event
	d.On(contracts.SystemExclusive, func(ev contracts.Event) { got = append(got, ev) })
	d.On(contracts.SystemExclusive, nil)

	d.HandleEvent(contracts.Event{Kind: contracts.SystemExclusive, Payload: []byte{0xF0}})
	d.HandleEvent(contracts.Event{Kind: contracts.Stop})

	assert.Len(t, got, 1)
}

func TestDispatcherConcurrentRegistration(t *testing.T) {
	d := NewDispatcher()
	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.On(contracts.Start, func(contracts.Event) {
				mu.Lock()
				count++
				mu.Unlock()
			})
		}()
		go func() {
			defer wg.Done()
			d.HandleEvent(contracts.Event{Kind: contracts.Start})
		}()
	}
	wg.Wait()

	mu.Lock()
	count = 0
	mu.Unlock()
	d.HandleEvent(contracts.Event{Kind: contracts.Start})
	assert.Equal(t, 8, count)
}
