package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/leandrodaf/midistream/internal/codec"
	"github.com/leandrodaf/midistream/internal/device"
	"github.com/leandrodaf/midistream/internal/transport"
	"github.com/leandrodaf/midistream/sdk/contracts"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/multierr"
)

// ErrNoLogger is returned by New when Options carries no logger.
var ErrNoLogger = errors.New("manager requires a logger")

const (
	// defaultReadTimeout bounds each poll read when Options leaves it unset.
	defaultReadTimeout = 5 * time.Millisecond
	// pumpBacklog is how many reads a pumped input may buffer between polls.
	pumpBacklog = 64
)

// deadlineReader is implemented by streams whose reads can be bounded.
type deadlineReader interface {
	SetReadDeadline(t time.Time) error
}

// Manager owns the attached devices, polls inputs on a fixed cadence and
// routes outgoing messages by device id.
type Manager struct {
	opts   contracts.Options
	logger contracts.Logger
	events *codec.Dispatcher

	inputs  *Registry[*device.Input]
	outputs *Registry[*device.Output]
	pool    *ants.Pool

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards closed and endpoints, and orders attaches against Close.
	mu        sync.Mutex
	closed    bool
	endpoints map[endpointKey]*endpoint
	redials   sync.WaitGroup
}

var _ contracts.Manager = (*Manager)(nil)

// New creates a manager. opts should already have defaults applied.
func New(opts contracts.Options) (*Manager, error) {
	if opts.Logger == nil {
		return nil, ErrNoLogger
	}
	if opts.WorkerPoolSize <= 0 {
		opts.WorkerPoolSize = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Millisecond
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.ReconnectPolicy.StableAfter <= 0 {
		opts.ReconnectPolicy.StableAfter = defaultStableAfter
	}

	logger := opts.Logger
	pool, err := ants.NewPool(opts.WorkerPoolSize, ants.WithPanicHandler(func(p interface{}) {
		logger.Error("MIDI poll task panicked", logger.Field().String("panic", toString(p)))
	}))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:      opts,
		logger:    logger,
		events:    codec.NewDispatcher(),
		inputs:    NewRegistry[*device.Input](),
		outputs:   NewRegistry[*device.Output](),
		pool:      pool,
		ctx:       ctx,
		cancel:    cancel,
		endpoints: make(map[endpointKey]*endpoint),
	}, nil
}

// On registers fn for a single event kind.
func (m *Manager) On(kind contracts.EventKind, fn func(contracts.Event)) {
	m.events.On(kind, fn)
}

// Subscribe registers every capability interface handler implements.
func (m *Manager) Subscribe(handler any) []contracts.EventKind {
	return m.events.Subscribe(handler)
}

// AttachInput wraps stream as the input device id. An existing input with
// the same id is closed and replaced. After Close the stream is closed
// immediately. A stream without read deadlines is read by a pump goroutine
// so that one idle device cannot hold up a poll tick.
func (m *Manager) AttachInput(id string, stream contracts.Stream) {
	if _, ok := stream.(deadlineReader); !ok {
		stream = transport.Pump(stream, pumpBacklog)
	}
	in := device.NewInput(id, stream, m.events, device.InputConfig{
		Logger:         m.logger,
		ReadBufferSize: m.opts.ReadBufferSize,
		ReadTimeout:    m.opts.ReadTimeout,
		MaxSysExSize:   m.opts.MaxSysExSize,
	})
	key := endpointKey{id, contracts.Input}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = in.Close()
		return
	}
	prev, replaced := m.inputs.Attach(id, in)
	m.markAttachedLocked(key)
	m.mu.Unlock()

	in.OnDisconnect(func(id string) {
		if m.inputs.DetachIf(id, func(d *device.Input) bool { return d == in }) {
			m.dropped(key)
		}
	})
	if replaced {
		_ = prev.Close()
		m.notify(key, false)
	}
	m.logger.Info("MIDI input device attached", m.logger.Field().String("deviceID", id))
	m.notify(key, true)
}

// AttachOutput wraps stream as the output device id, replacing any existing
// output with the same id.
func (m *Manager) AttachOutput(id string, stream contracts.Stream) {
	out := device.NewOutput(id, stream, m.logger)
	key := endpointKey{id, contracts.Output}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = out.Close()
		return
	}
	prev, replaced := m.outputs.Attach(id, out)
	m.markAttachedLocked(key)
	m.mu.Unlock()

	out.OnDisconnect(func(id string) {
		if m.outputs.DetachIf(id, func(d *device.Output) bool { return d == out }) {
			m.dropped(key)
		}
	})
	if replaced {
		_ = prev.Close()
		m.notify(key, false)
	}
	m.logger.Info("MIDI output device attached", m.logger.Field().String("deviceID", id))
	m.notify(key, true)
}

// DetachInput closes and removes the input device id. It is not redialed.
func (m *Manager) DetachInput(id string) {
	if in, ok := m.inputs.Detach(id); ok {
		m.markDetached(endpointKey{id, contracts.Input})
		_ = in.Close()
		m.notify(endpointKey{id, contracts.Input}, false)
	}
}

// DetachOutput closes and removes the output device id. It is not redialed.
func (m *Manager) DetachOutput(id string) {
	if out, ok := m.outputs.Detach(id); ok {
		m.markDetached(endpointKey{id, contracts.Output})
		_ = out.Close()
		m.notify(endpointKey{id, contracts.Output}, false)
	}
}

// InputIDs lists the attached input devices.
func (m *Manager) InputIDs() []string { return m.inputs.IDs() }

// OutputIDs lists the attached output devices.
func (m *Manager) OutputIDs() []string { return m.outputs.IDs() }

// Output returns the attached output device id.
func (m *Manager) Output(id string) (contracts.Sender, bool) {
	out, ok := m.outputs.Lookup(id)
	if !ok {
		return nil, false
	}
	return out, true
}

// Send writes ev to the output device id, if attached.
func (m *Manager) Send(id string, ev contracts.Event) {
	if out, ok := m.outputs.Lookup(id); ok {
		out.Send(ev)
	}
}

// PollOnce polls every input device once, concurrently across devices, and
// returns when all polls have finished. It must not overlap with another
// PollOnce or with Run.
func (m *Manager) PollOnce() {
	var wg sync.WaitGroup
	m.inputs.Range(func(_ string, in *device.Input) {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			in.Poll()
		}
		if err := m.pool.Submit(task); err != nil {
			task()
		}
	})
	wg.Wait()
}

// Run polls on every PollInterval tick until ctx is done or the manager is
// closed.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.ctx.Done():
			return nil
		case <-ticker.C:
			m.PollOnce()
		}
	}
}

// Close stops redials, closes every device and releases the worker pool.
// Subsequent calls return nil.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	err := multierr.Append(m.inputs.CloseAll(), m.outputs.CloseAll())
	m.redials.Wait()
	m.pool.Release()
	return err
}

// dropped handles a device that closed without being detached.
func (m *Manager) dropped(key endpointKey) {
	m.logger.Warn("MIDI device lost",
		m.logger.Field().String("deviceID", key.id),
		m.logger.Field().String("direction", key.dir.String()))
	m.notify(key, false)

	if m.opts.Redialer == nil || m.opts.ReconnectPolicy.MaxAttempts <= 0 {
		m.mu.Lock()
		m.endpointLocked(key).state = contracts.Detached
		m.mu.Unlock()
		return
	}
	m.redial(key)
}

func (m *Manager) notify(key endpointKey, attached bool) {
	if m.opts.DeviceListener != nil {
		m.opts.DeviceListener(contracts.DeviceEvent{ID: key.id, Direction: key.dir, Attached: attached})
	}
}
