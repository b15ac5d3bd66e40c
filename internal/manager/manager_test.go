package manager

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/midistream/internal/logger"
	"github.com/leandrodaf/midistream/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStream serves queued reads and records writes. Once the queue drains it
// returns io.EOF only when eof is set; otherwise it reports zero bytes.
type memStream struct {
	mu       sync.Mutex
	reads    [][]byte
	eof      bool
	written  bytes.Buffer
	closeErr error
	closes   int
}

func (s *memStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reads) == 0 {
		if s.eof {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(p, s.reads[0])
	s.reads = s.reads[1:]
	return n, nil
}

func (s *memStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written.Write(p)
}

func (s *memStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.closeErr
}

// SetReadDeadline is accepted and ignored; reads never block.
func (s *memStream) SetReadDeadline(time.Time) error { return nil }

func (s *memStream) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.written.Bytes()...)
}

func (s *memStream) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type listener struct {
	mu     sync.Mutex
	events []contracts.DeviceEvent
}

func (l *listener) record(ev contracts.DeviceEvent) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *listener) snapshot() []contracts.DeviceEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]contracts.DeviceEvent(nil), l.events...)
}

type noteRecorder struct {
	mu    sync.Mutex
	notes []string
}

func (r *noteRecorder) OnNoteOn(deviceID string, channel, note, velocity int) {
	r.mu.Lock()
	r.notes = append(r.notes, deviceID)
	r.mu.Unlock()
}

func newTestManager(t *testing.T, opts ...contracts.Option) *Manager {
	t.Helper()
	o := contracts.Options{
		Logger:         logger.NewLogrusLogger("test", io.Discard),
		WorkerPoolSize: 4,
		PollInterval:   time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}
	m, err := New(o)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestNewRequiresLogger(t *testing.T) {
	_, err := New(contracts.Options{})
	assert.ErrorIs(t, err, ErrNoLogger)
}

func TestRegistryAttachReplaceDetach(t *testing.T) {
	r := NewRegistry[*memStream]()
	a, b := &memStream{}, &memStream{}

	_, replaced := r.Attach("b", a)
	assert.False(t, replaced)
	r.Attach("a", a)
	prev, replaced := r.Attach("b", b)
	assert.True(t, replaced)
	assert.Same(t, a, prev)
	assert.Equal(t, []string{"a", "b"}, r.IDs())

	assert.False(t, r.DetachIf("b", func(d *memStream) bool { return d == a }))
	assert.True(t, r.DetachIf("b", func(d *memStream) bool { return d == b }))

	dev, ok := r.Detach("a")
	assert.True(t, ok)
	assert.Same(t, a, dev)
	_, ok = r.Lookup("a")
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestRegistryCloseAllCombinesErrors(t *testing.T) {
	r := NewRegistry[*memStream]()
	r.Attach("a", &memStream{closeErr: errors.New("a failed")})
	r.Attach("b", &memStream{closeErr: errors.New("b failed")})
	r.Attach("c", &memStream{})

	err := r.CloseAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a failed")
	assert.Contains(t, err.Error(), "b failed")
	assert.Zero(t, r.Len())
}

func TestPollOnceDeliversToSubscribers(t *testing.T) {
	m := newTestManager(t)
	rec := &noteRecorder{}
	kinds := m.Subscribe(rec)
	assert.Equal(t, []contracts.EventKind{contracts.NoteOn}, kinds)

	var clocks int
	var mu sync.Mutex
	m.On(contracts.TimingClock, func(contracts.Event) {
		mu.Lock()
		clocks++
		mu.Unlock()
	})

	m.AttachInput("keys", &memStream{reads: [][]byte{{0x90, 60, 100, 0xF8}}})
	m.AttachInput("pads", &memStream{reads: [][]byte{{0x99, 36, 127}}})
	m.PollOnce()

	rec.mu.Lock()
	assert.ElementsMatch(t, []string{"keys", "pads"}, rec.notes)
	rec.mu.Unlock()
	mu.Lock()
	assert.Equal(t, 1, clocks)
	mu.Unlock()
}

func TestSendRoutesById(t *testing.T) {
	m := newTestManager(t)
	synth, drums := &memStream{}, &memStream{}
	m.AttachOutput("synth", synth)
	m.AttachOutput("drums", drums)
	assert.Equal(t, []string{"drums", "synth"}, m.OutputIDs())

	m.Send("synth", contracts.Event{Kind: contracts.NoteOn, Channel: 0, Note: 60, Velocity: 100})
	out, ok := m.Output("drums")
	require.True(t, ok)
	out.SendStart()

	assert.NotPanics(t, func() { m.Send("missing", contracts.Event{Kind: contracts.Start}) })
	_, ok = m.Output("missing")
	assert.False(t, ok)

	assert.Equal(t, []byte{0x90, 60, 100}, synth.bytes())
	assert.Equal(t, []byte{0xFA}, drums.bytes())
}

func TestAttachReplacesAndNotifies(t *testing.T) {
	l := &listener{}
	m := newTestManager(t, contracts.WithDeviceListener(l.record))

	first, second := &memStream{}, &memStream{}
	m.AttachInput("keys", first)
	m.AttachInput("keys", second)

	assert.Equal(t, []string{"keys"}, m.InputIDs())
	assert.Equal(t, 1, first.closeCount())
	assert.Equal(t, []contracts.DeviceEvent{
		{ID: "keys", Direction: contracts.Input, Attached: true},
		{ID: "keys", Direction: contracts.Input, Attached: false},
		{ID: "keys", Direction: contracts.Input, Attached: true},
	}, l.snapshot())

	m.DetachInput("keys")
	assert.Empty(t, m.InputIDs())
	assert.Equal(t, 1, second.closeCount())
	assert.Equal(t, contracts.Detached, m.State("keys", contracts.Input))
}

func TestDroppedInputIsRemoved(t *testing.T) {
	l := &listener{}
	m := newTestManager(t, contracts.WithDeviceListener(l.record))

	m.AttachInput("keys", &memStream{eof: true})
	assert.Equal(t, contracts.Attached, m.State("keys", contracts.Input))
	m.PollOnce()

	assert.Empty(t, m.InputIDs())
	assert.Equal(t, contracts.Detached, m.State("keys", contracts.Input))
	events := l.snapshot()
	require.Len(t, events, 2)
	assert.False(t, events[1].Attached)
}

func TestRedialGivesUpAfterMaxAttempts(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	redialer := func(ctx context.Context, id string, dir contracts.Direction) (contracts.Stream, error) {
		mu.Lock()
		attempts++
		mu.Unlock()
		return nil, errors.New("device unplugged")
	}
	m := newTestManager(t,
		contracts.WithRedialer(redialer),
		contracts.WithReconnectPolicy(3, time.Millisecond))

	m.AttachInput("keys", &memStream{eof: true})
	m.PollOnce()

	assert.Eventually(t, func() bool {
		return m.State("keys", contracts.Input) == contracts.Abandoned
	}, time.Second, time.Millisecond)
	mu.Lock()
	assert.Equal(t, 3, attempts)
	mu.Unlock()
	assert.Empty(t, m.InputIDs())
}

func TestRedialReattaches(t *testing.T) {
	replacement := &memStream{reads: [][]byte{{0x90, 60, 100}}}
	redialer := func(ctx context.Context, id string, dir contracts.Direction) (contracts.Stream, error) {
		assert.Equal(t, contracts.Input, dir)
		return replacement, nil
	}
	m := newTestManager(t,
		contracts.WithRedialer(redialer),
		contracts.WithReconnectPolicy(2, time.Millisecond))
	rec := &noteRecorder{}
	m.Subscribe(rec)

	m.AttachInput("keys", &memStream{eof: true})
	m.PollOnce()

	assert.Eventually(t, func() bool {
		return m.State("keys", contracts.Input) == contracts.Attached
	}, time.Second, time.Millisecond)
	m.PollOnce()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"keys"}, rec.notes)
}

func TestDetachIsNotRedialed(t *testing.T) {
	called := false
	m := newTestManager(t,
		contracts.WithRedialer(func(context.Context, string, contracts.Direction) (contracts.Stream, error) {
			called = true
			return &memStream{}, nil
		}),
		contracts.WithReconnectPolicy(1, time.Millisecond))

	m.AttachOutput("synth", &memStream{})
	m.DetachOutput("synth")
	require.NoError(t, m.Close())
	assert.False(t, called)
}

func TestCloseAggregatesAndIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	m.AttachInput("keys", &memStream{closeErr: errors.New("input stuck")})
	m.AttachOutput("synth", &memStream{closeErr: errors.New("output stuck")})

	err := m.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input stuck")
	assert.Contains(t, err.Error(), "output stuck")
	assert.NoError(t, m.Close())
	assert.Empty(t, m.InputIDs())
	assert.Empty(t, m.OutputIDs())

	late := &memStream{}
	m.AttachInput("late", late)
	assert.Equal(t, 1, late.closeCount())
	assert.Empty(t, m.InputIDs())
}

func TestRunStopsOnContext(t *testing.T) {
	m := newTestManager(t)
	stream := &memStream{reads: [][]byte{{0xFA}}}
	m.AttachInput("clock", stream)

	started := make(chan struct{}, 1)
	m.On(contracts.Start, func(contracts.Event) {
		select {
		case started <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("Run never polled")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

// pollUntil polls m until cond holds or the timeout expires.
func pollUntil(m *Manager, timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		m.PollOnce()
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func TestFlappingPeerIsAbandoned(t *testing.T) {
	var mu sync.Mutex
	redials := 0
	redialer := func(ctx context.Context, id string, dir contracts.Direction) (contracts.Stream, error) {
		mu.Lock()
		redials++
		mu.Unlock()
		return &memStream{eof: true}, nil
	}
	m := newTestManager(t,
		contracts.WithRedialer(redialer),
		contracts.WithReconnectPolicy(3, time.Millisecond),
		contracts.WithReconnectStableAfter(time.Minute))

	m.AttachInput("keys", &memStream{eof: true})
	require.True(t, pollUntil(m, 2*time.Second, func() bool {
		return m.State("keys", contracts.Input) == contracts.Abandoned
	}))

	// Give a runaway redial loop the chance to show up.
	for i := 0; i < 20; i++ {
		m.PollOnce()
		time.Sleep(time.Millisecond)
	}
	mu.Lock()
	assert.Equal(t, 3, redials)
	mu.Unlock()
	assert.Equal(t, contracts.Abandoned, m.State("keys", contracts.Input))
	assert.Empty(t, m.InputIDs())
}

func TestStableDeviceEarnsFreshAttempts(t *testing.T) {
	var mu sync.Mutex
	redials := 0
	redialer := func(ctx context.Context, id string, dir contracts.Direction) (contracts.Stream, error) {
		mu.Lock()
		redials++
		mu.Unlock()
		return &memStream{eof: true}, nil
	}
	m := newTestManager(t,
		contracts.WithRedialer(redialer),
		contracts.WithReconnectPolicy(1, time.Millisecond),
		contracts.WithReconnectStableAfter(time.Nanosecond))

	m.AttachInput("keys", &memStream{eof: true})
	assert.True(t, pollUntil(m, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return redials >= 3
	}))
}

func TestDetachForgivesRedialAttempts(t *testing.T) {
	redialer := func(ctx context.Context, id string, dir contracts.Direction) (contracts.Stream, error) {
		return &memStream{eof: true}, nil
	}
	m := newTestManager(t,
		contracts.WithRedialer(redialer),
		contracts.WithReconnectPolicy(1, time.Millisecond),
		contracts.WithReconnectStableAfter(time.Minute))

	m.AttachInput("keys", &memStream{eof: true})
	require.True(t, pollUntil(m, 2*time.Second, func() bool {
		return m.State("keys", contracts.Input) == contracts.Abandoned
	}))

	m.AttachInput("keys", &memStream{})
	assert.Equal(t, contracts.Attached, m.State("keys", contracts.Input))
	m.DetachInput("keys")
	assert.Equal(t, contracts.Detached, m.State("keys", contracts.Input))

	m.AttachInput("keys", &memStream{eof: true})
	require.True(t, pollUntil(m, 2*time.Second, func() bool {
		return m.State("keys", contracts.Input) != contracts.Attached
	}))
	assert.Eventually(t, func() bool {
		return m.State("keys", contracts.Input) == contracts.Attached
	}, time.Second, time.Millisecond)
}

func TestIdleStreamWithoutDeadlineDoesNotStallRun(t *testing.T) {
	m := newTestManager(t)
	rec := &noteRecorder{}
	m.Subscribe(rec)

	idle, idleWriter := io.Pipe()
	defer idleWriter.Close()
	m.AttachInput("idle", struct {
		io.Reader
		io.Writer
		io.Closer
	}{idle, io.Discard, idle})
	m.AttachInput("keys", &memStream{reads: [][]byte{{0x90, 60, 100}}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("Run blocked past its context")
	}
	rec.mu.Lock()
	assert.Equal(t, []string{"keys"}, rec.notes)
	rec.mu.Unlock()

	_, _ = idleWriter.Write([]byte{0x90, 61, 90})
	assert.True(t, pollUntil(m, time.Second, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.notes) == 2
	}))
	m.DetachInput("idle")
}
