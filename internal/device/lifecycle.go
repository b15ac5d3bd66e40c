package device

import (
	"sync"

	"github.com/leandrodaf/midistream/sdk/contracts"
)

// State is the lifecycle state of a device. Closed is terminal.
type State int

const (
	Open State = iota
	Closed
)

func (s State) String() string {
	if s == Closed {
		return "closed"
	}
	return "open"
}

// lifecycle owns a device's stream and its disconnect notification.
type lifecycle struct {
	id string

	mu           sync.Mutex
	state        State
	stream       contracts.Stream
	onDisconnect []func(id string)
	done         chan struct{}
}

func (l *lifecycle) init(id string, stream contracts.Stream) {
	l.id = id
	l.stream = stream
	l.done = make(chan struct{})
}

// ID returns the device id.
func (l *lifecycle) ID() string { return l.id }

// current returns the stream while the device is open, nil otherwise.
func (l *lifecycle) current() contracts.Stream {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Closed {
		return nil
	}
	return l.stream
}

// close moves the device to Closed and closes the stream. closed is true
// only for the call that performed the transition.
func (l *lifecycle) close() (closed bool, err error) {
	l.mu.Lock()
	if l.state == Closed {
		l.mu.Unlock()
		return false, nil
	}
	l.state = Closed
	stream := l.stream
	l.stream = nil
	l.mu.Unlock()

	if stream != nil {
		err = stream.Close()
	}
	return true, err
}

// notify fires the disconnect callbacks. Called once, after close.
func (l *lifecycle) notify() {
	l.mu.Lock()
	hooks := l.onDisconnect
	l.onDisconnect = nil
	l.mu.Unlock()

	close(l.done)
	for _, fn := range hooks {
		fn(l.id)
	}
}

// OnDisconnect registers fn to run when the device closes. Registering on an
// already closed device runs fn immediately.
func (l *lifecycle) OnDisconnect(fn func(id string)) {
	l.mu.Lock()
	if l.state == Open {
		l.onDisconnect = append(l.onDisconnect, fn)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	<-l.done
	fn(l.id)
}

// Done is closed once the device has disconnected.
func (l *lifecycle) Done() <-chan struct{} {
	return l.done
}

// State reports whether the device is open.
func (l *lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
