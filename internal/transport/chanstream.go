package transport

import (
	"io"
	"os"
	"sync"
	"time"
)

// ChanStream adapts a producer that pushes chunks of MIDI bytes (a platform
// callback, a message-oriented connection) to the pull-style Stream that
// devices poll. Reads honor SetReadDeadline; writes go to the write function
// given at construction.
type ChanStream struct {
	write   func([]byte) error
	onClose func() error

	chunks    chan []byte
	ended     chan struct{}
	endOnce   sync.Once
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error

	readMu  sync.Mutex
	pending []byte

	deadlineMu sync.Mutex
	deadline   time.Time
}

// ChanStreamOption configures a ChanStream.
type ChanStreamOption func(*ChanStream)

// WithCloser runs fn once when the stream is closed by its consumer.
func WithCloser(fn func() error) ChanStreamOption {
	return func(s *ChanStream) {
		s.onClose = fn
	}
}

// NewChanStream returns a stream buffering up to capacity pushed chunks.
// A nil write makes the stream read-only.
func NewChanStream(write func([]byte) error, capacity int, opts ...ChanStreamOption) *ChanStream {
	if capacity <= 0 {
		capacity = 1
	}
	s := &ChanStream{
		write:  write,
		chunks: make(chan []byte, capacity),
		ended:  make(chan struct{}),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push queues a copy of p without blocking. It reports false when the
// buffer is full or the stream has ended, in which case p is dropped.
func (s *ChanStream) Push(p []byte) bool {
	if len(p) == 0 || s.isDone() {
		return false
	}
	select {
	case s.chunks <- append([]byte(nil), p...):
		return true
	default:
		return false
	}
}

// PushWait queues a copy of p, waiting for buffer space. It returns
// ErrClosed once the stream has ended or been closed.
func (s *ChanStream) PushWait(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if s.isDone() {
		return ErrClosed
	}
	select {
	case s.chunks <- append([]byte(nil), p...):
		return nil
	case <-s.ended:
		return ErrClosed
	case <-s.closed:
		return ErrClosed
	}
}

// End marks the producer side finished. Reads drain what is buffered and
// then return io.EOF.
func (s *ChanStream) End() {
	s.endOnce.Do(func() { close(s.ended) })
}

// Done is closed when the consumer closes the stream.
func (s *ChanStream) Done() <-chan struct{} {
	return s.closed
}

func (s *ChanStream) isDone() bool {
	select {
	case <-s.ended:
		return true
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Read copies buffered bytes into p, waiting for the next chunk when none
// are pending. A chunk larger than p is returned across several reads.
func (s *ChanStream) Read(p []byte) (int, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	if len(s.pending) == 0 {
		chunk, err := s.next()
		if err != nil {
			return 0, err
		}
		s.pending = chunk
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *ChanStream) next() ([]byte, error) {
	select {
	case <-s.closed:
		return nil, io.EOF
	default:
	}
	select {
	case chunk := <-s.chunks:
		return chunk, nil
	default:
	}

	var timeout <-chan time.Time
	if dl := s.readDeadline(); !dl.IsZero() {
		wait := time.Until(dl)
		if wait <= 0 {
			return nil, os.ErrDeadlineExceeded
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case chunk := <-s.chunks:
		return chunk, nil
	case <-s.ended:
		select {
		case chunk := <-s.chunks:
			return chunk, nil
		default:
			return nil, io.EOF
		}
	case <-s.closed:
		return nil, io.EOF
	case <-timeout:
		return nil, os.ErrDeadlineExceeded
	}
}

// SetReadDeadline bounds pending and future reads. A zero t disables it.
func (s *ChanStream) SetReadDeadline(t time.Time) error {
	s.deadlineMu.Lock()
	s.deadline = t
	s.deadlineMu.Unlock()
	return nil
}

func (s *ChanStream) readDeadline() time.Time {
	s.deadlineMu.Lock()
	defer s.deadlineMu.Unlock()
	return s.deadline
}

// Write hands p to the write function as a single unit.
func (s *ChanStream) Write(p []byte) (int, error) {
	if s.write == nil {
		return 0, ErrNotWritable
	}
	select {
	case <-s.closed:
		return 0, ErrClosed
	default:
	}
	if err := s.write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close ends the stream for both sides and runs the closer once.
func (s *ChanStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.onClose != nil {
			s.closeErr = s.onClose()
		}
	})
	return s.closeErr
}

// pumpBufferSize bounds a single read made by a pump goroutine.
const pumpBufferSize = 1024

// Pump reads rw on a background goroutine into a ChanStream, so a stream
// without read deadlines can be polled without blocking. Writes and Close go
// to rw; end of stream or a read error on rw ends the returned stream.
func Pump(rw io.ReadWriteCloser, capacity int) *ChanStream {
	s := NewChanStream(func(p []byte) error {
		n, err := rw.Write(p)
		if err == nil && n < len(p) {
			err = io.ErrShortWrite
		}
		return err
	}, capacity, WithCloser(rw.Close))

	go func() {
		defer s.End()
		buf := make([]byte, pumpBufferSize)
		for {
			n, err := rw.Read(buf)
			if n > 0 {
				if perr := s.PushWait(buf[:n]); perr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return s
}
