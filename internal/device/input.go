package device

import (
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/leandrodaf/midistream/internal/codec"
	"github.com/leandrodaf/midistream/sdk/contracts"
)

// DefaultReadBufferSize bounds the bytes consumed per poll.
const DefaultReadBufferSize = 1024

// deadlineReader is implemented by streams whose reads can be bounded,
// such as net.Conn.
type deadlineReader interface {
	SetReadDeadline(t time.Time) error
}

// InputConfig configures an Input.
type InputConfig struct {
	Logger         contracts.Logger
	ReadBufferSize int
	ReadTimeout    time.Duration
	MaxSysExSize   int // Zero selects codec.DefaultMaxSysExSize, negative disables the cap.
}

// Input reads a stream and decodes it into events for one source id.
type Input struct {
	logger  contracts.Logger
	decoder *codec.Decoder
	buf     []byte
	timeout time.Duration

	lifecycle
}

// NewInput wraps stream as the input device id, delivering events to sink.
func NewInput(id string, stream contracts.Stream, sink contracts.EventSink, cfg InputConfig) *Input {
	size := cfg.ReadBufferSize
	if size <= 0 {
		size = DefaultReadBufferSize
	}
	maxSysEx := cfg.MaxSysExSize
	switch {
	case maxSysEx == 0:
		maxSysEx = codec.DefaultMaxSysExSize
	case maxSysEx < 0:
		maxSysEx = 0
	}

	in := &Input{
		logger:  cfg.Logger,
		buf:     make([]byte, size),
		timeout: cfg.ReadTimeout,
	}
	in.lifecycle.init(id, stream)
	in.decoder = codec.NewDecoder(id, sink,
		codec.WithMaxSysExSize(maxSysEx),
		codec.WithOverflowHandler(in.sysExOverflow),
	)
	return in
}

// Poll performs one read and feeds every byte read to the decoder, returning
// how many bytes were consumed. Events are delivered before Poll returns. A
// closed stream closes the device; polling a closed device does nothing.
// Poll must not be called concurrently with itself.
func (in *Input) Poll() int {
	stream := in.current()
	if stream == nil {
		return 0
	}

	if in.timeout > 0 {
		if dr, ok := stream.(deadlineReader); ok {
			_ = dr.SetReadDeadline(time.Now().Add(in.timeout))
		}
	}

	n, err := stream.Read(in.buf)
	if n > 0 {
		_, _ = in.decoder.Write(in.buf[:n])
	}
	if err != nil && !isTimeout(err) {
		if in.logger != nil && !errors.Is(err, io.EOF) && in.State() == Open {
			in.logger.Warn("MIDI input read failed",
				in.logger.Field().String("deviceID", in.id),
				in.logger.Field().Error("error", err))
		}
		in.shutdown()
	}
	return n
}

// Close closes the stream and fires the disconnect notification. Only the
// first call has any effect.
func (in *Input) Close() error {
	return in.shutdown()
}

func (in *Input) shutdown() error {
	closed, err := in.lifecycle.close()
	if closed {
		in.decoder.Reset()
		if in.logger != nil {
			in.logger.Info("MIDI input device disconnected", in.logger.Field().String("deviceID", in.id))
		}
		in.lifecycle.notify()
	}
	return err
}

func (in *Input) sysExOverflow(dropped int) {
	if in.logger == nil {
		return
	}
	in.logger.Warn("SysEx message exceeded buffer limit; dropped",
		in.logger.Field().String("deviceID", in.id),
		in.logger.Field().Int("bytes", dropped))
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
