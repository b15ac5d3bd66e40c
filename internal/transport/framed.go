package transport

import (
	"encoding/binary"
	"net"

	"github.com/smallnest/goframe"
)

var (
	frameEncoderConfig = goframe.EncoderConfig{
		ByteOrder:                       binary.BigEndian,
		LengthFieldLength:               4,
		LengthAdjustment:                0,
		LengthIncludesLengthFieldLength: false,
	}

	frameDecoderConfig = goframe.DecoderConfig{
		ByteOrder:           binary.BigEndian,
		LengthFieldOffset:   0,
		LengthFieldLength:   4,
		LengthAdjustment:    0,
		InitialBytesToStrip: 4,
	}
)

// frameBacklog is how many received frames may wait for the next poll.
const frameBacklog = 64

// NewFramedStream wraps conn with 4-byte big-endian length prefixes. Each
// write becomes one frame, so a peer sees the sender's message boundaries;
// received frames are read back as a continuous byte stream.
func NewFramedStream(conn net.Conn) *ChanStream {
	fc := goframe.NewLengthFieldBasedFrameConn(frameEncoderConfig, frameDecoderConfig, conn)

	s := NewChanStream(fc.WriteFrame, frameBacklog, WithCloser(fc.Close))
	go func() {
		defer s.End()
		for {
			frame, err := fc.ReadFrame()
			if err != nil {
				return
			}
			if err := s.PushWait(frame); err != nil {
				return
			}
		}
	}()
	return s
}
