package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/leandrodaf/midistream/sdk/contracts"
	"nhooyr.io/websocket"
)

const (
	// wsReadLimit bounds a single WebSocket message, enough for large SysEx dumps.
	wsReadLimit = 1 << 20
	// wsBacklog is how many received messages may wait for the next poll.
	wsBacklog = 64
)

// DialWebSocket connects to a MIDI peer speaking binary WebSocket messages at
// url (ws:// or wss://). Each write is sent as one message; received
// messages are read back as a continuous byte stream.
func DialWebSocket(ctx context.Context, url string) (*ChanStream, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDial, err)
	}
	return newWebSocketStream(c), nil
}

// WebSocketHandler upgrades requests to WebSocket and passes each peer to
// onConn as a stream. The connection stays open after onConn returns.
func WebSocketHandler(logger contracts.Logger, onConn func(*ChanStream)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			if logger != nil {
				logger.Warn("WebSocket upgrade failed",
					logger.Field().String("remote", r.RemoteAddr),
					logger.Field().Error("error", fmt.Errorf("%w: %v", ErrHandshake, err)))
			}
			return
		}
		onConn(newWebSocketStream(c))
	})
}

func newWebSocketStream(c *websocket.Conn) *ChanStream {
	c.SetReadLimit(wsReadLimit)
	ctx, cancel := context.WithCancel(context.Background())

	s := NewChanStream(func(p []byte) error {
		return c.Write(ctx, websocket.MessageBinary, p)
	}, wsBacklog, WithCloser(func() error {
		err := c.Close(websocket.StatusNormalClosure, "")
		cancel()
		return err
	}))

	go func() {
		defer s.End()
		for {
			typ, data, err := c.Read(ctx)
			if err != nil {
				return
			}
			if typ != websocket.MessageBinary {
				continue
			}
			if err := s.PushWait(data); err != nil {
				return
			}
		}
	}()
	return s
}
