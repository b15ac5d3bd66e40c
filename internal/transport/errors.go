package transport

import "errors"

// Error definitions for transport setup failures.
var (
	ErrDial        = errors.New("error dialing MIDI peer")
	ErrListen      = errors.New("error listening for MIDI peers")
	ErrAccept      = errors.New("error accepting MIDI peer")
	ErrHandshake   = errors.New("error upgrading WebSocket connection")
	ErrClosed      = errors.New("stream closed")
	ErrNotWritable = errors.New("stream does not accept writes")
)
