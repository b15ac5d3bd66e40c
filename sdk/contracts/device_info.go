package contracts

import "io"

// DeviceInfo contains information about a platform MIDI device.
type DeviceInfo struct {
	Name         string // Device name.
	Manufacturer string // Device manufacturer.
	EntityName   string // Name of the entity to which the device belongs.
}

// Stream is the ordered duplex byte stream a device runs over. Read returns
// io.EOF once the peer has gone away; Write returns an error when the stream
// can no longer accept bytes.
type Stream interface {
	io.ReadWriteCloser
}

// Direction tells input devices from output devices.
type Direction int

const (
	// Input devices are read from and decoded.
	Input Direction = iota + 1
	// Output devices are written to.
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return "unknown"
	}
}

// DeviceEvent reports a device being attached to or detached from a manager.
type DeviceEvent struct {
	ID        string
	Direction Direction
	Attached  bool
}

// PlatformPort exposes the operating system's MIDI endpoints as byte streams.
type PlatformPort interface {
	ListDevices() ([]DeviceInfo, error) // Lists all available MIDI devices.
	Open(deviceID int) (Stream, error)  // Opens a device by its index as a Stream.
	Stop() error                        // Releases the platform client.
}
