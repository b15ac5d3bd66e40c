//go:build darwin
// +build darwin

package mididarwin

import (
	"fmt"
	"sync"

	"github.com/leandrodaf/midistream/internal/transport"
	"github.com/leandrodaf/midistream/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// Port exposes CoreMIDI sources as streams. Writes on a stream go to the
// destination with the same index, when there is one.
type Port struct {
	logger     contracts.Logger
	client     coremidi.Client
	clientName string

	mu       sync.Mutex
	conns    map[*transport.ChanStream]internalPortConnection
	stopOnce sync.Once
}

// NewPlatformPort creates the CoreMIDI client used by every stream it opens.
func NewPlatformPort(options *contracts.Options) (contracts.PlatformPort, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateClient, err)
	}
	options.Logger.Info("MIDI client successfully created",
		options.Logger.Field().String("clientName", options.CoreMIDIConfig.ClientName))

	return &Port{
		logger:     options.Logger,
		client:     client,
		clientName: options.CoreMIDIConfig.ClientName,
		conns:      make(map[*transport.ChanStream]internalPortConnection),
	}, nil
}

// ListDevices retrieves and returns available MIDI sources.
func (p *Port) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		p.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(sources))
	for i, source := range sources {
		sourceEntity := source.Entity()
		devices[i] = contracts.DeviceInfo{
			Name:         source.Name(),
			EntityName:   sourceEntity.Name(),
			Manufacturer: sourceEntity.Manufacturer(),
		}
	}
	return devices, nil
}

// Open connects to the source at deviceID and returns it as a stream.
// Packets arriving faster than the stream is polled are dropped once the
// backlog is full.
func (p *Port) Open(deviceID int) (contracts.Stream, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error retrieving MIDI sources: %w", err)
	}
	if deviceID < 0 || deviceID >= len(sources) {
		p.logger.Error(ErrInvalidMIDIDevice.Error(), p.logger.Field().Int("deviceID", deviceID))
		return nil, ErrInvalidMIDIDevice
	}
	source := sources[deviceID]

	write, err := p.destinationWriter(deviceID)
	if err != nil {
		return nil, err
	}

	var (
		stream *transport.ChanStream
		conn   internalPortConnection
	)
	stream = transport.NewChanStream(write, packetBacklog, transport.WithCloser(func() error {
		p.mu.Lock()
		delete(p.conns, stream)
		p.mu.Unlock()
		conn.Disconnect()
		return nil
	}))

	inputPort, err := coremidi.NewInputPort(p.client, "Input Port", func(_ coremidi.Source, packet coremidi.Packet) {
		if !stream.Push(packet.Data) {
			p.logger.Warn("MIDI packet dropped",
				p.logger.Field().Int("deviceID", deviceID),
				p.logger.Field().Int("bytes", len(packet.Data)))
		}
	})
	if err != nil {
		p.logger.Error(ErrCreateInputPort.Error())
		return nil, fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}

	conn, err = inputPort.Connect(source)
	if err != nil {
		p.logger.Error(ErrMIDIConnectionError.Error())
		return nil, fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
	}

	p.mu.Lock()
	p.conns[stream] = conn
	p.mu.Unlock()

	p.logger.Info("MIDI device successfully connected",
		p.logger.Field().Int("deviceID", deviceID),
		p.logger.Field().String("deviceName", source.Name()))
	return stream, nil
}

// destinationWriter returns a function sending bytes to the destination at
// deviceID, or nil when no such destination exists.
func (p *Port) destinationWriter(deviceID int) (func([]byte) error, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil || deviceID >= len(destinations) {
		return nil, nil
	}
	destination := destinations[deviceID]

	outputPort, err := coremidi.NewOutputPort(p.client, "Output Port")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
	}
	return func(data []byte) error {
		packet := coremidi.NewPacket(data, 0)
		return packet.Send(&outputPort, &destination)
	}, nil
}

// Stop ends every open stream. It only runs once.
func (p *Port) Stop() error {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		streams := make([]*transport.ChanStream, 0, len(p.conns))
		for s := range p.conns {
			streams = append(streams, s)
		}
		p.mu.Unlock()

		for _, s := range streams {
			_ = s.Close()
		}
		p.logger.Info("MIDI client stopped", p.logger.Field().String("clientName", p.clientName))
	})
	return nil
}
