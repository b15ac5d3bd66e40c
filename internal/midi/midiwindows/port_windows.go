//go:build windows
// +build windows

package midiwindows

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/leandrodaf/midistream/internal/transport"
	"github.com/leandrodaf/midistream/sdk/contracts"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type HMIDIIN windows.Handle

// Constants for callback flags
const (
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
	MIDI_IO_STATUS    = 0x00000020 // MIDI input/output status
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // MIDI data received
	MIM_LONGDATA  = 0x3C4 // SysEx buffer filled
	MIM_ERROR     = 0x3C5 // MIDI error
	MIM_LONGERROR = 0x3C6 // Long MIDI error
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

// Struct representing MIDI device capabilities
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// Load the winmm.dll library and required functions
var (
	winmm                = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen       = winmm.NewProc("midiInOpen")
	procMidiInStart      = winmm.NewProc("midiInStart")
	procMidiInStop       = winmm.NewProc("midiInStop")
	procMidiInClose      = winmm.NewProc("midiInClose")
)

// callback is shared by every opened device; the instance pointer tells
// them apart.
var (
	callbackOnce sync.Once
	callback     uintptr
)

// input is the per-device state handed to the winmm callback.
type input struct {
	logger   contracts.Logger
	deviceID int
	handle   HMIDIIN
	stream   *transport.ChanStream
}

// Port exposes winmm MIDI-in devices as read-only streams.
type Port struct {
	logger contracts.Logger

	mu       sync.Mutex
	inputs   map[*input]struct{}
	stopOnce sync.Once
}

// NewPlatformPort creates a winmm port.
func NewPlatformPort(options *contracts.Options) (contracts.PlatformPort, error) {
	options.Logger.Info("MIDI port created for Windows")
	return &Port{
		logger: options.Logger,
		inputs: make(map[*input]struct{}),
	}, nil
}

// ListDevices lists the available MIDI input devices
func (p *Port) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		p.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			p.logger.Warn("Failed to get information for MIDI device", p.logger.Field().Int("deviceID", int(i)))
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		devices[i] = contracts.DeviceInfo{
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		}
	}
	return devices, nil
}

// Open opens and starts the input device at deviceID. The stream rejects
// writes; winmm output devices are not exposed.
func (p *Port) Open(deviceID int) (contracts.Stream, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	if deviceID < 0 || deviceID >= int(r0) {
		p.logger.Error(ErrInvalidMIDIDevice.Error(), p.logger.Field().Int("deviceID", deviceID))
		return nil, ErrInvalidMIDIDevice
	}

	callbackOnce.Do(func() { callback = windows.NewCallback(midiInCallback) })

	in := &input{logger: p.logger, deviceID: deviceID}
	in.stream = transport.NewChanStream(nil, messageBacklog, transport.WithCloser(func() error {
		return p.closeInput(in)
	}))

	r1, _, err := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&in.handle)),
		uintptr(deviceID),
		callback,
		uintptr(unsafe.Pointer(in)),
		uintptr(CALLBACK_FUNCTION|MIDI_IO_STATUS),
	)
	if r1 != 0 {
		p.logger.Error("Failed to open MIDI device", p.logger.Field().Int("deviceID", deviceID), p.logger.Field().Error("error", err))
		return nil, fmt.Errorf("%w %d: %v", ErrOpenDevice, deviceID, err)
	}

	// Keep in reachable while winmm holds its address.
	p.mu.Lock()
	p.inputs[in] = struct{}{}
	p.mu.Unlock()

	r1, _, err = procMidiInStart.Call(uintptr(in.handle))
	if r1 != 0 {
		_ = in.stream.Close()
		return nil, fmt.Errorf("%w %d: %v", ErrStartDevice, deviceID, err)
	}

	p.logger.Info("MIDI device connected", p.logger.Field().Int("deviceID", deviceID))
	return in.stream, nil
}

// closeInput stops and closes the device behind in.
func (p *Port) closeInput(in *input) error {
	p.mu.Lock()
	_, open := p.inputs[in]
	delete(p.inputs, in)
	p.mu.Unlock()
	if !open || in.handle == 0 {
		return nil
	}

	if r1, _, err := procMidiInStop.Call(uintptr(in.handle)); r1 != 0 {
		p.logger.Error("Failed to stop MIDI capture", p.logger.Field().Error("error", err))
	}
	if r1, _, err := procMidiInClose.Call(uintptr(in.handle)); r1 != 0 {
		p.logger.Error("Failed to close MIDI device", p.logger.Field().Error("error", err))
		return err
	}
	return nil
}

// midiInCallback forwards incoming short messages to the device's stream
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	in := (*input)(unsafe.Pointer(dwInstance))

	switch wMsg {
	case MIM_OPEN:
		in.logger.Debug("MIDI device opened", in.logger.Field().Int("deviceID", in.deviceID))
	case MIM_CLOSE:
		in.stream.End()
	case MIM_DATA, MIM_MOREDATA:
		msg := unpackShortMessage(uint32(dwParam1))
		if len(msg) == 0 {
			return 0
		}
		if !in.stream.Push(msg) {
			in.logger.Warn("MIDI input buffer full; message discarded", in.logger.Field().Int("deviceID", in.deviceID))
		}
	case MIM_LONGDATA:
		in.logger.Debug("SysEx input buffers are not registered; ignored", in.logger.Field().Int("deviceID", in.deviceID))
	case MIM_ERROR, MIM_LONGERROR:
		in.logger.Error("MIDI error", in.logger.Field().Int("deviceID", in.deviceID), in.logger.Field().Int("msg", int(wMsg)))
	default:
		in.logger.Warn("Unknown MIDI message", in.logger.Field().Int("msg", int(wMsg)))
	}

	return 0
}

// Stop closes every open input device. It only runs once.
func (p *Port) Stop() error {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		inputs := make([]*input, 0, len(p.inputs))
		for in := range p.inputs {
			inputs = append(inputs, in)
		}
		p.mu.Unlock()

		for _, in := range inputs {
			_ = in.stream.Close()
		}
		p.logger.Info("MIDI capture stopped and devices closed")
	})
	return nil
}
