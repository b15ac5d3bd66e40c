package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/leandrodaf/midistream/internal/logger"
	"github.com/leandrodaf/midistream/internal/transport"
	"github.com/leandrodaf/midistream/sdk/contracts"
	"github.com/leandrodaf/midistream/sdk/midi"
)

type noteLogger struct {
	log contracts.Logger
}

func (n *noteLogger) OnNoteOn(deviceID string, channel, note, velocity int) {
	n.log.Info("Note On",
		n.log.Field().String("deviceID", deviceID),
		n.log.Field().Int("channel", channel),
		n.log.Field().Int("note", note),
		n.log.Field().Int("velocity", velocity))
}

func (n *noteLogger) OnNoteOff(deviceID string, channel, note, velocity int) {
	n.log.Info("Note Off",
		n.log.Field().String("deviceID", deviceID),
		n.log.Field().Int("channel", channel),
		n.log.Field().Int("note", note))
}

func main() {
	log := logger.NewStandardLogger()

	manager, err := midi.NewMIDIManager(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithDeviceListener(func(ev contracts.DeviceEvent) {
			log.Info("Device event",
				log.Field().String("deviceID", ev.ID),
				log.Field().String("direction", ev.Direction.String()),
				log.Field().Bool("attached", ev.Attached))
		}),
	)
	if err != nil {
		log.Error("Failed to initialize MIDI manager", log.Field().Error("error", err))
		return
	}
	defer manager.Close()

	manager.Subscribe(&noteLogger{log: log})

	listener, err := transport.ListenTCP(":5004")
	if err != nil {
		log.Error("Failed to listen for MIDI peers", log.Field().Error("error", err))
		return
	}
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			manager.AttachInput(conn.RemoteAddr().String(), conn)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("Listening for MIDI peers on", listener.Addr(), "... Press Ctrl+C to exit.")
	_ = manager.Run(ctx)
}
