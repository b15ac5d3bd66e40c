package contracts

import (
	"context"
	"time"
)

// Redialer reopens the stream for a device that disconnected while its
// endpoint is still reachable. Returning an error counts as a failed attempt.
type Redialer func(ctx context.Context, deviceID string, dir Direction) (Stream, error)

// ReconnectPolicy bounds redial attempts after a disconnect.
// Attempts are counted per endpoint and are only forgiven once a redialed
// device stays attached for StableAfter, so a peer that keeps accepting and
// dropping is abandoned after MaxAttempts.
type ReconnectPolicy struct {
	MaxAttempts int           // Attempts before the endpoint is abandoned.
	BaseBackoff time.Duration // Delay before the first attempt, doubled after each attempt.
	StableAfter time.Duration // Time attached before the attempt count resets.
}

// CoreMIDIConfig holds configuration for CoreMIDI.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client.
}

// Options defines the configuration options for the MIDI manager and devices.
type Options struct {
	Logger          Logger            // Logger for logging events and errors.
	LogLevel        LogLevel          // Level of logging to use.
	PollInterval    time.Duration     // Cadence of the input polling loop.
	ReadBufferSize  int               // Bytes read from a stream per poll.
	ReadTimeout     time.Duration     // Upper bound on a single poll read, when the stream supports deadlines.
	MaxSysExSize    int               // Largest SysEx frame buffered; negative disables the limit.
	WorkerPoolSize  int               // Goroutines polling input devices concurrently.
	DeviceListener  func(DeviceEvent) // Called on every attach and detach.
	Redialer        Redialer          // Optional; enables bounded reconnects.
	ReconnectPolicy ReconnectPolicy   // Limits for Redialer.
	CoreMIDIConfig  *CoreMIDIConfig   // Configuration specific to CoreMIDI.
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(opts *Options) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level LogLevel) Option {
	return func(opts *Options) {
		opts.LogLevel = level
	}
}

// WithPollInterval sets how often input devices are polled.
func WithPollInterval(d time.Duration) Option {
	return func(opts *Options) {
		opts.PollInterval = d
	}
}

// WithReadBufferSize sets the per-poll read buffer capacity.
func WithReadBufferSize(n int) Option {
	return func(opts *Options) {
		opts.ReadBufferSize = n
	}
}

// WithReadTimeout bounds each poll read on streams that support deadlines.
func WithReadTimeout(d time.Duration) Option {
	return func(opts *Options) {
		opts.ReadTimeout = d
	}
}

// WithMaxSysExSize caps buffered SysEx frames. A negative size means unbounded.
func WithMaxSysExSize(n int) Option {
	return func(opts *Options) {
		opts.MaxSysExSize = n
	}
}

// WithWorkerPoolSize sets the number of concurrent poll workers.
func WithWorkerPoolSize(n int) Option {
	return func(opts *Options) {
		opts.WorkerPoolSize = n
	}
}

// WithDeviceListener registers a callback for attach and detach notifications.
func WithDeviceListener(fn func(DeviceEvent)) Option {
	return func(opts *Options) {
		opts.DeviceListener = fn
	}
}

// WithRedialer enables reconnecting devices that disconnect on their own.
func WithRedialer(r Redialer) Option {
	return func(opts *Options) {
		opts.Redialer = r
	}
}

// WithReconnectPolicy sets the redial attempt cap and base backoff.
func WithReconnectPolicy(maxAttempts int, baseBackoff time.Duration) Option {
	return func(opts *Options) {
		opts.ReconnectPolicy.MaxAttempts = maxAttempts
		opts.ReconnectPolicy.BaseBackoff = baseBackoff
	}
}

// WithReconnectStableAfter sets how long a redialed device must stay attached
// before its attempt count is reset.
func WithReconnectStableAfter(d time.Duration) Option {
	return func(opts *Options) {
		opts.ReconnectPolicy.StableAfter = d
	}
}

// WithCoreMIDIConfig sets the CoreMIDI configuration.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *Options) {
		opts.CoreMIDIConfig = &config
	}
}
