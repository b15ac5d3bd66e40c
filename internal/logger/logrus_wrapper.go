package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/leandrodaf/midistream/sdk/contracts"
	log "github.com/sirupsen/logrus"
)

// ownerFormatter prefixes every message with the owning component.
type ownerFormatter struct {
	owner string
	lf    log.Formatter
}

// Format satisfies the log.Formatter interface.
func (f *ownerFormatter) Format(e *log.Entry) ([]byte, error) {
	if f.owner != "" {
		e.Message = fmt.Sprintf("[%s] %s", f.owner, e.Message)
	}
	return f.lf.Format(e)
}

// LogrusLogger implements contracts.Logger on top of logrus.
type LogrusLogger struct {
	logger *log.Logger
}

// NewStandardLogger returns a text logger on stderr with full timestamps.
func NewStandardLogger() contracts.Logger {
	return NewLogrusLogger("midistream", os.Stderr)
}

// NewLogrusLogger returns a logger whose messages are prefixed with owner.
func NewLogrusLogger(owner string, out io.Writer) contracts.Logger {
	l := log.New()
	l.SetOutput(out)
	l.SetLevel(log.InfoLevel)
	l.SetFormatter(&ownerFormatter{
		owner: owner,
		lf: &log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.StampMilli,
		},
	})
	return &LogrusLogger{logger: l}
}

// Info logs msg at info level with the given fields.
func (l *LogrusLogger) Info(msg string, fields ...contracts.Field) {
	l.entry(fields).Info(msg)
}

// Error logs msg at error level with the given fields.
func (l *LogrusLogger) Error(msg string, fields ...contracts.Field) {
	l.entry(fields).Error(msg)
}

// Debug logs msg at debug level with the given fields.
func (l *LogrusLogger) Debug(msg string, fields ...contracts.Field) {
	l.entry(fields).Debug(msg)
}

// Warn logs msg at warn level with the given fields.
func (l *LogrusLogger) Warn(msg string, fields ...contracts.Field) {
	l.entry(fields).Warn(msg)
}

// Fatal logs msg and exits the process.
func (l *LogrusLogger) Fatal(msg string, fields ...contracts.Field) {
	l.entry(fields).Fatal(msg)
}

// Field returns a builder for structured fields.
func (l *LogrusLogger) Field() contracts.Field {
	return &zapField{}
}

// SetLevel changes the minimum level logged. Unknown levels mean info.
func (l *LogrusLogger) SetLevel(level contracts.LogLevel) {
	switch level {
	case contracts.DebugLevel:
		l.logger.SetLevel(log.DebugLevel)
	case contracts.WarnLevel:
		l.logger.SetLevel(log.WarnLevel)
	case contracts.ErrorLevel:
		l.logger.SetLevel(log.ErrorLevel)
	case contracts.FatalLevel:
		l.logger.SetLevel(log.FatalLevel)
	default:
		l.logger.SetLevel(log.InfoLevel)
	}
}

// SetDestination sends output to the file at filePath[0] when dest is
// FileLog, or to stderr otherwise. A file that cannot be opened leaves the
// current output in place.
func (l *LogrusLogger) SetDestination(dest contracts.LogDestination, filePath ...string) {
	if dest != contracts.FileLog || len(filePath) == 0 {
		l.logger.SetOutput(os.Stderr)
		return
	}
	f, err := os.OpenFile(filePath[0], os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.logger.WithError(err).Error("failed to open log file")
		return
	}
	l.logger.SetOutput(f)
}

func (l *LogrusLogger) entry(fields []contracts.Field) *log.Entry {
	data := make(log.Fields, len(fields))
	for _, field := range fields {
		if f, ok := field.(*zapField); ok && f.key != "" {
			data[f.key] = f.value
		}
	}
	return l.logger.WithFields(data)
}
