// Package logging wraps logrus with the structured-field conventions
// used across every service in this core.
package logging

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger so call sites can depend on a narrow type
// instead of the global logrus package.
type Logger struct {
	*logrus.Logger
}

// Config controls level/format/output the same way across every
// deployment environment.
type Config struct {
	Level  string
	Format string
}

// New builds a Logger from Config, defaulting to info/text on stdout
// when a field is left blank or unparsable.
func New(cfg Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	l.SetOutput(os.Stdout)

	return &Logger{Logger: l}
}

type ctxKeyType struct{}

var ctxKey = ctxKeyType{}

// WithContext attaches a logging.Logger to ctx so downstream code can
// retrieve a correctly-scoped entry without threading it explicitly.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey, l)
}

// FromContext returns the Logger attached to ctx, or a default
// stdout/info logger if none was attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey).(*Logger); ok {
		return l
	}
	return New(Config{Level: "info", Format: "text"})
}

// Entry builds a log entry carrying the standard correlation fields
// used by the tracker, processor, and scheduler: trace_id, user_id, and
// the owning service name.
func (l *Logger) Entry(service, traceID, userID string) *logrus.Entry {
	fields := logrus.Fields{"service": service}
	if traceID != "" {
		fields["trace_id"] = traceID
	}
	if userID != "" {
		fields["user_id"] = userID
	}
	return l.WithFields(fields)
}
