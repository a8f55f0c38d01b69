package logging

import "github.com/cavemanloverboy/balancer/types"

// NopLogger discards all log messages. It is the default logger, keeping the
// library silent unless a caller opts in to logging.
type NopLogger struct{}

var _ types.Logger = (*NopLogger)(nil)

// NewNop creates a logger that discards everything.
func NewNop() *NopLogger {
	return &NopLogger{}
}

// Debug discards the message.
func (*NopLogger) Debug(_ string, _ ...any) {}

// Info discards the message.
func (*NopLogger) Info(_ string, _ ...any) {}

// Warn discards the message.
func (*NopLogger) Warn(_ string, _ ...any) {}

// Error discards the message.
func (*NopLogger) Error(_ string, _ ...any) {}

// Fatal discards the message and, unlike production loggers, does not
// terminate the process. Intentional, so tests using the default logger
// cannot be killed by a Fatal call.
func (*NopLogger) Fatal(_ string, _ ...any) {}
