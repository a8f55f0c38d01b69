package types

// Logger defines methods for structured logging.
//
// Compatible with zap.SugaredLogger and other key-value structured loggers.
// The library logs nothing by default; a verbose Balancer emits diagnostic
// timing and progress information through this interface.
type Logger interface {
	// Debug logs a message at debug level with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at info level with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at warn level with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at error level with optional key-value pairs.
	Error(msg string, keysAndValues ...any)

	// Fatal logs a message at the highest severity and then terminates the
	// process. Production implementations call os.Exit(1); test and no-op
	// implementations may skip termination.
	Fatal(msg string, keysAndValues ...any)
}
