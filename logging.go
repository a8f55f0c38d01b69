package balancer

import (
	"log/slog"

	"github.com/cavemanloverboy/balancer/internal/logging"
)

// NewSlogLogger wraps a structured logger for use with WithLogger and the
// group join functions.
//
// Parameters:
//   - logger: slog logger to wrap (slog.Default() if nil)
//
// Returns:
//   - Logger: Adapter emitting through the slog logger; Fatal logs at error
//     level and exits the process
//
// Example:
//
//	logger := balancer.NewSlogLogger(slog.Default())
//	bal, err := balancer.New[int, int](g, true, balancer.WithLogger(logger))
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		return logging.NewSlogDefault()
	}

	return logging.NewSlog(logger)
}
