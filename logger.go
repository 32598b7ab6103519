package familysearch

import (
	"os"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Logger is the key/value logging interface the client writes to. An
// hclog.Logger satisfies it directly.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NewSimpleLogger returns a debug-level hclog logger writing to stderr.
func NewSimpleLogger() Logger {
	return NewLogger(hclog.New(&hclog.LoggerOptions{
		Name:   "familysearch",
		Level:  hclog.Debug,
		Output: os.Stderr,
	}))
}

// NewLogger names an existing hclog logger for client output.
func NewLogger(base hclog.Logger) Logger {
	if base == nil {
		return hclog.NewNullLogger()
	}
	return base.Named("familysearch")
}

// DebugConfig selects which debug events are logged.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogDiscovery bool
	LogAuth      bool
	LogRedirects bool
	RequestIDGen func() string
}

// DefaultDebugConfig returns a disabled config with every category on.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogDiscovery: true,
		LogAuth:      true,
		LogRedirects: true,
		RequestIDGen: uuid.NewString,
	}
}
