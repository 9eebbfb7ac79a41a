package host

import (
	"go.uber.org/zap"
)

// DefaultMaxDiagnosticSize bounds how far the host scans guest memory for
// the terminator of a diagnostic.
const DefaultMaxDiagnosticSize = 1 * 1024 * 1024

// DefaultMaxLogMessageSize limits the size of a log record read from a guest.
const DefaultMaxLogMessageSize = 1 * 1024 * 1024

// Option defines a functional option for configuring the Executor.
type Option func(*executorConfig)

type executorConfig struct {
	logger            *zap.Logger
	memoryLimitPages  uint32
	maxDiagnosticSize uint32
	maxLogMessageSize uint32
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		logger:            zap.NewNop(),
		maxDiagnosticSize: DefaultMaxDiagnosticSize,
		maxLogMessageSize: DefaultMaxLogMessageSize,
	}
}

// WithLogger sets the logger for engine events and guest log records.
// The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *executorConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMemoryLimitPages caps each guest's linear memory, in 64KiB pages.
// Zero keeps wazero's default.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

// WithMaxDiagnosticSize bounds diagnostic text read from a guest.
func WithMaxDiagnosticSize(n uint32) Option {
	return func(c *executorConfig) {
		if n > 0 {
			c.maxDiagnosticSize = n
		}
	}
}

// WithMaxLogMessageSize limits the size of a log record read from a guest.
// Larger records are dropped.
func WithMaxLogMessageSize(n uint32) Option {
	return func(c *executorConfig) {
		if n > 0 {
			c.maxLogMessageSize = n
		}
	}
}
