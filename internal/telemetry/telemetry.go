// Package telemetry builds the structured loggers the VM and CLI use.
// Cycle-level trace events only exist at debug level behind the
// enable_tracing option; without it only warnings and errors are logged.
package telemetry

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger. With tracing enabled the level
// drops to Debug so per-cycle events are emitted; otherwise only
// warnings and errors (traps, config problems) reach the terminal.
func NewLogger(tracing bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if tracing {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// Nop returns a logger that discards everything, for tests and library
// callers that bring their own logging.
func Nop() *zap.Logger { return zap.NewNop() }
