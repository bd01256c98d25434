package engine

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// Logger returns the package logger, a no-op logger until SetLogger is
// called.
func Logger() *zap.Logger {
	return logger.Load()
}

// SetLogger installs l, named "engine". A nil l restores the no-op logger.
// Safe to call while engines are running.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l.Named("engine"))
}
