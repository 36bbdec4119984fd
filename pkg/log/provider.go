package log

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = NewZerologLogger(os.Stderr, LevelInfo, false)
)

// GetLogger returns the process-wide default logger.
func GetLogger() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetLogger replaces the process-wide default logger. Passing nil installs
// a logger that discards everything.
func SetLogger(l Logger) {
	if l == nil {
		l = NopLogger()
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Named returns the default logger tagged with a component name.
func Named(component string) Logger {
	return GetLogger().With(ComponentKey, component)
}

// NopLogger returns a logger that discards all records.
func NopLogger() Logger {
	return &ZerologLogger{zl: zerolog.Nop()}
}
