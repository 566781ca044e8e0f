package logger

import (
	"go.uber.org/zap"
)

// Log is the process-wide logger. It is a no-op logger until Init or InitWith
// is called so packages can log safely from tests.
var Log = zap.NewNop().Sugar()

func Init() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// InitWith installs an already built logger.
func InitWith(l *zap.Logger) {
	Log = l.Sugar()
}

// Sync flushes buffered entries; the error from syncing stderr on some
// platforms is ignored.
func Sync() {
	_ = Log.Sync()
}
