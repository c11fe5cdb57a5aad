package logging

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger writing to standard output.
func New(level zapcore.Level, production bool) (*zap.Logger, func()) {
	return NewWithWriter(zapcore.Lock(os.Stdout), level, production)
}

// NewWithWriter builds a logger writing to w. Production logs are JSON,
// development logs use the console encoder. Stacktraces only come with
// error level logs. The returned func flushes any buffered entries.
func NewWithWriter(w zapcore.WriteSyncer, level zapcore.Level, production bool) (*zap.Logger, func()) {
	var encoder zapcore.Encoder
	if production {
		zapConfig := zap.NewProductionEncoderConfig()
		zapConfig.TimeKey = "timestamp"
		zapConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(zapConfig)
	} else {
		zapConfig := zap.NewDevelopmentEncoderConfig()
		zapConfig.TimeKey = "timestamp"
		zapConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(zapConfig)
	}

	core := zapcore.NewCore(encoder, w, level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	flusher := func() {
		if err := logger.Sync(); err != nil {
			log.Println("error during flushing any buffered log entries:", err)
		}
	}
	return logger, flusher
}
