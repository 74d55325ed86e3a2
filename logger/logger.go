// Package logger holds the process-wide sqltags logger.
//
// The core packages (tagset, sqltags) emit soft-fail warnings and verbose
// change records through this logger rather than raising errors, so it must
// always be safe to call.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger instance.
	Logger *zap.SugaredLogger

	// Verbose controls whether tag change records are logged at Info
	// rather than Debug level.
	Verbose bool
)

func init() {
	// Safe no-op logger at package load time so core packages can log
	// before Initialize is called.
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger.
// With jsonOutput true it emits machine-readable JSON records;
// otherwise it emits human-readable console output to stderr.
func Initialize(jsonOutput bool) error {
	var zapLogger *zap.Logger
	var err error

	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		zapLogger, err = config.Build()
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.TimeKey = ""
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encoderConfig),
				zapcore.AddSync(os.Stderr),
				zap.InfoLevel,
			),
		)
	}

	if err != nil {
		return err
	}

	Logger = zapLogger.Sugar()
	return nil
}

// Changed logs a tag change record. Change records are informational when
// Verbose is set and debug noise otherwise.
func Changed(msg string, keysAndValues ...interface{}) {
	if Verbose {
		Logger.Infow(msg, keysAndValues...)
	} else {
		Logger.Debugw(msg, keysAndValues...)
	}
}
