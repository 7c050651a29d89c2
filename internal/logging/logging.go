// Package logging builds the zap loggers used across keepvault.
//
// Loggers never receive passwords, recovery codes, keys or record contents;
// only owner ids, counts and timings.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// ParseLevel maps a level name to a zap level, defaulting to warn.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.WarnLevel
	}
}

// New returns a console logger writing to w at the given level.
func New(level zapcore.Level, w io.Writer) *zap.Logger {
	ec := zapcore.EncoderConfig{
		LevelKey:         "l",
		NameKey:          "n",
		MessageKey:       "m",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}

	if color.NoColor {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(ec),
		zapcore.AddSync(w),
		level,
	))
}

// Module returns a named sugared logger for one package.
func Module(root *zap.Logger, name string) *zap.SugaredLogger {
	return root.Named(name).Sugar()
}

// Stderr is New writing to os.Stderr.
func Stderr(level string) *zap.Logger {
	return New(ParseLevel(level), os.Stderr)
}
