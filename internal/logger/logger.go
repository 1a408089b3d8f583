// Package logger builds the zap logger used across the interview agent and
// keeps the structured field names in one place.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Interview output goes to stdout, so logs always go to stderr.
const output = "stderr"

func New(json bool, debug bool) (*zap.Logger, error) {
	return config(json, debug).Build(zap.WithCaller(debug))
}

func config(json bool, debug bool) zap.Config {
	encoding := "console"
	if json {
		encoding = "json"
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	return zap.Config{
		Encoding:          encoding,
		Level:             zap.NewAtomicLevelAt(level),
		DisableStacktrace: !debug,
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{output},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "step",
			NameKey:    "component",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			EncodeDuration: zapcore.StringDurationEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}
}
