// Package logging builds the zap logger shared by the CLI and the server.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level, encoding and an optional rotated log file.
type Options struct {
	Level  string // debug|info|warn|error
	Format string // console|json
	// File, when set, receives JSON logs rotated by lumberjack.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Console is where console output goes; defaults to stderr.
	Console io.Writer
}

// New returns a logger writing to the console and, if configured, to a
// rotated file. Stdout stays reserved for command output.
func New(o Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(o.Level))
	if err != nil && o.Level != "" {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	if o.Level == "" {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encCfg)

	var consoleEncoder zapcore.Encoder
	switch o.Format {
	case "", "console":
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	case "json":
		consoleEncoder = jsonEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", o.Format)
	}
	out := o.Console
	if out == nil {
		out = os.Stderr
	}
	cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(out)), level)}

	if o.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    orDefault(o.MaxSizeMB, 10),
			MaxBackups: orDefault(o.MaxBackups, 5),
			MaxAge:     orDefault(o.MaxAgeDays, 30),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), level))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func orDefault(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}
