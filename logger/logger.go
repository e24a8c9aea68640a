package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const name = "protoc-gen-go-plan"

// syncWriter adapts a plain writer to zapcore.WriteSyncer.
type syncWriter struct {
	w io.Writer
}

func (s syncWriter) Write(p []byte) (n int, err error) {
	return s.w.Write(p)
}

func (s syncWriter) Sync() error {
	if f, ok := s.w.(*os.File); ok {
		return f.Sync()
	}
	return nil
}

// ParseLevel falls back to info on empty or malformed input.
func ParseLevel(s string) zapcore.Level {
	if s == "" {
		return zapcore.InfoLevel
	}
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// openLogFile truncates path or falls back to stderr when path is empty.
// protoc owns stdout, so plugin logs never go there.
func openLogFile(path string) *os.File {
	if path == "" {
		return os.Stderr
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		panic(err)
	}
	return f
}

// New builds a console logger writing to w.
func New(w io.Writer, level zapcore.Level) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		TimeKey:        "ts",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
	return zap.New(zapcore.NewCore(enc, syncWriter{w: w}, level)).Named(name)
}

var sink = openLogFile(os.Getenv("LOG_FILE"))

// Logger is configured from LOG_LEVEL and LOG_FILE.
var Logger = New(sink, ParseLevel(os.Getenv("LOG_LEVEL")))

// SetLevel replaces Logger with one at level, keeping the sink. Child
// loggers created before the call keep the old level.
func SetLevel(level zapcore.Level) {
	Logger = New(sink, level)
}

func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}
