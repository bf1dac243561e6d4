package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger keeps the printf-style call sites used across the service while
// writing through zap.
type Logger struct {
	sugar *zap.SugaredLogger
}

func New(level string) *Logger {
	return NewWithFile(level, "")
}

// NewWithFile logs to stdout and, when path is set, also writes warnings and
// errors to a rotated file.
func NewWithFile(level, path string) *Logger {
	lvl := parseLevel(level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), lvl),
	}
	if path != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(rotated(path)),
			zapcore.WarnLevel,
		))
	}

	return &Logger{sugar: zap.New(zapcore.NewTee(cores...)).Sugar()}
}

// NewRunLog opens a human-readable log for one shop run. The returned close
// func flushes and releases the file.
func NewRunLog(dir, name string) (*Logger, func() error, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeCaller = nil

	w := rotated(filepath.Join(dir, name))
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), zapcore.DebugLevel)
	sugar := zap.New(core).Sugar()

	closeFn := func() error {
		_ = sugar.Sync()
		return w.Close()
	}
	return &Logger{sugar: sugar}, closeFn, nil
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Tee returns a logger that writes to both l and other.
func (l *Logger) Tee(other *Logger) *Logger {
	core := zapcore.NewTee(l.sugar.Desugar().Core(), other.sugar.Desugar().Core())
	return &Logger{sugar: zap.New(core).Sugar()}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.sugar.Infof(msg, args...)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugf(msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.sugar.Warnf(msg, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.sugar.Errorf(msg, args...)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.sugar.Fatalf(msg, args...)
}

func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

func rotated(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20,
		MaxBackups: 10,
		MaxAge:     30,
	}
}

func parseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
