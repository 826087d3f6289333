package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ZapLogger struct {
	log   *zap.SugaredLogger
	level zap.AtomicLevel
}

var current atomic.Pointer[ZapLogger]

// NewLogger builds a logger from config. The caller skip accounts for the
// package-level helpers sitting between the call site and zap.
func NewLogger(config zap.Config) (*ZapLogger, error) {
	l, err := config.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{log: l.Sugar(), level: config.Level}, nil
}

func setLogger(l *ZapLogger) {
	current.Store(l)
}

func GetLogger() *ZapLogger {
	l := current.Load()
	if l == nil {
		panic("logger not initialized")
	}
	return l
}

// SetLevel changes the minimum level of l and of every child made by With.
func (l *ZapLogger) SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(lvl)
	return nil
}

func (l *ZapLogger) Level() zapcore.Level {
	return l.level.Level()
}

// With is not wrapped by a package helper, so it drops one caller frame.
func (l *ZapLogger) With(values ...any) *ZapLogger {
	return &ZapLogger{
		log:   l.log.Desugar().WithOptions(zap.AddCallerSkip(-1)).Sugar().With(values...),
		level: l.level,
	}
}

func (l *ZapLogger) Panic(message string, values ...any) {
	l.log.Panicw(message, values...)
}

func (l *ZapLogger) Fatal(err error, values ...any) {
	l.log.Fatalw(err.Error(), values...)
}

func (l *ZapLogger) Info(message string, values ...any) {
	l.log.Infow(message, values...)
}

func (l *ZapLogger) Warn(message string, values ...any) {
	l.log.Warnw(message, values...)
}

func (l *ZapLogger) Error(message string, values ...any) {
	l.log.Errorw(message, values...)
}

func (l *ZapLogger) Debug(message string, values ...any) {
	l.log.Debugw(message, values...)
}

// Printf lets fasthttp and goose write through the same sink.
func (l *ZapLogger) Printf(format string, args ...interface{}) {
	l.log.Infof(format, args...)
}
