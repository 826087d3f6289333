package logger

import (
	"os"

	"go.uber.org/zap"
)

type Logger interface {
	Info(msg string, values ...any)
	Warn(msg string, values ...any)
	Error(msg string, values ...any)
	Debug(msg string, values ...any)
	Panic(message string, values ...any)
	Fatal(error error, values ...any)
	Printf(format string, args ...interface{})
}

// Options selects the zap preset and the minimum level.
type Options struct {
	Production bool
	// Level is a zap level name; empty keeps the preset's default.
	Level string
}

func init() {
	if err := Configure(Options{
		Production: os.Getenv("LOG_ENV") == "production",
		Level:      os.Getenv("LOG_LEVEL"),
	}); err != nil {
		panic(err)
	}
}

// Configure replaces the package logger. Binaries call it once the config is
// loaded; init covers everything that logs earlier.
func Configure(opts Options) error {
	var config zap.Config
	if opts.Production {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	l, err := NewLogger(config)
	if err != nil {
		return err
	}
	if opts.Level != "" {
		if err = l.SetLevel(opts.Level); err != nil {
			return err
		}
	}
	setLogger(l)
	return nil
}

func Info(msg string, values ...any) {
	GetLogger().Info(msg, values...)
}

func Warn(msg string, values ...any) {
	GetLogger().Warn(msg, values...)
}

func Error(msg string, values ...any) {
	GetLogger().Error(msg, values...)
}

func Debug(msg string, values ...any) {
	GetLogger().Debug(msg, values...)
}

func Panic(msg string, values ...any) {
	GetLogger().Panic(msg, values...)
}

func Fatal(error error, values ...any) {
	GetLogger().Fatal(error, values...)
}

// With returns a child logger carrying the given key/value pairs.
func With(values ...any) *ZapLogger {
	return GetLogger().With(values...)
}

// Sync flushes buffered entries; call it before the process exits.
func Sync() {
	_ = GetLogger().log.Sync()
}
