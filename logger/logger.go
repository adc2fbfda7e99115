package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	gormlogger "gorm.io/gorm/logger"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Config struct {
	Level        Level  `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format       string `yaml:"format" validate:"omitempty,oneof=json text"`
	Output       string `yaml:"output"` // stdout, stderr or a file path
	EnableCaller bool   `yaml:"enable_caller"`
	Component    string `yaml:"component"`
	Environment  string `yaml:"environment"`
}

// Logger wraps slog.Logger with component scoping and caller info on errors.
type Logger struct {
	*slog.Logger
	config Config
	output io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:        LevelInfo,
		Format:       "json",
		Output:       "stdout",
		EnableCaller: true,
		Environment:  "development",
	}
}

func New(config Config) *Logger {
	var output io.Writer
	switch config.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		if file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666); err == nil {
			output = file
		} else {
			output = os.Stdout
		}
	}
	return NewWithWriter(config, output)
}

// NewWithWriter builds a logger that writes to w regardless of config.Output.
func NewWithWriter(config Config, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.slogLevel()}

	var handler slog.Handler
	if config.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(handler)
	if config.Component != "" {
		l = l.With("component", config.Component)
	}
	if config.Environment != "" {
		l = l.With("environment", config.Environment)
	}

	return &Logger{Logger: l, config: config, output: w}
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *Logger {
	return NewWithWriter(Config{Level: LevelError}, io.Discard)
}

func (l *Logger) WithContext(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		config: l.config,
		output: l.output,
	}
}

func (l *Logger) WithComponent(component string) *Logger {
	return l.WithContext("component", component)
}

// Error logs at error level and appends the caller when enabled.
func (l *Logger) Error(msg string, args ...any) {
	if l.config.EnableCaller {
		if _, file, line, ok := runtime.Caller(1); ok {
			args = append(args, "caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
		}
	}
	l.Logger.Error(msg, args...)
}

// GormLevel maps the configured level onto gorm's logger levels.
func (l *Logger) GormLevel() gormlogger.LogLevel {
	switch l.config.Level {
	case LevelDebug:
		return gormlogger.Info
	case LevelWarn:
		return gormlogger.Warn
	case LevelError:
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}

func (l *Logger) Close() error {
	if l.output == os.Stdout || l.output == os.Stderr {
		return nil
	}
	if closer, ok := l.output.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (lv Level) slogLevel() slog.Level {
	switch lv {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
