package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is the logging level.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < Debug || l > Error {
		return "INFO"
	}
	return levelNames[l]
}

// Options configures the global logger.
type Options struct {
	Enabled bool
	Level   string
	File    string
	Console bool
}

type sink struct {
	level  Level
	logger *log.Logger
	closer io.Closer
}

var (
	mu     sync.RWMutex
	global *sink
)

// Init initializes the global logger. A disabled logger drops everything.
func Init(opts Options) error {
	if !opts.Enabled {
		swap(nil)
		return nil
	}

	var writers []io.Writer
	var closer io.Closer
	if opts.File != "" {
		if dir := filepath.Dir(opts.File); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}
	// stdout carries command output such as snapshots.
	if opts.Console || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	swap(&sink{
		level:  ParseLevel(opts.Level),
		logger: log.New(io.MultiWriter(writers...), "", 0),
		closer: closer,
	})
	return nil
}

// SetOutput routes log lines to w at the given level.
func SetOutput(w io.Writer, level string) {
	swap(&sink{level: ParseLevel(level), logger: log.New(w, "", 0)})
}

// Close flushes and releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if global == nil || global.closer == nil {
		return nil
	}
	err := global.closer.Close()
	global = nil
	return err
}

func swap(next *sink) {
	mu.Lock()
	prev := global
	global = next
	mu.Unlock()
	if prev != nil && prev.closer != nil {
		prev.closer.Close()
	}
}

// ParseLevel maps a config string to a Level, defaulting to Info.
func ParseLevel(levelStr string) Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func emit(level Level, format string, args ...interface{}) {
	mu.RLock()
	s := global
	mu.RUnlock()
	if s == nil || s.level > level {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05")
	s.logger.Printf("[%s] [%s] %s", ts, level, fmt.Sprintf(format, args...))
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) { emit(Debug, format, args...) }

// Infof logs an info message.
func Infof(format string, args ...interface{}) { emit(Info, format, args...) }

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) { emit(Warn, format, args...) }

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) { emit(Error, format, args...) }
