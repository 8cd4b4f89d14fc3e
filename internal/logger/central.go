package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tphakala/gainguard/internal/errors"
)

// traceLevel sits below slog's Debug (-4).
const traceLevel = slog.Level(-8)

var (
	globalLogger   *CentralLogger
	globalLoggerMu sync.Mutex
)

// SetGlobal installs cl as the process-wide logger.
func SetGlobal(cl *CentralLogger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = cl
}

// Global returns the process-wide logger. Before SetGlobal it is an
// info-level console logger, so packages can log during start-up.
func Global() *CentralLogger {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	if globalLogger == nil {
		globalLogger = &CentralLogger{
			config:   &LoggingConfig{DefaultLevel: DefaultLogLevel},
			timezone: time.Local,
			handler:  newTextHandler(os.Stdout, slog.LevelInfo, time.Local),
			levels:   map[string]slog.Level{},
		}
	}
	return globalLogger
}

// CentralLogger owns the output handlers and hands out module loggers.
type CentralLogger struct {
	config   *LoggingConfig
	timezone *time.Location
	handler  slog.Handler
	file     *fileWriter // nil unless file output is enabled
	levels   map[string]slog.Level

	mu sync.RWMutex
}

// NewCentralLogger builds the console and file outputs described by cfg.
// Missing sections get defaults; cfg is updated in place.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	tz, err := loadTimezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	cl := &CentralLogger{
		config:   cfg,
		timezone: tz,
		levels:   make(map[string]slog.Level, len(cfg.ModuleLevels)),
	}
	for module, level := range cfg.ModuleLevels {
		cl.levels[module] = parseLogLevel(level)
	}

	var handlers []slog.Handler
	if cfg.Console.Enabled {
		handlers = append(handlers, newTextHandler(os.Stdout, parseLogLevel(cfg.Console.Level), tz))
	}
	if cfg.FileOutput.Enabled {
		w, err := openLogFile(cfg.FileOutput.Path)
		if err != nil {
			return nil, err
		}
		cl.file = w
		handlers = append(handlers, slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: parseLogLevel(cfg.FileOutput.Level),
		}))
	}

	switch len(handlers) {
	case 0:
		// Nothing configured still logs somewhere
		cl.handler = newTextHandler(os.Stdout, parseLogLevel(cfg.DefaultLevel), tz)
	case 1:
		cl.handler = handlers[0]
	default:
		cl.handler = newMultiWriterHandler(handlers...)
	}
	return cl, nil
}

func loadTimezone(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", name, err)
	}
	return tz, nil
}

func openLogFile(path string) (*fileWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}
	w, err := newFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return w, nil
}

// Module returns a logger tagged with module=name at the module's level.
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}

	cl.mu.RLock()
	level, ok := cl.levels[name]
	if !ok {
		level = parseLogLevel(cl.config.DefaultLevel)
	}
	handler := cl.handler
	cl.mu.RUnlock()

	return &moduleLogger{
		module: name,
		logger: slog.New(handler),
		level:  level,
	}
}

// Flush pushes buffered file output to the OS.
func (cl *CentralLogger) Flush() error {
	if cl == nil {
		return nil
	}
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	if cl.file == nil {
		return nil
	}
	return cl.file.Flush()
}

// Close flushes and closes the log file. Console output keeps working.
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.file == nil {
		return nil
	}
	err := cl.file.Close()
	cl.file = nil
	if err != nil {
		return errors.Newf("failed to close log file: %w", err).
			Component("logger").
			Category(errors.CategorySystem).
			Build()
	}
	return nil
}

// parseLogLevel maps a level name to slog, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return traceLevel
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewSlogLogger creates a standalone Logger writing text records to w,
// e.g. io.Discard or a bytes.Buffer in tests.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if tz == nil {
		tz = time.UTC
	}
	lvl := parseLogLevel(string(level))
	return &moduleLogger{
		logger: slog.New(newTextHandler(w, lvl, tz)),
		level:  lvl,
	}
}
