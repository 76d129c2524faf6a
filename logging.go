package simidx

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// Logger wraps slog.Logger with simidx-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithIndex adds the index name field to the logger.
func (l *Logger) WithIndex(name string) *Logger {
	return &Logger{Logger: l.Logger.With("index", name)}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, found int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed", "k", k, "error", err)
	} else {
		l.DebugContext(ctx, "search completed", "k", k, "results", found)
	}
}

// LogAdd logs a vector/document ingestion.
func (l *Logger) LogAdd(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed", "count", count, "error", err)
	} else {
		l.DebugContext(ctx, "add completed", "count", count)
	}
}

// LogSnapshot logs a save/load operation.
func (l *Logger) LogSnapshot(ctx context.Context, target string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed", "target", target, "error", err)
	} else {
		l.InfoContext(ctx, "snapshot completed", "target", target)
	}
}

// Process-wide library logging.
//
// The library root logger is configured lazily on first use and shared by
// every component that is not given an explicit logger. Verbosity and the
// default stderr handler can be toggled at runtime.

var (
	logMu          sync.Mutex
	logLevel       slog.LevelVar // defaults to Info
	rootHandler    *switchableHandler
	rootLogger     *Logger
	handlerEnabled bool
)

// switchableHandler forwards records to a swappable target handler.
type switchableHandler struct {
	mu     sync.RWMutex
	target slog.Handler
}

func (h *switchableHandler) current() slog.Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.target
}

func (h *switchableHandler) set(target slog.Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.target = target
}

func (h *switchableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.current().Enabled(ctx, level)
}

func (h *switchableHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.current().Handle(ctx, r)
}

func (h *switchableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &switchableHandler{target: h.current().WithAttrs(attrs)}
}

func (h *switchableHandler) WithGroup(name string) slog.Handler {
	return &switchableHandler{target: h.current().WithGroup(name)}
}

func defaultHandler() slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel})
}

// configureRootLogger lazily sets up the library root logger.
// Callers must hold logMu.
func configureRootLogger() {
	if rootLogger != nil {
		return
	}
	logLevel.Set(slog.LevelInfo)
	rootHandler = &switchableHandler{target: defaultHandler()}
	rootLogger = &Logger{Logger: slog.New(rootHandler)}
	handlerEnabled = true
}

// GetLogger returns the library logger, optionally scoped by a component name.
func GetLogger(name ...string) *Logger {
	logMu.Lock()
	configureRootLogger()
	l := rootLogger
	logMu.Unlock()

	if len(name) > 0 && name[0] != "" {
		return &Logger{Logger: l.Logger.With("component", name[0])}
	}
	return l
}

// SetVerbosity sets the minimum level emitted by the library logger.
func SetVerbosity(level slog.Level) {
	logMu.Lock()
	defer logMu.Unlock()
	configureRootLogger()
	logLevel.Set(level)
}

// Verbosity returns the current minimum level of the library logger.
func Verbosity() slog.Level {
	logMu.Lock()
	defer logMu.Unlock()
	configureRootLogger()
	return logLevel.Level()
}

// EnableDefaultHandler routes library logs to the default stderr handler.
func EnableDefaultHandler() {
	logMu.Lock()
	defer logMu.Unlock()
	configureRootLogger()
	if !handlerEnabled {
		rootHandler.set(defaultHandler())
		handlerEnabled = true
	}
}

// DisableDefaultHandler discards all library log output.
func DisableDefaultHandler() {
	logMu.Lock()
	defer logMu.Unlock()
	configureRootLogger()
	if handlerEnabled {
		rootHandler.set(slog.DiscardHandler)
		handlerEnabled = false
	}
}
