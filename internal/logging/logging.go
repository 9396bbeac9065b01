// Package logging builds named zap loggers that render every line with a fixed
// template and carry the identity of the user running the process.
package logging

import (
	"os"
	"os/user"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// UserKey is the field under which the resolved OS user is bound.
	UserKey = "user"
	// DefaultName names loggers created when a caller supplies none.
	DefaultName = "etl_tools"
)

// Logger is a named zap logger with a fixed set of output handlers.
// The embedded *zap.Logger is what loaders and writers accept.
type Logger struct {
	*zap.Logger
	name     string
	user     string
	level    zapcore.Level
	handlers []zapcore.WriteSyncer
}

// currentUser resolves the OS-level identity of the process owner.
// Overridden in tests.
var currentUser = func() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// New builds a logger named name that writes to every handler at or above level.
// Each handler gets its own core sharing the template encoder, so handlers are
// independent sinks receiving identical lines. The current user is resolved once
// here and bound to every line.
func New(name string, level zapcore.Level, handlers ...zapcore.WriteSyncer) *Logger {
	usr := resolveUser()
	enc := newTemplateEncoder()

	cores := make([]zapcore.Core, 0, len(handlers))
	for _, h := range handlers {
		cores = append(cores, zapcore.NewCore(enc, h, level))
	}

	zl := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	).Named(name).With(zap.String(UserKey, usr))

	return &Logger{
		Logger:   zl,
		name:     name,
		user:     usr,
		level:    level,
		handlers: append([]zapcore.WriteSyncer(nil), handlers...),
	}
}

// Console returns an info-level logger writing to stderr.
// It stands in wherever a caller passes no logger.
func Console(name string) *Logger {
	return New(name, zapcore.InfoLevel, zapcore.Lock(os.Stderr))
}

// Name returns the logger name.
func (l *Logger) Name() string { return l.name }

// User returns the user identity bound at creation.
func (l *Logger) User() string { return l.user }

// Level returns the minimum level shared by the logger and its handlers.
func (l *Logger) Level() zapcore.Level { return l.level }

// Handlers returns the number of output handlers attached to the logger.
func (l *Logger) Handlers() int { return len(l.handlers) }

// resolveUser falls back to the usual environment variables, then to "unknown",
// when the OS lookup fails (e.g. in scratch containers without /etc/passwd).
func resolveUser() string {
	if name, err := currentUser(); err == nil && name != "" {
		return name
	}
	for _, key := range []string{"USER", "USERNAME", "LOGNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "unknown"
}

// Registry hands out loggers by name. Asking for a name again replaces the
// previous logger and drops its handlers instead of stacking new ones on top.
type Registry struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{loggers: make(map[string]*Logger)}
}

// Get builds a fresh logger for name, discarding whatever was registered under it.
func (r *Registry) Get(name string, level zapcore.Level, handlers ...zapcore.WriteSyncer) *Logger {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.loggers[name]; ok {
		// Flush buffered lines of the old handlers before they are dropped.
		_ = prev.Sync()
	}
	lg := New(name, level, handlers...)
	r.loggers[name] = lg
	return lg
}

// Lookup returns the logger currently registered under name.
func (r *Registry) Lookup(name string) (*Logger, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lg, ok := r.loggers[name]
	return lg, ok
}
