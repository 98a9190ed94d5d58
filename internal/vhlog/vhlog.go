// Package vhlog wires structured logging into the vh core. It follows
// the package-level *zap.Logger + injectable-constructor-option idiom
// visible across the retrieved pack (e.g. lychee-technology/forma's
// queryoptimizer package), rather than the plain "log" package the
// teacher repo used — the domain stack substitutes zap in every
// ambient logging call site.
package vhlog

import "go.uber.org/zap"

// Option configures a Logger at construction time.
type Option func(*options)

type options struct {
	zap *zap.Logger
}

// WithZap overrides the underlying *zap.Logger. Omit it to get a no-op
// logger, matching the pattern used throughout the pack for libraries
// that must not force logging output on unconfigured callers.
func WithZap(l *zap.Logger) Option {
	return func(o *options) { o.zap = l }
}

// Logger wraps a *zap.Logger with a handful of printf-style level
// helpers; cmd/vhsql is its user.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger, defaulting to a no-op zap.Logger when no
// WithZap option is supplied.
func New(opts ...Option) *Logger {
	o := options{zap: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Logger{z: o.zap}
}

// Zap exposes the underlying *zap.Logger for callers that want direct
// structured-field logging.
func (l *Logger) Zap() *zap.Logger { return l.z }

// Debugf, Infof, Warnf, Errorf format a message at the named level.
// These exist for call sites translating directly from the original
// elog(LEVEL, emsg(...)) call shape; new code should prefer the
// structured Zap() accessor.
func (l *Logger) Debugf(format string, args ...any) { l.z.Sugar().Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.z.Sugar().Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.z.Sugar().Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.z.Sugar().Errorf(format, args...) }

// Sync flushes any buffered log entries. Callers should defer Sync()
// after constructing a process-level Logger.
func (l *Logger) Sync() error { return l.z.Sync() }
