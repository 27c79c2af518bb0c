// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"log/slog"
	"os"

	ethlog "github.com/ethereum/go-ethereum/log"
)

// Levels re-exported so callers never import the backing logger directly.
const (
	LevelTrace = ethlog.LevelTrace
	LevelDebug = ethlog.LevelDebug
	LevelInfo  = ethlog.LevelInfo
	LevelWarn  = ethlog.LevelWarn
	LevelError = ethlog.LevelError
	LevelCrit  = ethlog.LevelCrit
)

// Logger writes key/value pairs to the configured handler.
type Logger interface {
	// With returns a new Logger that has this logger's attributes plus the given attributes
	With(ctx ...any) Logger

	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Crit(msg string, ctx ...any)

	// Enabled reports whether l emits log records at the given context and level.
	Enabled(ctx context.Context, level slog.Level) bool
}

// Root returns the root logger.
func Root() Logger {
	return &lazyLogger{}
}

// SetDefault installs a logger which writes to h as the root logger.
// Loggers created earlier by WithContext pick it up on their next call.
func SetDefault(h slog.Handler) {
	ethlog.SetDefault(ethlog.NewLogger(h))
}

// WithContext returns a logger carrying the given attributes.
// It is meant for package level loggers that are declared before the root logger is configured.
func WithContext(ctx ...any) Logger {
	return &lazyLogger{ctx: ctx}
}

// New returns a logger that writes to h directly, bypassing the root logger.
func New(h slog.Handler, ctx ...any) Logger {
	return &fixedLogger{ethlog.NewLogger(h).With(ctx...)}
}

type lazyLogger struct {
	ctx []any
}

func (l *lazyLogger) resolve() ethlog.Logger {
	if len(l.ctx) == 0 {
		return ethlog.Root()
	}
	return ethlog.Root().With(l.ctx...)
}

func (l *lazyLogger) With(ctx ...any) Logger {
	merged := make([]any, 0, len(l.ctx)+len(ctx))
	merged = append(append(merged, l.ctx...), ctx...)
	return &lazyLogger{ctx: merged}
}

func (l *lazyLogger) Trace(msg string, ctx ...any) { l.resolve().Trace(msg, ctx...) }
func (l *lazyLogger) Debug(msg string, ctx ...any) { l.resolve().Debug(msg, ctx...) }
func (l *lazyLogger) Info(msg string, ctx ...any)  { l.resolve().Info(msg, ctx...) }
func (l *lazyLogger) Warn(msg string, ctx ...any)  { l.resolve().Warn(msg, ctx...) }
func (l *lazyLogger) Error(msg string, ctx ...any) { l.resolve().Error(msg, ctx...) }

func (l *lazyLogger) Crit(msg string, ctx ...any) {
	l.resolve().Error(msg, ctx...)
	os.Exit(1)
}

func (l *lazyLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return ethlog.Root().Enabled(ctx, level)
}

type fixedLogger struct {
	inner ethlog.Logger
}

func (l *fixedLogger) With(ctx ...any) Logger       { return &fixedLogger{l.inner.With(ctx...)} }
func (l *fixedLogger) Trace(msg string, ctx ...any) { l.inner.Trace(msg, ctx...) }
func (l *fixedLogger) Debug(msg string, ctx ...any) { l.inner.Debug(msg, ctx...) }
func (l *fixedLogger) Info(msg string, ctx ...any)  { l.inner.Info(msg, ctx...) }
func (l *fixedLogger) Warn(msg string, ctx ...any)  { l.inner.Warn(msg, ctx...) }
func (l *fixedLogger) Error(msg string, ctx ...any) { l.inner.Error(msg, ctx...) }

func (l *fixedLogger) Crit(msg string, ctx ...any) {
	l.inner.Error(msg, ctx...)
	os.Exit(1)
}

func (l *fixedLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.inner.Enabled(ctx, level)
}

// Package level helpers on the root logger.

func Trace(msg string, ctx ...any) { ethlog.Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { ethlog.Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { ethlog.Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { ethlog.Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { ethlog.Root().Error(msg, ctx...) }
