package log

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limited drops log records that arrive faster than the configured cadence.
// Per-frame fault paths use it so a dead camera does not flood the log at
// frame rate. Dropped records are counted and reported on the next record
// that gets through.
type Limited struct {
	logger  *slog.Logger
	limiter *rate.Limiter
	dropped atomic.Int64
}

// NewLimited allows one record per interval with a burst of one.
// A nil logger means the global logger.
func NewLimited(logger *slog.Logger, interval time.Duration) *Limited {
	if logger == nil {
		logger = L()
	}
	return &Limited{
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Warn logs at warn level if the limiter allows it.
func (l *Limited) Warn(msg string, args ...any) bool {
	return l.log(slog.LevelWarn, msg, args...)
}

// Error logs at error level if the limiter allows it.
func (l *Limited) Error(msg string, args ...any) bool {
	return l.log(slog.LevelError, msg, args...)
}

// Dropped returns how many records have been suppressed since the last
// emitted record.
func (l *Limited) Dropped() int64 {
	return l.dropped.Load()
}

func (l *Limited) log(level slog.Level, msg string, args ...any) bool {
	if !l.limiter.Allow() {
		l.dropped.Add(1)
		return false
	}
	if n := l.dropped.Swap(0); n > 0 {
		args = append(args, "suppressed", n)
	}
	l.logger.Log(context.Background(), level, msg, args...)
	return true
}
