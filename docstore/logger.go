package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jonwraymond/artifactcache/observe"
)

// SlowQueryThreshold marks queries logged at warn.
const SlowQueryThreshold = 200 * time.Millisecond

type gormLogger struct {
	logger observe.Logger
	level  gormlogger.LogLevel
}

// NewGormLogger adapts logger to gorm. Successful queries are logged at
// debug, slow queries and failures at warn. Record-not-found is not a
// failure.
func NewGormLogger(logger observe.Logger) gormlogger.Interface {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &gormLogger{logger: logger, level: gormlogger.Info}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []observe.Field{
		{Key: "sql", Value: sql},
		{Key: "rows", Value: rows},
		{Key: "elapsed_ms", Value: float64(elapsed.Microseconds()) / 1000},
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		l.logger.Warn(ctx, "query failed", append(fields, observe.Field{Key: "error", Value: err})...)
	case elapsed > SlowQueryThreshold && l.level >= gormlogger.Warn:
		l.logger.Warn(ctx, "slow query", fields...)
	case l.level >= gormlogger.Info:
		l.logger.Debug(ctx, "query", fields...)
	}
}
