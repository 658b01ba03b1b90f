package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormLogger sends GORM output through zap. Record-not-found is not an error:
// identifier lookups during an import mostly miss.
type gormLogger struct {
	log       *zap.Logger
	level     logger.LogLevel
	slowQuery time.Duration
}

func newGormLogger(log *zap.Logger, slowQuery time.Duration, logQueries bool) *gormLogger {
	level := logger.Warn
	if logQueries {
		level = logger.Info
	}
	return &gormLogger{log: log.Named("gorm"), level: level, slowQuery: slowQuery}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.log.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		sql, rows := fc()
		l.log.Error("Query failed",
			zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("took", elapsed), zap.Error(err))
	case l.slowQuery > 0 && elapsed > l.slowQuery && l.level >= logger.Warn:
		sql, rows := fc()
		l.log.Warn("Slow query",
			zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("took", elapsed))
	case l.level >= logger.Info:
		sql, rows := fc()
		l.log.Debug("Query", zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("took", elapsed))
	}
}
