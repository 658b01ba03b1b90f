package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xelth-com/eckcutgo/internal/config"
)

func TestDSN(t *testing.T) {
	got := dsn(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     "6543",
		Username: "eckcut",
		Password: "secret",
		Database: "cutlist",
	})
	assert.Equal(t, "host=db.internal port=6543 user=eckcut password=secret dbname=cutlist sslmode=disable", got)
}

func TestDatabaseConfig_Embedded(t *testing.T) {
	assert.True(t, config.DatabaseConfig{Host: "localhost"}.Embedded())
	assert.False(t, config.DatabaseConfig{Host: "localhost", Password: "x"}.Embedded())
	assert.False(t, config.DatabaseConfig{Host: "db.internal"}.Embedded())
}

func TestIndexStatement(t *testing.T) {
	assert.Equal(t,
		"CREATE INDEX IF NOT EXISTS idx_parts_work_order_sheet ON parts (work_order_id, nest_sheet_id)",
		indexStatement("idx_parts_work_order_sheet", "parts", "work_order_id, nest_sheet_id"))

	seen := map[string]bool{}
	for _, idx := range workOrderIndexes {
		assert.False(t, seen[idx.name], "duplicate index name %s", idx.name)
		seen[idx.name] = true
	}
}

func newObservedLogger(slow time.Duration, logQueries bool) (*gormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return newGormLogger(zap.New(core), slow, logQueries), logs
}

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := context.Background()

	t.Run("record not found is quiet", func(t *testing.T) {
		l, logs := newObservedLogger(time.Second, false)
		l.Trace(ctx, time.Now(), sqlFn(`SELECT 1`, 0), gorm.ErrRecordNotFound)
		assert.Zero(t, logs.Len())
	})

	t.Run("errors are logged with the statement", func(t *testing.T) {
		l, logs := newObservedLogger(time.Second, false)
		l.Trace(ctx, time.Now(), sqlFn(`INSERT INTO "parts"`, 0), errors.New("boom"))
		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.ErrorLevel, entry.Level)
		assert.Equal(t, `INSERT INTO "parts"`, entry.ContextMap()["sql"])
		assert.Equal(t, "gorm", entry.LoggerName)
	})

	t.Run("slow queries warn", func(t *testing.T) {
		l, logs := newObservedLogger(10*time.Millisecond, false)
		l.Trace(ctx, time.Now().Add(-time.Second), sqlFn(`SELECT * FROM "parts"`, 120), nil)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
		assert.Equal(t, "Slow query", logs.All()[0].Message)
	})

	t.Run("fast queries are dropped unless enabled", func(t *testing.T) {
		l, logs := newObservedLogger(time.Second, false)
		l.Trace(ctx, time.Now(), sqlFn(`SELECT 1`, 1), nil)
		assert.Zero(t, logs.Len())

		l, logs = newObservedLogger(time.Second, true)
		l.Trace(ctx, time.Now(), sqlFn(`SELECT 1`, 1), nil)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
	})

	t.Run("silent mode drops everything", func(t *testing.T) {
		l, logs := newObservedLogger(time.Second, true)
		silent := l.LogMode(logger.Silent)
		silent.Trace(ctx, time.Now(), sqlFn(`SELECT 1`, 0), errors.New("boom"))
		silent.Error(ctx, "failed %s", "x")
		assert.Zero(t, logs.Len())

		// LogMode returns a copy
		l.Error(ctx, "failed %s", "x")
		assert.Equal(t, 1, logs.Len())
	})
}

func TestStopStalePostmaster_RemovesDeadPidFile(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "postmaster.pid")
	// pid far above any default pid_max
	require.NoError(t, os.WriteFile(pidFile, []byte("99999999\n/var/lib/postgres\n"), 0o600))

	stopStalePostmaster(dir, zap.NewNop())

	_, err := os.Stat(pidFile)
	assert.True(t, os.IsNotExist(err), "pid file should be removed")
}

func TestStopStalePostmaster_KeepsUnreadablePidFile(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "postmaster.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte("not-a-pid\n"), 0o600))

	stopStalePostmaster(dir, zap.NewNop())

	_, err := os.Stat(pidFile)
	assert.NoError(t, err)
}
