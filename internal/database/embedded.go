package database

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"go.uber.org/zap"

	"github.com/xelth-com/eckcutgo/internal/config"
)

// embeddedPassword is set on the embedded superuser; the instance only listens locally
const embeddedPassword = "postgres"

// startEmbedded boots the embedded PostgreSQL for a local run and returns the
// config pointing at it
func startEmbedded(cfg config.DatabaseConfig, log *zap.Logger) (*embeddedpostgres.EmbeddedPostgres, config.DatabaseConfig, error) {
	log.Info("Mode: embedded PostgreSQL",
		zap.String("data_path", cfg.EmbeddedDataPath),
		zap.Int("port", cfg.EmbeddedPort))

	stopStalePostmaster(cfg.EmbeddedDataPath, log)
	if err := waitForPort(cfg.EmbeddedPort, 3*time.Second); err != nil {
		return nil, cfg, err
	}

	pg := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		DataPath(cfg.EmbeddedDataPath).
		Port(uint32(cfg.EmbeddedPort)).
		Database(cfg.Database).
		Username(cfg.Username).
		Password(embeddedPassword))
	if err := pg.Start(); err != nil {
		return nil, cfg, fmt.Errorf("failed to start embedded database: %w", err)
	}

	cfg.Port = strconv.Itoa(cfg.EmbeddedPort)
	cfg.Password = embeddedPassword
	return pg, cfg, nil
}

// stopStalePostmaster stops a postmaster left running by a crashed process and
// removes its pid file, otherwise the embedded start fails on a locked data dir
func stopStalePostmaster(dataPath string, log *zap.Logger) {
	pidFile := filepath.Join(dataPath, "postmaster.pid")
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return
	}
	firstLine, _, _ := strings.Cut(string(data), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(firstLine))
	if err != nil {
		log.Warn("Unreadable postmaster.pid, leaving it in place", zap.Error(err))
		return
	}

	proc, err := os.FindProcess(pid)
	if err != nil || proc.Signal(syscall.Signal(0)) != nil {
		log.Info("Removing stale postmaster.pid", zap.Int("pid", pid))
		os.Remove(pidFile)
		return
	}

	log.Warn("Stopping orphaned PostgreSQL process", zap.Int("pid", pid))
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		log.Warn("Could not send SIGTERM", zap.Int("pid", pid), zap.Error(err))
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(500 * time.Millisecond)
		if proc.Signal(syscall.Signal(0)) != nil {
			os.Remove(pidFile)
			return
		}
	}
	log.Warn("Orphaned PostgreSQL ignored SIGTERM, killing it", zap.Int("pid", pid))
	proc.Kill()
	time.Sleep(500 * time.Millisecond)
	os.Remove(pidFile)
}

// waitForPort waits until nothing accepts connections on the local port
func waitForPort(port int, timeout time.Duration) error {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err != nil {
			return nil
		}
		conn.Close()
		if time.Now().After(deadline) {
			return fmt.Errorf("port %d is still in use by another process", port)
		}
		time.Sleep(500 * time.Millisecond)
	}
}
