// Package buildinfo exposes the build stamp reported by /health
package buildinfo

import "time"

// Set via -ldflags "-X github.com/xelth-com/eckcutgo/internal/buildinfo.CommitHash=..."
var (
	Version    = "dev"
	BuildTime  string
	CommitHash string
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)

// Fields returns the stamp as response fields, omitting values not set at build time
func Fields() map[string]string {
	out := map[string]string{
		"version":   Version,
		"startedAt": StartTime,
	}
	if BuildTime != "" {
		out["buildTime"] = BuildTime
	}
	if CommitHash != "" {
		out["commit"] = CommitHash
	}
	return out
}
