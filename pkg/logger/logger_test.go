package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rchan-moderation-api/pkg/config"
)

func TestNewWritesRollingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "api.log")
	cfg := &config.Config{Env: config.EnvProduction, Log: config.LogConfig{Level: "info", Format: "json", File: path}}

	l, err := New(cfg)
	require.NoError(t, err)
	l.Info("moderation_started")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "moderation_started")
}

func TestNewWithoutFile(t *testing.T) {
	cfg := &config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: "bogus", Format: "console"}}
	l, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, l)
}
