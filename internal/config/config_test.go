package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
matrix_db:
  dsn: "host=localhost user=matrix"
kafka-service:
  host: kafka
  port: "9092"
`), 0o600))
	t.Setenv("WORKER_CONCURRENCY", "8")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "host=localhost user=matrix", cfg.MatrixDB.Dsn)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Worker.RetryBackoff)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaService.Brokers())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
