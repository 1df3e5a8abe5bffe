package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	env, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, "local", env.Env)
	assert.Equal(t, "8080", env.HTTPPort)
	assert.Equal(t, "local", env.Type)
	assert.Equal(t, "data.json", env.Document)
	assert.Equal(t, "taskflow/", env.S3Prefix)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TASKFLOW_HTTP_PORT", "9090")
	t.Setenv("TASKFLOW_STORAGE_TYPE", "s3")
	t.Setenv("TASKFLOW_S3_BUCKET", "taskflow-prod")
	t.Setenv("TASKFLOW_LOG_LEVEL", "warn")

	env, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", env.HTTPPort)
	assert.Equal(t, "s3", env.Type)
	assert.Equal(t, "taskflow-prod", env.S3Bucket)
	assert.Equal(t, slog.LevelWarn, env.SlogLevel())
}

func TestSlogLevelFallsBackToDebug(t *testing.T) {
	env := &BaseEnv{LogLevel: "loud"}
	assert.Equal(t, slog.LevelDebug, env.SlogLevel())

	var nilEnv *BaseEnv
	assert.Equal(t, slog.LevelDebug, nilEnv.SlogLevel())
}
