package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "identities.db", cfg.Database.Path)
	assert.Equal(t, 10*time.Second, cfg.Merge.StepTimeout)
	assert.Equal(t, "achievements.yaml", cfg.Catalog.File)
	assert.Equal(t, int64(1), cfg.Progression.Defaults.Level)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/aethex")
	t.Setenv("MERGE_STEP_TIMEOUT", "3s")
	t.Setenv("MERGE_DEFAULT_TARGET_EMAIL", "alice@work.example")
	t.Setenv("PROGRESSION_TARGET_LEVEL", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/aethex", cfg.Database.Url)
	assert.Equal(t, 3*time.Second, cfg.Merge.StepTimeout)
	assert.Equal(t, "alice@work.example", cfg.Merge.DefaultTargetEmail)
	assert.Equal(t, int64(50), cfg.Progression.Targets.Level)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("MERGE_LOCK_TTL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "MERGE_LOCK_TTL")
}

func TestLoad_UnsupportedDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}
