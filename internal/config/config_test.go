package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10, cfg.DueDateOffsetDays)
	assert.Equal(t, "billing.db", cfg.DBPath)
	assert.Equal(t, "5", cfg.PenaltyRate().String())
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
port: 9090
db_path: ./tmp/test.db
penalty_rate_percent: "3.5"
due_date_offset_days: 7
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "./tmp/test.db", cfg.DBPath)
	assert.Equal(t, 7, cfg.DueDateOffsetDays)
	assert.Equal(t, "3.5", cfg.PenaltyRate().String())
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `penalty_rate_percent: "3.5"`)

	t.Setenv("PENALTY_RATE_PERCENT", "4.25")
	t.Setenv("PORT", "3000")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "4.25", cfg.PenaltyRate().String())
}

func TestLoad_RejectsBadPenaltyRate(t *testing.T) {
	_, err := config.Load(writeConfig(t, `penalty_rate_percent: "five percent"`))
	require.Error(t, err)

	_, err = config.Load(writeConfig(t, `penalty_rate_percent: "-1"`))
	require.Error(t, err)
}

func TestLoad_RejectsNegativeDueOffset(t *testing.T) {
	_, err := config.Load(writeConfig(t, `due_date_offset_days: -1`))
	require.Error(t, err)
}
