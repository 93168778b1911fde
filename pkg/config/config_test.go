package config

import (
	"testing"

	"github.com/caarlos0/env/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseWith(vars map[string]string) (*Config, error) {
	return Parse(env.Options{Environment: vars})
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parseWith(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, PruneConfig{
		KeepLimit:         500,
		BatchSize:         100,
		UserBatchSize:     200,
		MaxUsersPerRun:    200,
		MaxRowsPerRun:     5000,
		MaxElapsedSeconds: 30,
	}, cfg.Prune)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := parseWith(map[string]string{
		"PORT":                          "9000",
		"ENV":                           "production",
		"DISMISSED_KEEP_LIMIT":          "0",
		"DISMISSED_MAX_ROWS_PER_RUN":    "10",
		"DISMISSED_MAX_ELAPSED_SECONDS": "5",
		"AUTO_MIGRATE":                  "false",
	})
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 0, cfg.Prune.KeepLimit)
	assert.Equal(t, 10, cfg.Prune.MaxRowsPerRun)
	assert.Equal(t, 5, cfg.Prune.MaxElapsedSeconds)
}

func TestParseRejectsBadTunables(t *testing.T) {
	tests := map[string]map[string]string{
		"negative keep limit": {"DISMISSED_KEEP_LIMIT": "-1"},
		"zero batch size":     {"DISMISSED_PRUNE_BATCH_SIZE": "0"},
		"zero user batch":     {"DISMISSED_USER_BATCH_SIZE": "0"},
		"negative max users":  {"DISMISSED_MAX_USERS_PER_RUN": "-3"},
		"zero max rows":       {"DISMISSED_MAX_ROWS_PER_RUN": "0"},
		"zero max elapsed":    {"DISMISSED_MAX_ELAPSED_SECONDS": "0"},
		"not a number":        {"DISMISSED_KEEP_LIMIT": "lots"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseWith(vars)
			assert.Error(t, err)
		})
	}
}

func TestInitLoggerFallsBackToInfo(t *testing.T) {
	log := InitLogger(&Config{LogLevel: "chatty"})
	assert.Equal(t, "notifyfeed", log.Data["service"])
	assert.Equal(t, "info", log.Logger.GetLevel().String())
}
