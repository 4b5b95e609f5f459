package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
treasury:
  admin: 0xadmin
  governance: 0xgov
  min_first_deposit: "1000"
  genesis:
    0xalice: "5000"
api:
  listen: ":8080"
  jwt_secret: "0123456789abcdef"
telegram:
  bot_token: abc
  chat_id: "42"
schedule:
  daily_cron: "0 30 8 * * *"
`

func write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "data/treasury_state.json", cfg.Treasury.StateFile)
	assert.Equal(t, "0 0 * * * *", cfg.Schedule.SnapshotCron)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 40, cfg.API.Burst)
	assert.False(t, cfg.TelegramEnabled())

	assert.ErrorContains(t, cfg.Validate(), "treasury.admin")
}

func TestLoadYAMLAndEnv(t *testing.T) {
	t.Setenv("TREASURY_GOVERNANCE", "0xgov2")
	t.Setenv("API_BURST", "7")
	envFile := write(t, "test.env", "LOG_LEVEL=debug\nTREASURY_GOVERNANCE=0xfromfile\n")

	cfg, err := Load(write(t, "config.yaml", sample), envFile)
	require.NoError(t, err)
	t.Cleanup(func() { os.Unsetenv("LOG_LEVEL") })

	assert.Equal(t, "0xadmin", cfg.Treasury.Admin)
	assert.Equal(t, "0xgov2", cfg.Treasury.Governance, "process env wins over .env")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 7, cfg.API.Burst)
	assert.Equal(t, "0 30 8 * * *", cfg.Schedule.DailyCron)
	assert.Equal(t, "5000", cfg.Treasury.Genesis["0xalice"])

	require.NoError(t, cfg.Validate())
	floor, err := cfg.MinFirstDeposit()
	require.NoError(t, err)
	assert.Equal(t, "1000", floor.String())
	assert.True(t, cfg.TelegramEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"short secret", func(c *Config) { c.API.JWTSecret = "short" }, "api.jwt_secret"},
		{"no listen skips api checks", func(c *Config) { c.API.Listen = ""; c.API.JWTSecret = "" }, ""},
		{"zero rate", func(c *Config) { c.API.RatePerSecond = -1 }, "api.rate_per_second"},
		{"half telegram", func(c *Config) { c.Telegram.ChatID = "" }, "must be set together"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad min deposit", func(c *Config) { c.Treasury.MinFirstDeposit = "0" }, "min_first_deposit"},
		{"fractional genesis", func(c *Config) { c.Treasury.Genesis["0xbob"] = "1.5" }, "genesis[0xbob]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(write(t, "config.yaml", sample), filepath.Join(t.TempDir(), "none.env"))
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load(write(t, "config.yaml", "treasury: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}
