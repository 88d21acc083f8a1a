package config

import (
	"flag"
	"testing"
	"time"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args ...string) *Config {
	t.Helper()
	t.Setenv("APMAC_DB", "test.db")
	return LoadArgs(flag.NewFlagSet("apmac", flag.ContinueOnError), args)
}

func TestLoad_Defaults(t *testing.T) {
	cfg := load(t)
	assert.Equal(t, "wlan0", cfg.Interface)
	assert.Equal(t, "n", cfg.Standard)
	assert.Equal(t, 6, cfg.Channel)
	assert.Equal(t, 102400*time.Microsecond, cfg.BeaconInterval())
	assert.True(t, cfg.BeaconGeneration)
	assert.Equal(t, "test.db", cfg.DBPath)
	assert.Empty(t, cfg.AllowedOrigins)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, domain.MustParseMAC("02:00:00:00:00:01"), cfg.Address())
}

func TestLoad_EnvAndFlags(t *testing.T) {
	t.Setenv("APMAC_STANDARD", "ac")
	t.Setenv("APMAC_CHANNEL", "36")
	t.Setenv("APMAC_MOCK", "true")
	t.Setenv("APMAC_BSS_COLOR", "not-a-number")
	t.Setenv("APMAC_TRACE_RATIO", "0.25")
	t.Setenv("APMAC_ALLOWED_ORIGINS", "http://a.example, ,http://b.example")

	cfg := load(t, "-channel", "40", "-ssid", "lab", "-beacons=false")
	assert.Equal(t, "ac", cfg.Standard)
	assert.Equal(t, 40, cfg.Channel, "flags override the environment")
	assert.True(t, cfg.MockMode)
	assert.Zero(t, cfg.BSSColor, "unparsable values fall back to the default")
	assert.Equal(t, "lab", cfg.SSID)
	assert.Equal(t, 0.25, cfg.TraceRatio)
	assert.False(t, cfg.BeaconGeneration)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown standard", func(c *Config) { c.Standard = "z" }},
		{"negative channel", func(c *Config) { c.Channel = -1 }},
		{"zero interval", func(c *Config) { c.BeaconIntervalUs = 0 }},
		{"colour too large", func(c *Config) { c.BSSColor = 256 }},
		{"negative colour", func(c *Config) { c.BSSColor = -1 }},
		{"empty ssid", func(c *Config) { c.SSID = "" }},
		{"long ssid", func(c *Config) { c.SSID = "0123456789012345678901234567890123" }},
		{"bad bssid", func(c *Config) { c.BSSID = "nope" }},
		{"group bssid", func(c *Config) { c.BSSID = "01:00:5e:00:00:01" }},
		{"trace ratio above one", func(c *Config) { c.TraceRatio = 1.5 }},
		{"bad grpc port", func(c *Config) { c.GRPCPort = 70000 }},
		{"no interface", func(c *Config) { c.Interface = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := load(t)
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("colour uses the whole byte", func(t *testing.T) {
		cfg := load(t)
		cfg.BSSColor = 200
		assert.NoError(t, cfg.Validate())
	})

	t.Run("mock needs no interface", func(t *testing.T) {
		cfg := load(t)
		cfg.Interface = ""
		cfg.MockMode = true
		assert.NoError(t, cfg.Validate())
	})
}
