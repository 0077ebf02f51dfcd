package config_test

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chunkytofustudios/analytics-gate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWithDefault(t *testing.T) {
	cfg, err := config.WithDefault().WithEnvironment(config.EnvironmentProduction).Build()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultMeasurementID, cfg.MeasurementID())
	assert.Equal(t, "https://www.googletagmanager.com/gtag/js?id=G-REYS4TKJBK", cfg.ScriptURL())
	assert.Equal(t, 1, cfg.LoadAttempts())
	assert.True(t, cfg.TrackOutboundLinks())
	assert.Equal(t, "chunkytofustudios.com", cfg.SiteOrigin().Host)
	assert.False(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.APISecret())
}

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config) *config.Config
	}{
		{
			name:   "empty measurement id",
			mutate: func(c *config.Config) *config.Config { return c.WithMeasurementID("  ") },
		},
		{
			name:   "script template without placeholder",
			mutate: func(c *config.Config) *config.Config { return c.WithScriptURLTemplate("https://cdn.example/gtag.js") },
		},
		{
			name:   "relative site origin",
			mutate: func(c *config.Config) *config.Config { return c.WithSiteOrigin(url.URL{Path: "/"}) },
		},
		{
			name:   "zero load attempts",
			mutate: func(c *config.Config) *config.Config { return c.WithLoadAttempts(0) },
		},
		{
			name:   "zero max attempt",
			mutate: func(c *config.Config) *config.Config { return c.WithMaxAttempt(0) },
		},
		{
			name:   "unknown environment",
			mutate: func(c *config.Config) *config.Config { return c.WithEnvironment("staging") },
		},
		{
			name:   "invalid collect url",
			mutate: func(c *config.Config) *config.Config { return c.WithCollectURL("not a url") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := config.WithDefault().WithEnvironment(config.EnvironmentProduction)
			_, err := tt.mutate(builder).Build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalidConfig))
		})
	}
}

func TestWithConfigFile(t *testing.T) {
	path := writeConfigFile(t, `{
		"measurementId": "G-TEST123",
		"apiSecret": "s3cret",
		"siteOrigin": "http://localhost:3000",
		"siteDir": "dist",
		"loadAttempts": 2,
		"trackOutboundLinks": false,
		"maxAttempt": 5,
		"timeout": 2000000000,
		"dryRun": true,
		"environment": "development"
	}`)

	cfg, err := config.WithConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "G-TEST123", cfg.MeasurementID())
	assert.Equal(t, "s3cret", cfg.APISecret())
	assert.Equal(t, "localhost:3000", cfg.SiteOrigin().Host)
	assert.Equal(t, "dist", cfg.SiteDir())
	assert.Equal(t, 2, cfg.LoadAttempts())
	assert.False(t, cfg.TrackOutboundLinks())
	assert.Equal(t, 5, cfg.MaxAttempt())
	assert.Equal(t, 2*time.Second, cfg.Timeout())
	assert.True(t, cfg.DryRun())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "https://www.googletagmanager.com/gtag/js?id=G-TEST123", cfg.ScriptURL())
}

func TestWithConfigFile_Errors(t *testing.T) {
	_, err := config.WithConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, config.ErrFileDoesNotExist))

	_, err = config.WithConfigFile(writeConfigFile(t, `{not json`))
	assert.True(t, errors.Is(err, config.ErrConfigParsingFail))

	_, err = config.WithConfigFile(writeConfigFile(t, `{"environment": "production", "siteOrigin": "://bad"}`))
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}

func TestWithEnvOverrides(t *testing.T) {
	t.Setenv("ANALYTICS_GATE_ENV", "Development")

	builder, err := config.WithDefault().WithEnvironment(config.EnvironmentProduction).WithEnvOverrides()
	require.NoError(t, err)
	cfg, err := builder.Build()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
}

func TestWithEnvOverrides_Unset(t *testing.T) {
	t.Setenv("ANALYTICS_GATE_ENV", "")

	builder, err := config.WithDefault().WithEnvironment(config.EnvironmentProduction).WithEnvOverrides()
	require.NoError(t, err)
	cfg, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, config.EnvironmentProduction, cfg.Environment())
}
