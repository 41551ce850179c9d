package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), "missing-config")
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "default", cfg.Application.SessionID)
	assert.Equal(t, 30*time.Second, cfg.Api.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Application.SessionTTL)
	assert.Equal(t, uint16(5432), cfg.Database.Port)
	assert.False(t, cfg.Otel.Enabled)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	testCases := []struct {
		desc    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			desc: "given storage backend override should use it",
			env:  map[string]string{"STOREFRONT_STORAGE_BACKEND": "redis", "STOREFRONT_CACHE_PASSWORD": "secret"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "redis", cfg.Storage.Backend)
				assert.Equal(t, "secret", cfg.Cache.Password)
			},
		},
		{
			desc: "given api override should use it",
			env:  map[string]string{"STOREFRONT_API_BASE_URL": "https://shop.example.com/api"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://shop.example.com/api", cfg.Api.BaseURL)
			},
		},
		{
			desc:    "given unknown storage backend should fail validation",
			env:     map[string]string{"STOREFRONT_STORAGE_BACKEND": "s3"},
			wantErr: true,
		},
		{
			desc:    "given invalid env should fail validation",
			env:     map[string]string{"STOREFRONT_APPLICATION_ENV": "staging"},
			wantErr: true,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			for k, v := range tC.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(context.Background(), "missing-config")
			if tC.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tC.check(t, cfg)
		})
	}
}
