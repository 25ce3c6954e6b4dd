package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Repositories.Postgres.Host)
	assert.Equal(t, "fishing_images", cfg.Storage.Folder)
	assert.False(t, cfg.Storage.Enabled())
	assert.Equal(t, 30*time.Minute, cfg.Enrichment.WeatherTTL)
	assert.Equal(t, 60*time.Minute, cfg.Enrichment.WaterTTL)
	assert.Equal(t, time.Minute, cfg.Enrichment.NegativeTTL)
	assert.Equal(t, 10*time.Minute, cfg.Spots.ListTTL)
	assert.Equal(t, 3, cfg.Spots.WriteRetries)
	assert.Equal(t, 13.7563, cfg.Map.DefaultLat)
	assert.Equal(t, 100.5018, cfg.Map.DefaultLon)
	assert.Equal(t, 12, cfg.Map.DefaultZoom)
	assert.Equal(t, "", cfg.Repositories.Redis.Addr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("WEATHER_CACHE_TTL", "45m")
	t.Setenv("ENRICHMENT_CONCURRENCY", "2")
	t.Setenv("MAP_DEFAULT_LAT", "18.79")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("CLOUDINARY_API_KEY", "k")
	t.Setenv("CLOUDINARY_API_SECRET", "s")
	t.Setenv("SPOTS_LIST_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.Enrichment.WeatherTTL)
	assert.Equal(t, 2, cfg.Enrichment.Concurrency)
	assert.Equal(t, 18.79, cfg.Map.DefaultLat)
	assert.True(t, cfg.Storage.Enabled())
	assert.Equal(t, 10*time.Minute, cfg.Spots.ListTTL, "unparsable values fall back to the default")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing password", env: map[string]string{"POSTGRES_PASSWORD": ""}, want: "POSTGRES_PASSWORD"},
		{name: "zero retries", env: map[string]string{"POSTGRES_PASSWORD": "x", "SPOTS_WRITE_RETRIES": "0"}, want: "SPOTS_WRITE_RETRIES"},
		{name: "bad zone", env: map[string]string{"POSTGRES_PASSWORD": "x", "MAP_TIMEZONE": "Mars/Olympus"}, want: "MAP_TIMEZONE"},
		{name: "bad gin mode", env: map[string]string{"POSTGRES_PASSWORD": "x", "GIN_MODE": "verbose"}, want: "GIN_MODE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
