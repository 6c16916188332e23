package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "sjsage522/clubticketworker/pkg/errors"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "https://es.ra.co", config.BaseURL)
	assert.Equal(t, SourcePage, config.Source)
	assert.Equal(t, 50, config.MaxEventsPerVenue)
	assert.Equal(t, 1, config.Parallelism)
	assert.True(t, config.UseWidget)
	assert.Equal(t, " - Agotado", config.SoldOutSuffix)
	assert.Equal(t, 30*time.Second, config.FetchTimeout)
	assert.Equal(t, 2, config.FetchRetryCount)
	assert.Equal(t, 500*time.Second, config.BlockTime)
	assert.Equal(t, "output/ra_all.json", config.OutputPath)
	assert.Empty(t, config.MemcacheAddr)
	assert.Empty(t, config.RedisAddr)
	assert.Empty(t, config.VenueIDs)
	assert.NoError(t, config.Validate())

	// Test with environment variables
	t.Setenv("BASE_URL", "http://localhost:8080/")
	t.Setenv("SOURCE", "GraphQL")
	t.Setenv("VENUE_IDS", "911, 2072,,")
	t.Setenv("MAX_EVENTS_PER_VENUE", "5")
	t.Setenv("PARALLELISM", "3")
	t.Setenv("USE_WIDGET", "false")
	t.Setenv("SOLD_OUT_SUFFIX", " (sold out)")
	t.Setenv("REDIS_ADDR", "redis.example.com:6379")
	t.Setenv("REDIS_DB", "1")
	t.Setenv("MEMCACHE_ADDR", "memcache.example.com:11211")
	t.Setenv("FETCH_RETRY_COUNT", "not a number")
	t.Setenv("DATE_FROM", "2025-10-01")
	t.Setenv("DATE_TO", "2025-10-31")

	config = LoadConfig()
	assert.Equal(t, "http://localhost:8080", config.BaseURL)
	assert.Equal(t, SourceGraphQL, config.Source)
	assert.Equal(t, []string{"911", "2072"}, config.VenueIDs)
	assert.Equal(t, 5, config.MaxEventsPerVenue)
	assert.Equal(t, 3, config.Parallelism)
	assert.False(t, config.UseWidget)
	assert.Equal(t, " (sold out)", config.SoldOutSuffix)
	assert.Equal(t, "redis.example.com:6379", config.RedisAddr)
	assert.Equal(t, 1, config.RedisDB)
	assert.Equal(t, "memcache.example.com:11211", config.MemcacheAddr)
	assert.Equal(t, 2, config.FetchRetryCount)
	assert.Equal(t, "2025-10-01", config.DateFrom)
	assert.Equal(t, "2025-10-31", config.DateTo)
	assert.NoError(t, config.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"relative base url", func(c *Config) { c.BaseURL = "es.ra.co" }},
		{"unknown source", func(c *Config) { c.Source = "browser" }},
		{"zero events", func(c *Config) { c.MaxEventsPerVenue = 0 }},
		{"zero parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"inverted delay", func(c *Config) { c.RequestDelayMin, c.RequestDelayMax = time.Second, 0 }},
		{"bad date", func(c *Config) { c.DateFrom = "01/10/2025" }},
		{"inverted dates", func(c *Config) { c.DateFrom, c.DateTo = "2025-10-02", "2025-10-01" }},
		{"negative retries", func(c *Config) { c.FetchRetryCount = -1 }},
		{"no output", func(c *Config) { c.OutputPath = "" }},
		{"redis without streams", func(c *Config) { c.RedisAddr = "localhost:6379"; c.RedisStreamCount = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := LoadConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeConfiguration))
		})
	}
}

func TestLoadVenues(t *testing.T) {
	c := LoadConfig()
	dir, err := c.LoadVenues()
	require.NoError(t, err)

	entries := dir.Entries()
	require.Len(t, entries, 9)
	assert.Equal(t, "911", entries[0].ID)
	assert.Equal(t, "Razzmatazz", entries[0].Name)
	assert.Equal(t, "216950", entries[8].ID)

	c.VenueIDs = []string{"2072", "911"}
	dir, err = c.LoadVenues()
	require.NoError(t, err)
	assert.Len(t, dir.Entries(), 9)

	c.VenueIDs = []string{"2072", "424242"}
	_, err = c.LoadVenues()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "424242")
}

func TestLoadVenuesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venues.json5")
	require.NoError(t, os.WriteFile(path, []byte(`[{id: "1", name: "Test Club"},]`), 0644))

	c := LoadConfig()
	c.VenuesFile = path
	dir, err := c.LoadVenues()
	require.NoError(t, err)
	name, ok := dir.Lookup("1")
	assert.True(t, ok)
	assert.Equal(t, "Test Club", name)

	c.VenuesFile = filepath.Join(t.TempDir(), "missing.json5")
	_, err = c.LoadVenues()
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeConfiguration))

	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0644))
	c.VenuesFile = path
	_, err = c.LoadVenues()
	assert.Error(t, err)
}
