package config

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"sjsage522/clubticketworker/internal/row"
	"sjsage522/clubticketworker/internal/venue"
	pkgerrors "sjsage522/clubticketworker/pkg/errors"
)

// Event sources
const (
	SourcePage    = "page"
	SourceGraphQL = "graphql"
)

//go:embed venues.json5
var defaultVenues []byte

// Config represents the application configuration
type Config struct {
	// Platform
	BaseURL string
	Source  string

	// Venue selection
	VenuesFile        string
	VenueIDs          []string
	MaxEventsPerVenue int

	// GraphQL listing window, inclusive YYYY-MM-DD bounds
	DateFrom string
	DateTo   string

	// Crawl behaviour
	Parallelism     int
	UseWidget       bool
	RequestDelayMin time.Duration
	RequestDelayMax time.Duration
	SoldOutSuffix   string

	// Fetching
	FetchTimeout    time.Duration
	FetchRetryCount int
	BlockTime       time.Duration

	// Output
	OutputPath   string
	ErrorLogPath string

	// Memcache configuration, empty address uses an in-process cache
	MemcacheAddr string

	// Redis configuration, empty address disables publishing
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		BaseURL:              strings.TrimRight(getEnv("BASE_URL", "https://es.ra.co"), "/"),
		Source:               strings.ToLower(getEnv("SOURCE", SourcePage)),
		VenuesFile:           getEnv("VENUES_FILE", ""),
		VenueIDs:             splitList(getEnv("VENUE_IDS", "")),
		MaxEventsPerVenue:    getEnvInt("MAX_EVENTS_PER_VENUE", 50),
		DateFrom:             getEnv("DATE_FROM", ""),
		DateTo:               getEnv("DATE_TO", ""),
		Parallelism:          getEnvInt("PARALLELISM", 1),
		UseWidget:            getEnvBool("USE_WIDGET", true),
		RequestDelayMin:      time.Duration(getEnvInt("REQUEST_DELAY_MIN_MS", 600)) * time.Millisecond,
		RequestDelayMax:      time.Duration(getEnvInt("REQUEST_DELAY_MAX_MS", 1000)) * time.Millisecond,
		SoldOutSuffix:        getEnvRaw("SOLD_OUT_SUFFIX", row.DefaultSoldOutSuffix),
		FetchTimeout:         time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 30)) * time.Second,
		FetchRetryCount:      getEnvInt("FETCH_RETRY_COUNT", 2),
		BlockTime:            time.Duration(getEnvInt("BLOCK_TIME_SECONDS", 500)) * time.Second,
		OutputPath:           getEnv("OUTPUT_PATH", "output/ra_all.json"),
		ErrorLogPath:         getEnv("ERROR_LOG_PATH", "error.log"),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "club-events"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		Environment:          getEnv("TICKETWORKER_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration before a run
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return pkgerrors.NewConfiguration(fmt.Sprintf("invalid BASE_URL %q", c.BaseURL), err)
	}
	if c.Source != SourcePage && c.Source != SourceGraphQL {
		return pkgerrors.NewConfiguration(fmt.Sprintf("unknown SOURCE %q, want %q or %q", c.Source, SourcePage, SourceGraphQL), nil)
	}
	if c.MaxEventsPerVenue <= 0 {
		return pkgerrors.NewConfiguration("MAX_EVENTS_PER_VENUE must be positive", nil)
	}
	for _, d := range []string{c.DateFrom, c.DateTo} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return pkgerrors.NewConfiguration(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", d), err)
		}
	}
	if c.DateFrom != "" && c.DateTo != "" && c.DateTo < c.DateFrom {
		return pkgerrors.NewConfiguration("DATE_TO is before DATE_FROM", nil)
	}
	if c.Parallelism <= 0 {
		return pkgerrors.NewConfiguration("PARALLELISM must be positive", nil)
	}
	if c.RequestDelayMin < 0 || c.RequestDelayMax < c.RequestDelayMin {
		return pkgerrors.NewConfiguration("request delay range is invalid", nil)
	}
	if c.FetchRetryCount < 0 {
		return pkgerrors.NewConfiguration("FETCH_RETRY_COUNT must not be negative", nil)
	}
	if c.OutputPath == "" {
		return pkgerrors.NewConfiguration("OUTPUT_PATH must be set", nil)
	}
	if c.RedisAddr != "" && (c.RedisStream == "" || c.RedisStreamCount <= 0) {
		return pkgerrors.NewConfiguration("REDIS_STREAM and a positive REDIS_STREAM_COUNT are required with REDIS_ADDR", nil)
	}
	return nil
}

// LoadVenues reads the venue directory from VenuesFile, or the embedded
// default. VenueIDs must all be known to it.
func (c *Config) LoadVenues() (*venue.Directory, error) {
	data := defaultVenues
	if c.VenuesFile != "" {
		fileData, err := os.ReadFile(c.VenuesFile)
		if err != nil {
			return nil, pkgerrors.NewConfiguration("failed to read VENUES_FILE", err)
		}
		data = fileData
	}

	entries, err := venue.Parse(data)
	if err != nil {
		return nil, pkgerrors.NewConfiguration("invalid venue directory", err)
	}

	dir := venue.NewDirectory(entries)
	if len(dir.Entries()) == 0 {
		return nil, pkgerrors.NewConfiguration("no venues configured", nil)
	}
	for _, id := range c.VenueIDs {
		if _, ok := dir.Lookup(id); !ok {
			return nil, pkgerrors.NewConfiguration(fmt.Sprintf("venue %s is not in the venue directory", id), nil)
		}
	}
	return dir, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvRaw keeps surrounding spaces, which are meaningful for suffixes
func getEnvRaw(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
