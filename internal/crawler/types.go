package crawler

import (
	"context"
	"time"

	"sjsage522/clubticketworker/internal/row"
)

// Batch is everything one venue crawl produced
type Batch struct {
	Rows         []row.Row
	EventsSeen   int
	EventsFailed int
}

// Crawler interface defines the contract for all crawler implementations
type Crawler interface {
	// FetchRows crawls one venue and returns its rows. A non-nil error
	// means the venue as a whole failed; the batch may still be partial.
	FetchRows(ctx context.Context) (*Batch, error)

	// GetName returns the crawler's name for logging and identification
	GetName() string

	// GetVenueID returns the platform id of the crawled venue
	GetVenueID() string
}

// CrawlerConfig contains configuration for a crawler
type CrawlerConfig struct {
	BaseURL   string
	VenueID   string
	VenueName string
	MaxEvents int
	UseWidget bool
	DelayMin  time.Duration
	DelayMax  time.Duration
	DateFrom  string
	DateTo    string
}
