package publisher

import (
	"context"

	"sjsage522/clubticketworker/internal/row"
)

// Publisher represents a sink for event rows next to the JSON file
type Publisher interface {
	// Publish publishes one row tagged with the run id
	Publish(ctx context.Context, runID string, r row.Row) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams(ctx context.Context) error

	// Close closes the publisher connection
	Close() error
}
