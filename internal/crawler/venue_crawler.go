package crawler

import (
	"context"
	"fmt"

	"sjsage522/clubticketworker/helpers"
	"sjsage522/clubticketworker/internal/event"
	"sjsage522/clubticketworker/internal/fetch"
	"sjsage522/clubticketworker/internal/row"
	"sjsage522/clubticketworker/internal/ticket"
	pkgerrors "sjsage522/clubticketworker/pkg/errors"
)

// VenueCrawler reads a venue's club listing page and every linked event page.
type VenueCrawler struct {
	BaseCrawler
}

// NewVenueCrawler creates a page-mode crawler
func NewVenueCrawler(cfg CrawlerConfig, fetcher fetch.Fetcher, builder row.Builder) *VenueCrawler {
	return &VenueCrawler{BaseCrawler: newBaseCrawler(cfg, fetcher, builder)}
}

// FetchRows implements Crawler
func (c *VenueCrawler) FetchRows(ctx context.Context) (*Batch, error) {
	listingURL := c.clubURL()
	listing, err := c.Fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return nil, err
	}

	ids := helpers.ExtractEventIDs(listing, c.MaxEvents)
	if len(ids) == 0 {
		return nil, pkgerrors.NewEmpty(c.VenueID, "no event ids on "+listingURL)
	}
	c.log.Info().Int("events", len(ids)).Str("venue_name", c.GetName()).Msg("event ids found")

	batch := &Batch{EventsSeen: len(ids)}
	var lastErr error
	for i, id := range ids {
		if i > 0 {
			if err := c.pause(ctx); err != nil {
				return batch, err
			}
		}

		r, err := c.eventRow(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			batch.EventsFailed++
			lastErr = err
			c.log.Warn().Err(err).Str("event", id).Msg("event skipped")
			continue
		}

		batch.Rows = append(batch.Rows, r)
		c.log.Debug().Str("event", id).Str("name", r.EventName).Msg("row built")
	}

	if len(batch.Rows) == 0 && lastErr != nil {
		return batch, fmt.Errorf("all %d events failed: %w", batch.EventsFailed, lastErr)
	}
	return batch, nil
}

func (c *VenueCrawler) eventRow(ctx context.Context, eventID string) (row.Row, error) {
	eventURL := c.eventURL(eventID)
	doc, err := c.fetchDocument(ctx, eventURL)
	if err != nil {
		return row.Row{}, err
	}

	meta := event.FromPage(doc)
	if meta.Empty() {
		return row.Row{}, pkgerrors.NewParsing(c.VenueID, "no event metadata on "+eventURL, nil)
	}
	meta.ID = eventID
	if meta.VenueID == "" {
		meta.VenueID = c.VenueID
	}

	raws := ticket.PageScriptTickets(doc)
	if len(raws) == 0 && c.UseWidget {
		widgetRaws, err := c.widgetTickets(ctx, eventID)
		if err != nil {
			c.log.Warn().Err(err).Str("event", eventID).Msg("widget tickets unavailable")
		}
		raws = widgetRaws
	}

	return c.Builder.Build(eventURL, meta, ticket.Normalize(raws)), nil
}
