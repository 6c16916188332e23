package crawler

import (
	"context"
	"fmt"
	"strings"

	"sjsage522/clubticketworker/internal/event"
	"sjsage522/clubticketworker/internal/fetch"
	"sjsage522/clubticketworker/internal/row"
	"sjsage522/clubticketworker/internal/ticket"
	pkgerrors "sjsage522/clubticketworker/pkg/errors"
)

const venueEventsQuery = `query GET_VENUE_MOREON($id: ID!, $excludeEventId: ID = 0) {
  venue(id: $id) {
    id
    name
    contentUrl
    events(limit: 200, type: LATEST, excludeIds: [$excludeEventId]) {
      id
      title
      date
      contentUrl
      flyerFront
      images {
        id
        filename
        alt
        type
      }
      venue {
        id
        name
        contentUrl
      }
    }
  }
}`

const eventDetailQuery = `query GET_EVENT_GENRES($id: ID!) {
  event(id: $id) {
    id
    title
    genres {
      name
    }
    venue {
      id
      name
    }
    startTime
    endTime
  }
}`

type graphQLRequest struct {
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
	Query         string                 `json:"query"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type venueEventsResponse struct {
	Data struct {
		Venue *struct {
			ID     string          `json:"id"`
			Name   string          `json:"name"`
			Events []event.Listing `json:"events"`
		} `json:"venue"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type eventDetailResponse struct {
	Data struct {
		Event *event.Listing `json:"event"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// GraphQLCrawler lists a venue's events through the GraphQL endpoint and
// reads tickets from the widget.
type GraphQLCrawler struct {
	BaseCrawler
}

// NewGraphQLCrawler creates a GraphQL-mode crawler
func NewGraphQLCrawler(cfg CrawlerConfig, fetcher fetch.Fetcher, builder row.Builder) *GraphQLCrawler {
	return &GraphQLCrawler{BaseCrawler: newBaseCrawler(cfg, fetcher, builder)}
}

// FetchRows implements Crawler
func (c *GraphQLCrawler) FetchRows(ctx context.Context) (*Batch, error) {
	listings, err := c.venueEvents(ctx)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, pkgerrors.NewEmpty(c.VenueID, "no events returned by graphql")
	}
	c.log.Info().Int("events", len(listings)).Str("venue_name", c.GetName()).Msg("events listed")

	batch := &Batch{EventsSeen: len(listings)}
	for i, listing := range listings {
		if i > 0 {
			if err := c.pause(ctx); err != nil {
				return batch, err
			}
		}

		r, ok := c.eventRow(ctx, listing)
		if ctx.Err() != nil {
			return batch, ctx.Err()
		}
		if !ok {
			batch.EventsFailed++
			continue
		}
		batch.Rows = append(batch.Rows, r)
	}
	return batch, nil
}

func (c *GraphQLCrawler) venueEvents(ctx context.Context) ([]event.Listing, error) {
	req := graphQLRequest{
		OperationName: "GET_VENUE_MOREON",
		Variables:     map[string]interface{}{"id": c.VenueID, "excludeEventId": "0"},
		Query:         venueEventsQuery,
	}

	var resp venueEventsResponse
	if err := c.Fetcher.PostJSON(ctx, c.graphQLURL(), req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, pkgerrors.NewParsing(c.VenueID, "graphql venue query failed", graphQLErrors(resp.Errors))
	}
	if resp.Data.Venue == nil {
		return nil, pkgerrors.NewEmpty(c.VenueID, "venue not found by graphql")
	}
	if c.VenueName == "" {
		c.VenueName = resp.Data.Venue.Name
	}

	var listings []event.Listing
	for _, l := range resp.Data.Venue.Events {
		if !c.inDateWindow(l.Date) {
			continue
		}
		listings = append(listings, l)
		if c.MaxEvents > 0 && len(listings) == c.MaxEvents {
			break
		}
	}
	return listings, nil
}

// inDateWindow compares the YYYY-MM-DD prefix of date with the configured
// window. Events without a date are kept.
func (c *GraphQLCrawler) inDateWindow(date string) bool {
	day, _, _ := strings.Cut(date, "T")
	if day == "" {
		return true
	}
	if c.DateFrom != "" && day < c.DateFrom {
		return false
	}
	if c.DateTo != "" && day > c.DateTo {
		return false
	}
	return true
}

func (c *GraphQLCrawler) eventDetail(ctx context.Context, eventID string) (*event.Listing, error) {
	req := graphQLRequest{
		OperationName: "GET_EVENT_GENRES",
		Variables:     map[string]interface{}{"id": eventID},
		Query:         eventDetailQuery,
	}

	var resp eventDetailResponse
	if err := c.Fetcher.PostJSON(ctx, c.graphQLURL(), req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, pkgerrors.NewParsing(c.VenueID, "graphql event query failed", graphQLErrors(resp.Errors))
	}
	return resp.Data.Event, nil
}

func (c *GraphQLCrawler) eventRow(ctx context.Context, listing event.Listing) (row.Row, bool) {
	detail, err := c.eventDetail(ctx, listing.ID)
	if err != nil {
		c.log.Warn().Err(err).Str("event", listing.ID).Msg("event detail unavailable")
	}

	meta := listing.Meta(detail)
	if meta.Empty() {
		c.log.Warn().Str("event", listing.ID).Msg("event without metadata skipped")
		return row.Row{}, false
	}
	if meta.VenueID == "" {
		meta.VenueID = c.VenueID
	}

	var raws []ticket.Raw
	if c.UseWidget && listing.ID != "" {
		raws, err = c.widgetTickets(ctx, listing.ID)
		if err != nil {
			c.log.Warn().Err(err).Str("event", listing.ID).Msg("widget tickets unavailable")
		}
	}

	return c.Builder.Build(c.canonicalURL(listing), meta, ticket.Normalize(raws)), true
}

// canonicalURL is contentUrl resolved against the base URL, else /events/{id}
func (c *GraphQLCrawler) canonicalURL(listing event.Listing) string {
	if listing.ContentURL != "" {
		return c.resolveURL(listing.ContentURL)
	}
	return c.eventURL(listing.ID)
}

func graphQLErrors(errs []graphQLError) error {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
	}
	return fmt.Errorf("%s", strings.Join(messages, "; "))
}
