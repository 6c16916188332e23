package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/clubticketworker/helpers"
	"sjsage522/clubticketworker/internal/fetch"
	"sjsage522/clubticketworker/internal/row"
	"sjsage522/clubticketworker/internal/ticket"
	"sjsage522/clubticketworker/logger"
	pkgerrors "sjsage522/clubticketworker/pkg/errors"
)

// BaseCrawler provides common functionality for all crawlers
type BaseCrawler struct {
	CrawlerConfig
	Fetcher fetch.Fetcher
	Builder row.Builder
	log     *logger.Logger
}

func newBaseCrawler(cfg CrawlerConfig, fetcher fetch.Fetcher, builder row.Builder) BaseCrawler {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return BaseCrawler{
		CrawlerConfig: cfg,
		Fetcher:       fetcher,
		Builder:       builder,
		log:           logger.ForVenue(cfg.VenueID),
	}
}

// GetName returns the venue name, or its id when the name is unknown
func (c *BaseCrawler) GetName() string {
	if c.VenueName != "" {
		return c.VenueName
	}
	return c.VenueID
}

// GetVenueID returns the platform id of the venue
func (c *BaseCrawler) GetVenueID() string {
	return c.VenueID
}

func (c *BaseCrawler) clubURL() string {
	return fmt.Sprintf("%s/clubs/%s/events", c.BaseURL, c.VenueID)
}

func (c *BaseCrawler) eventURL(eventID string) string {
	return fmt.Sprintf("%s/events/%s", c.BaseURL, eventID)
}

func (c *BaseCrawler) widgetURL(eventID string) string {
	return fmt.Sprintf("%s/widget/event/%s/embedtickets?backUrl=/events/%s", c.BaseURL, eventID, eventID)
}

func (c *BaseCrawler) graphQLURL() string {
	return c.BaseURL + "/graphql"
}

// resolveURL makes a platform-relative link absolute
func (c *BaseCrawler) resolveURL(link string) string {
	base, err := url.Parse(c.BaseURL + "/")
	if err != nil {
		return link
	}
	ref, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

// fetchDocument fetches a page and parses it
func (c *BaseCrawler) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	html, err := c.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return c.createDocument(pageURL, html)
}

// createDocument creates a goquery document from page content
func (c *BaseCrawler) createDocument(pageURL, html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, pkgerrors.NewParsing(c.VenueID, "parse "+pageURL, err)
	}
	return doc, nil
}

// widgetTickets reads the ticket tiers of the embeddable ticket widget
func (c *BaseCrawler) widgetTickets(ctx context.Context, eventID string) ([]ticket.Raw, error) {
	doc, err := c.fetchDocument(ctx, c.widgetURL(eventID))
	if err != nil {
		return nil, err
	}
	return ticket.MarkupTickets(doc), nil
}

// pause waits the configured jitter between two event requests
func (c *BaseCrawler) pause(ctx context.Context) error {
	return helpers.SleepJitter(ctx, c.DelayMin, c.DelayMax)
}
