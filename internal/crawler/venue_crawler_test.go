package crawler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "sjsage522/clubticketworker/pkg/errors"
)

func newTestVenueCrawler(fetcher *MockFetcher, maxEvents int) *VenueCrawler {
	return NewVenueCrawler(CrawlerConfig{
		BaseURL:   testBaseURL + "/",
		VenueID:   "911",
		VenueName: "Razzmatazz",
		MaxEvents: maxEvents,
		UseWidget: true,
	}, fetcher, testBuilder())
}

func TestVenueCrawlerFetchRows(t *testing.T) {
	fetcher := NewMockFetcher()
	fetcher.pages[testBaseURL+"/clubs/911/events"] = `<a href="/events/101">a</a><a href="/events/102">b</a>
		<a href="/events/101">dup</a><a href="/events/103">c</a><a href="/events/104">capped</a>`
	fetcher.pages[testBaseURL+"/events/101"] = eventPage("Opening Night", "2025-10-04T23:00:00.000", "911", scriptTickets)
	fetcher.pages[testBaseURL+"/events/102"] = eventPage("Widget Night", "2025-10-11T23:00:00", "2072", "")
	fetcher.pages[testBaseURL+"/widget/event/102/embedtickets?backUrl=/events/102"] = widgetPage
	fetcher.pages[testBaseURL+"/events/103"] = `<html><body>nothing here</body></html>`

	c := newTestVenueCrawler(fetcher, 3)
	batch, err := c.FetchRows(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, batch.EventsSeen)
	assert.Equal(t, 1, batch.EventsFailed)
	require.Len(t, batch.Rows, 2)

	first := batch.Rows[0]
	assert.Equal(t, testBaseURL+"/events/101", first.URL)
	assert.Equal(t, "razzmatazz", first.Venue)
	assert.Equal(t, "Razzmatazz", first.VenueName)
	assert.Equal(t, "Opening Night", first.EventName)
	assert.Equal(t, "SÁB. 04 OCT.", first.Date)
	assert.Equal(t, "23:00 06:00", first.Time)
	assert.Equal(t, "2025-10-04", first.EventDate)
	assert.Equal(t, "Techno", first.Genres)
	assert.Equal(t, "https://img.test/opening-night.jpg", first.ImageURL)
	assert.Equal(t, "2nd release", first.CurrentRelease)
	assert.Equal(t, "1st release - Agotado", first.Releases[0].Name)
	assert.Equal(t, "13€", first.Releases[0].Price)
	assert.Equal(t, first.URL, first.Releases[0].URL)
	assert.Equal(t, "15,50€", first.Releases[1].Price)

	// the JSON-LD club id wins over the crawled venue
	second := batch.Rows[1]
	assert.Equal(t, "nitsa", second.Venue)
	assert.Equal(t, "General", second.CurrentRelease)
	assert.Equal(t, "Early - Agotado", second.Releases[0].Name)
	assert.Equal(t, "10€", second.Releases[0].Price)
	assert.Equal(t, "General", second.Releases[1].Name)

	assert.NotContains(t, fetcher.Requests(), testBaseURL+"/events/104")
	assert.NotContains(t, fetcher.Requests(), testBaseURL+"/widget/event/101/embedtickets?backUrl=/events/101")
}

func TestVenueCrawlerWidgetDisabled(t *testing.T) {
	fetcher := NewMockFetcher()
	fetcher.pages[testBaseURL+"/clubs/911/events"] = `<a href="/events/102">b</a>`
	fetcher.pages[testBaseURL+"/events/102"] = eventPage("Widget Night", "2025-10-11T23:00:00", "911", "")

	c := newTestVenueCrawler(fetcher, 10)
	c.UseWidget = false

	batch, err := c.FetchRows(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	assert.Empty(t, batch.Rows[0].CurrentRelease)
	assert.Empty(t, batch.Rows[0].Releases[0].Name)
	assert.Len(t, fetcher.Requests(), 2)
}

func TestVenueCrawlerWidgetFailureKeepsRow(t *testing.T) {
	fetcher := NewMockFetcher()
	fetcher.pages[testBaseURL+"/clubs/911/events"] = `<a href="/events/102">b</a>`
	fetcher.pages[testBaseURL+"/events/102"] = eventPage("Widget Night", "2025-10-11T23:00:00", "911", "")

	batch, err := newTestVenueCrawler(fetcher, 10).FetchRows(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, 0, batch.EventsFailed)
}

func TestVenueCrawlerEmptyListing(t *testing.T) {
	fetcher := NewMockFetcher()
	fetcher.pages[testBaseURL+"/clubs/911/events"] = `<html><body>No upcoming events</body></html>`

	batch, err := newTestVenueCrawler(fetcher, 10).FetchRows(context.Background())
	assert.Nil(t, batch)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeEmpty))
}

func TestVenueCrawlerListingBlocked(t *testing.T) {
	fetcher := NewMockFetcher()
	fetcher.errs[testBaseURL+"/clubs/911/events"] = pkgerrors.NewVerification("ra.test", testBaseURL+"/clubs/911/events")

	_, err := newTestVenueCrawler(fetcher, 10).FetchRows(context.Background())
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeVerification))
}

func TestVenueCrawlerAllEventsFailed(t *testing.T) {
	fetcher := NewMockFetcher()
	fetcher.pages[testBaseURL+"/clubs/911/events"] = `<a href="/events/1">a</a><a href="/events/2">b</a>`
	fetcher.errs[testBaseURL+"/events/2"] = pkgerrors.NewRateLimit("ra.test", 0)

	batch, err := newTestVenueCrawler(fetcher, 10).FetchRows(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeRateLimit))
	assert.Equal(t, 2, batch.EventsFailed)
	assert.Empty(t, batch.Rows)
}

func TestVenueCrawlerCanceled(t *testing.T) {
	fetcher := NewMockFetcher()
	fetcher.pages[testBaseURL+"/clubs/911/events"] = `<a href="/events/1">a</a>`

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestVenueCrawler(fetcher, 10).FetchRows(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVenueCrawlerURLs(t *testing.T) {
	c := newTestVenueCrawler(NewMockFetcher(), 1)

	assert.Equal(t, "https://ra.test/clubs/911/events", c.clubURL())
	assert.Equal(t, "https://ra.test/events/7", c.eventURL("7"))
	assert.Equal(t, "https://ra.test/widget/event/7/embedtickets?backUrl=/events/7", c.widgetURL("7"))
	assert.Equal(t, "https://ra.test/graphql", c.graphQLURL())
	assert.Equal(t, "https://ra.test/events/7", c.resolveURL("/events/7"))
	assert.Equal(t, "https://other.test/e/1", c.resolveURL("https://other.test/e/1"))
	assert.Equal(t, "Razzmatazz", c.GetName())
	assert.Equal(t, "911", c.GetVenueID())

	c.VenueName = ""
	assert.Equal(t, "911", c.GetName())
}
