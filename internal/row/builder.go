package row

import (
	"strings"

	"sjsage522/clubticketworker/internal/event"
	"sjsage522/clubticketworker/internal/format"
	"sjsage522/clubticketworker/internal/ticket"
	"sjsage522/clubticketworker/internal/venue"
)

// DefaultSoldOutSuffix is appended to the names of unavailable releases
const DefaultSoldOutSuffix = " - Agotado"

// Builder turns event metadata and ranked tickets into rows.
type Builder struct {
	Venues        *venue.Directory
	SoldOutSuffix string
}

// NewBuilder returns a builder using the default sold-out suffix.
func NewBuilder(venues *venue.Directory) Builder {
	return Builder{Venues: venues, SoldOutSuffix: DefaultSoldOutSuffix}
}

// Build never fails: any field that cannot be derived is left empty.
// Tickets fill the slots cheapest first; only the first Slots are used.
func (b Builder) Build(eventURL string, meta event.Meta, tickets []ticket.Ticket) Row {
	ranked := append([]ticket.Ticket(nil), tickets...)
	ticket.SortByPrice(ranked)
	venueName := b.Venues.Resolve(meta.VenueID, meta.LocationName)

	r := Row{
		Venue:          format.Slugify(venueName),
		VenueName:      venueName,
		EventName:      strings.TrimSpace(meta.Name),
		URL:            eventURL,
		Date:           format.Date(meta.Start),
		Time:           format.TimeRange(meta.Start, meta.End),
		ImageURL:       event.SelectImage(meta.Images, meta.FallbackImage),
		CurrentRelease: ticket.CurrentRelease(ranked),
		EventDate:      format.ISODate(meta.Start),
		Genres:         format.Genres(meta.Genres),
	}

	for i, t := range ranked {
		if i >= Slots {
			break
		}
		r.Releases[i] = b.release(eventURL, t)
	}
	return r
}

func (b Builder) release(eventURL string, t ticket.Ticket) Release {
	name := strings.TrimSpace(t.Title)
	if t.Status.Unavailable() {
		name += b.SoldOutSuffix
	}
	url := t.URL
	if url == "" {
		url = eventURL
	}
	return Release{Name: name, Price: format.Price(t.Price), URL: url}
}
