package event

import "strings"

// Listing is an event as returned by the GraphQL venue and event queries.
type Listing struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Date       string         `json:"date"`
	StartTime  string         `json:"startTime"`
	EndTime    string         `json:"endTime"`
	ContentURL string         `json:"contentUrl"`
	FlyerFront string         `json:"flyerFront"`
	Images     []ListingImage `json:"images"`
	Venue      *ListingVenue  `json:"venue"`
	Genres     []ListingGenre `json:"genres"`
}

type ListingImage struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Alt      string `json:"alt"`
	Type     string `json:"type"`
}

type ListingVenue struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ContentURL string `json:"contentUrl"`
}

type ListingGenre struct {
	Name string `json:"name"`
}

// Meta converts a listing, optionally enriched by the per-event detail
// query, into row metadata. Detail times win over the listing date.
func (l Listing) Meta(detail *Listing) Meta {
	m := Meta{
		ID:            l.ID,
		Name:          strings.TrimSpace(l.Title),
		Start:         l.Date,
		FallbackImage: l.FlyerFront,
	}
	if l.StartTime != "" {
		m.Start = l.StartTime
	}
	m.End = l.EndTime

	if l.Venue != nil {
		m.VenueID = l.Venue.ID
		m.LocationName = l.Venue.Name
	}
	for _, img := range l.Images {
		m.Images = append(m.Images, Image{Type: img.Type, Filename: img.Filename})
	}
	m.Genres = genreNames(l.Genres)

	if detail == nil {
		return m
	}
	if detail.StartTime != "" {
		m.Start = detail.StartTime
	}
	if detail.EndTime != "" {
		m.End = detail.EndTime
	}
	if m.Name == "" {
		m.Name = strings.TrimSpace(detail.Title)
	}
	if m.VenueID == "" && detail.Venue != nil {
		m.VenueID = detail.Venue.ID
		m.LocationName = detail.Venue.Name
	}
	if len(detail.Genres) > 0 {
		m.Genres = genreNames(detail.Genres)
	}
	return m
}

func genreNames(genres []ListingGenre) []string {
	var out []string
	for _, g := range genres {
		if g.Name != "" {
			out = append(out, g.Name)
		}
	}
	return out
}
