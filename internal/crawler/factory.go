package crawler

import (
	"sjsage522/clubticketworker/config"
	"sjsage522/clubticketworker/internal/fetch"
	"sjsage522/clubticketworker/internal/row"
	"sjsage522/clubticketworker/internal/venue"
	"sjsage522/clubticketworker/logger"
)

// CreateCrawlers creates one crawler per selected venue, in directory
// order, or in VENUE_IDS order when a subset is configured.
func CreateCrawlers(cfg *config.Config, venues *venue.Directory, fetcher fetch.Fetcher) []Crawler {
	builder := row.NewBuilder(venues)
	builder.SoldOutSuffix = cfg.SoldOutSuffix

	targets := venues.Entries()
	if len(cfg.VenueIDs) > 0 {
		targets = venues.Subset(cfg.VenueIDs).Entries()
	}

	var crawlers []Crawler
	for _, v := range targets {
		crawlerCfg := CrawlerConfig{
			BaseURL:   cfg.BaseURL,
			VenueID:   v.ID,
			VenueName: v.Name,
			MaxEvents: cfg.MaxEventsPerVenue,
			UseWidget: cfg.UseWidget,
			DelayMin:  cfg.RequestDelayMin,
			DelayMax:  cfg.RequestDelayMax,
			DateFrom:  cfg.DateFrom,
			DateTo:    cfg.DateTo,
		}

		var c Crawler
		switch cfg.Source {
		case config.SourceGraphQL:
			c = NewGraphQLCrawler(crawlerCfg, fetcher, builder)
		default:
			c = NewVenueCrawler(crawlerCfg, fetcher, builder)
		}
		crawlers = append(crawlers, c)
	}

	for i, c := range crawlers {
		logger.Debug("Crawler %d: %s (venue %s, source %s)", i, c.GetName(), c.GetVenueID(), cfg.Source)
	}
	return crawlers
}
