package worker

import (
	"context"
	"os"
	"reflect"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sjsage522/clubticketworker/helpers"
	"sjsage522/clubticketworker/internal/crawler"
	"sjsage522/clubticketworker/internal/row"
	apperrors "sjsage522/clubticketworker/pkg/errors"
	"sjsage522/clubticketworker/services/publisher"
)

// VenueResult is the outcome of crawling one venue
type VenueResult struct {
	VenueID      string
	Name         string
	Events       int
	FailedEvents int
	Added        int
	Duplicates   int
	Err          error
}

// Failed reports whether the venue contributed nothing because of an error
func (v VenueResult) Failed() bool {
	return v.Err != nil
}

// Report summarises a single run
type Report struct {
	RunID      string
	Rows       []row.Row
	Venues     []VenueResult
	Duplicates int
	Duration   time.Duration
}

// Failures returns the venues that failed, in configuration order
func (r *Report) Failures() []VenueResult {
	var failed []VenueResult
	for _, v := range r.Venues {
		if v.Failed() {
			failed = append(failed, v)
		}
	}
	return failed
}

// Worker runs the venue crawlers and merges their batches
type Worker struct {
	ctx         context.Context
	crawlers    []crawler.Crawler
	publisher   publisher.Publisher
	logger      helpers.LoggerInterface
	parallelism int
}

// NewWorker creates a new worker. pub may be nil. A parallelism of 1 or
// less crawls venues one after another.
func NewWorker(
	ctx context.Context,
	crawlers []crawler.Crawler,
	pub publisher.Publisher,
	logger helpers.LoggerInterface,
	parallelism int,
) *Worker {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Worker{
		ctx:         ctx,
		crawlers:    crawlers,
		publisher:   pub,
		logger:      logger,
		parallelism: parallelism,
	}
}

// Run crawls every venue once and returns the merged result. Venue
// failures are recorded in the report and never abort the run.
func (w *Worker) Run() *Report {
	start := time.Now()
	report := &Report{
		RunID:  uuid.NewString(),
		Venues: make([]VenueResult, len(w.crawlers)),
	}
	results := NewResultSet()

	if w.parallelism == 1 {
		for i, c := range w.crawlers {
			report.Venues[i] = w.crawlAndMerge(c, results)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(w.parallelism)
		for i, c := range w.crawlers {
			i, c := i, c
			g.Go(func() error {
				report.Venues[i] = w.crawlAndMerge(c, results)
				return nil
			})
		}
		_ = g.Wait()
	}

	report.Rows = results.Rows()
	report.Duplicates = results.Duplicates()

	w.publish(report)

	report.Duration = time.Since(start)
	if os.Getenv("TICKETWORKER_ENVIRONMENT") != "production" {
		w.logger.LogInfo("run %s finished in %s: %d rows, %d duplicates", report.RunID, report.Duration, len(report.Rows), report.Duplicates)
	}
	return report
}

// crawlAndMerge crawls one venue and merges its batch into results
func (w *Worker) crawlAndMerge(c crawler.Crawler, results *ResultSet) VenueResult {
	name := c.GetName()
	if name == "" {
		name = reflect.TypeOf(c).Elem().Name()
	}
	res := VenueResult{VenueID: c.GetVenueID(), Name: name}

	batch, err := w.crawl(c)
	if batch != nil {
		res.Events = batch.EventsSeen
		res.FailedEvents = batch.EventsFailed
	}
	if err != nil {
		res.Err = err
		w.logger.LogError(name, err)
		return res
	}
	if batch == nil {
		return res
	}

	added, dups, total := results.Merge(batch.Rows)
	res.Added = added
	res.Duplicates = dups
	w.logger.LogInfo("%s: +%d -> %d", name, added, total)
	return res
}

// crawl runs the crawler and turns a panic into an unexpected error
func (w *Worker) crawl(c crawler.Crawler) (batch *crawler.Batch, err error) {
	defer func() {
		if r := recover(); r != nil {
			batch, err = nil, apperrors.NewUnexpected(c.GetVenueID(), r)
		}
	}()
	return c.FetchRows(w.ctx)
}

// publish sends every merged row to the publisher and then trims the streams
func (w *Worker) publish(report *Report) {
	if w.publisher == nil || len(report.Rows) == 0 {
		return
	}

	for _, r := range report.Rows {
		if err := w.publisher.Publish(w.ctx, report.RunID, r); err != nil {
			w.logger.LogError(r.Venue, apperrors.NewPublisher(r.Venue, "publish "+r.URL, err))
		}
	}

	if err := w.publisher.TrimStreams(w.ctx); err != nil {
		w.logger.LogError("StreamTrimming", apperrors.NewPublisher("", "trim streams", err))
	}
}
