package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"sjsage522/clubticketworker/internal/row"
	"sjsage522/clubticketworker/internal/venue"
	pkgerrors "sjsage522/clubticketworker/pkg/errors"
)

const testBaseURL = "https://ra.test"

// MockFetcher serves canned pages and GraphQL answers
type MockFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	errs     map[string]error
	graphql  map[string]string
	requests []string
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		pages:   make(map[string]string),
		errs:    make(map[string]error),
		graphql: make(map[string]string),
	}
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, url)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := m.errs[url]; ok {
		return "", err
	}
	if page, ok := m.pages[url]; ok {
		return page, nil
	}
	return "", pkgerrors.NewNetwork("ra.test", fmt.Sprintf("fetch %s unexpected status code: 404", url), nil)
}

// PostJSON answers by "operationName:id"
func (m *MockFetcher) PostJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	req := body.(graphQLRequest)
	key := fmt.Sprintf("%s:%v", req.OperationName, req.Variables["id"])

	m.mu.Lock()
	m.requests = append(m.requests, "POST "+key)
	answer, ok := m.graphql[key]
	err := m.errs[key]
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.NewNetwork("ra.test", "post "+url+" unexpected status code: 404", nil)
	}
	return json.Unmarshal([]byte(answer), out)
}

func (m *MockFetcher) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

func testBuilder() row.Builder {
	return row.NewBuilder(venue.NewDirectory([]venue.Entry{
		{ID: "911", Name: "Razzmatazz"},
		{ID: "2072", Name: "Nitsa"},
	}))
}

func eventPage(name, start, clubID, scripts string) string {
	return fmt.Sprintf(`<html><head>
<meta property="og:image" content="https://img.test/%s.jpg">
<script type="application/ld+json">{"@type":"Event","name":%q,"startDate":%q,"endDate":"2025-10-05T06:00:00","location":{"name":"Sala","url":"%s/clubs/%s"}}</script>
</head><body><a href="/genre/techno">Techno</a>%s</body></html>`,
		strings.ToLower(strings.ReplaceAll(name, " ", "-")), name, start, testBaseURL, clubID, scripts)
}

const scriptTickets = `<script>window.__APOLLO_STATE__ = {
	"Ticket:1": {"id":"1","title":"1st release","priceRetail":13,"validType":"SOLDOUT","isAddOn":false,"__typename":"Ticket"},
	"Ticket:2": {"id":"2","title":"2nd release","priceRetail":15.5,"validType":"VALID","isAddOn":false,"__typename":"Ticket"}
};</script>`

const widgetPage = `<html><body><ul>
<li class="onsale" data-price="20"><input name="tickettypes"><span class="pr8">General</span></li>
<li class="closed"><span>Early</span><span>10,00 €</span></li>
</ul></body></html>`
