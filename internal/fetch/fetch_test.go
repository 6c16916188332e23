package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "sjsage522/clubticketworker/pkg/errors"
	"sjsage522/clubticketworker/services/cache"
)

func newTestClient(c cache.CacheService) *Client {
	return New(Options{
		Timeout:    5 * time.Second,
		RetryCount: 1,
		RetryWait:  time.Millisecond,
		BlockTime:  500 * time.Second,
		Cache:      c,
	})
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))

		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body><a href=\"/events/1\">Caf\xe9</a></body></html>"))
	}))
	defer server.Close()

	html, err := newTestClient(nil).Fetch(context.Background(), server.URL+"/clubs/911/events")
	require.NoError(t, err)
	assert.Contains(t, html, "Café")
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(nil).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeNetwork))
	assert.Contains(t, err.Error(), "unexpected status code: 500")
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestFetchNotFoundIsNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(nil).Fetch(context.Background(), server.URL)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeNetwork))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestShouldRetry(t *testing.T) {
	status := func(code int) *resty.Response {
		return &resty.Response{RawResponse: &http.Response{StatusCode: code}}
	}
	tests := []struct {
		name string
		resp *resty.Response
		err  error
		want bool
	}{
		{"transport error", nil, errors.New("connection reset"), true},
		{"server error", status(http.StatusBadGateway), nil, true},
		{"too many requests", status(http.StatusTooManyRequests), nil, false},
		{"status 430", status(StatusRateLimited), nil, false},
		{"not found", status(http.StatusNotFound), nil, false},
		{"ok", status(http.StatusOK), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(tt.resp, tt.err))
		})
	}
}

func TestFetchRateLimitBlocksHost(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	mc := cache.NewMemoryService()
	client := newTestClient(mc)

	_, err := client.Fetch(context.Background(), server.URL+"/events/1")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeRateLimit))

	host, err := hostOf(server.URL)
	require.NoError(t, err)
	value, err := mc.Get(blockKey(host))
	require.NoError(t, err)
	assert.Equal(t, "500", string(value))

	// the block short-circuits without touching the server
	_, err = client.Fetch(context.Background(), server.URL+"/events/2")
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeRateLimit))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchStatus430(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(StatusRateLimited)
	}))
	defer server.Close()

	_, err := newTestClient(nil).Fetch(context.Background(), server.URL)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeRateLimit))
}

func TestFetchVerificationPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><title>Just a moment...</title><div class=\"cf-chl-widget\"></div></html>"))
	}))
	defer server.Close()

	_, err := newTestClient(nil).Fetch(context.Background(), server.URL)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeVerification))
}

func TestFetchCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(nil).Fetch(ctx, server.URL)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeNetwork))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "application/json"))

		var req struct {
			OperationName string                 `json:"operationName"`
			Variables     map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "GET_EVENT_GENRES", req.OperationName)
		assert.Equal(t, "2210001", req.Variables["id"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"event":{"id":"2210001","genres":[{"name":"Techno"}]}}}`))
	}))
	defer server.Close()

	var out struct {
		Data struct {
			Event struct {
				ID     string `json:"id"`
				Genres []struct {
					Name string `json:"name"`
				} `json:"genres"`
			} `json:"event"`
		} `json:"data"`
	}
	body := map[string]interface{}{
		"operationName": "GET_EVENT_GENRES",
		"variables":     map[string]interface{}{"id": "2210001"},
	}

	err := newTestClient(nil).PostJSON(context.Background(), server.URL+"/graphql", body, &out)
	require.NoError(t, err)
	assert.Equal(t, "2210001", out.Data.Event.ID)
	require.Len(t, out.Data.Event.Genres, 1)
	assert.Equal(t, "Techno", out.Data.Event.Genres[0].Name)
}

func TestPostJSONErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/challenge":
			w.Write([]byte("<html>Attention Required! | Cloudflare</html>"))
		default:
			w.Write([]byte("not json"))
		}
	}))
	defer server.Close()

	var out map[string]interface{}
	client := newTestClient(nil)

	err := client.PostJSON(context.Background(), server.URL+"/challenge", map[string]string{}, &out)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeVerification))

	err = client.PostJSON(context.Background(), server.URL+"/graphql", map[string]string{}, &out)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeParsing))
}

func TestLooksLikeVerification(t *testing.T) {
	assert.True(t, LooksLikeVerification(`<div class="h-captcha" data-sitekey="x"></div>`))
	assert.True(t, LooksLikeVerification("WHY DID THIS HAPPEN?"))
	assert.False(t, LooksLikeVerification("<html><body>Razzmatazz events</body></html>"))
	assert.False(t, LooksLikeVerification(""))
}

func TestFetchRejectsRelativeURL(t *testing.T) {
	client := newTestClient(cache.NewMemoryService())

	_, err := client.Fetch(context.Background(), "/events/1")
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeValidation))

	err = client.PostJSON(context.Background(), "ftp://ra.test/graphql", map[string]string{}, &struct{}{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeValidation))
}
