package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dpalacios/newsdesk-be/internal/sources"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRSSStore struct {
	feed       *sources.Feed
	leads      []sources.Lead
	failGUIDs  map[string]bool
	duplicates map[string]bool
	touched    []int64
}

func (s *fakeRSSStore) GetFeed(ctx context.Context, feedID int64) (*sources.Feed, error) {
	if s.feed == nil {
		return nil, sources.ErrSourceNotFound
	}
	return s.feed, nil
}

func (s *fakeRSSStore) InsertLead(ctx context.Context, lead *sources.Lead) (bool, error) {
	if s.failGUIDs[lead.GUID] {
		return false, errors.New("insert failed")
	}
	if s.duplicates[lead.GUID] {
		return false, nil
	}
	s.leads = append(s.leads, *lead)
	return true, nil
}

func (s *fakeRSSStore) TouchLastFetched(ctx context.Context, sourceType string, sourceID int64) error {
	s.touched = append(s.touched, sourceID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Sample Feed</title>
    <item>
      <guid>item-1</guid>
      <title> First Story </title>
      <link>https://example.com/first</link>
      <author>Ana</author>
      <description>The first story</description>
      <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>No GUID Story</title>
      <link>https://example.com/second</link>
    </item>
    <item>
      <title>Empty Item</title>
    </item>
  </channel>
</rss>`

func TestRSSFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleRSS)
	}))
	defer server.Close()

	store := &fakeRSSStore{feed: &sources.Feed{ID: 1, URL: server.URL, Name: "Sample", Country: "PE"}}
	fetcher := NewRSSFetcher(store, resty.New(), discardLogger())

	result, err := fetcher.Fetch(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 2, result.ItemCount, "items without both guid and link are dropped")
	assert.Empty(t, result.ErrorMessage)

	require.Len(t, store.leads, 2)
	assert.Equal(t, "item-1", store.leads[0].GUID)
	assert.Equal(t, "First Story", store.leads[0].Title, "fields are trimmed")
	assert.Equal(t, "PE", store.leads[0].Country)
	assert.Equal(t, "https://example.com/second", store.leads[1].GUID, "link is the guid fallback")

	assert.Equal(t, []int64{1}, store.touched)
}

func TestRSSFetcher_Fetch_DuplicatesNotCounted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleRSS)
	}))
	defer server.Close()

	store := &fakeRSSStore{
		feed:       &sources.Feed{ID: 1, URL: server.URL},
		duplicates: map[string]bool{"item-1": true},
	}
	fetcher := NewRSSFetcher(store, resty.New(), discardLogger())

	result, err := fetcher.Fetch(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, result.ItemCount)
}

func TestRSSFetcher_Fetch_EntryErrorsAreIsolated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleRSS)
	}))
	defer server.Close()

	store := &fakeRSSStore{
		feed:      &sources.Feed{ID: 1, URL: server.URL},
		failGUIDs: map[string]bool{"item-1": true},
	}
	fetcher := NewRSSFetcher(store, resty.New(), discardLogger())

	result, err := fetcher.Fetch(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, result.Status)
	assert.Equal(t, 1, result.ItemCount, "later entries still insert")
	assert.Contains(t, result.ErrorMessage, "1 entries failed")
	assert.Contains(t, result.ErrorMessage, "item-1")
}

func TestRSSFetcher_Fetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	store := &fakeRSSStore{feed: &sources.Feed{ID: 1, URL: server.URL}}
	fetcher := NewRSSFetcher(store, resty.New(), discardLogger())

	result, err := fetcher.Fetch(context.Background(), 1)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "HTTP 502")
	assert.Empty(t, store.touched, "failed fetches do not stamp last_fetched")
}

func TestRSSFetcher_Fetch_MalformedXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<rss><channel><item>")
	}))
	defer server.Close()

	store := &fakeRSSStore{feed: &sources.Feed{ID: 1, URL: server.URL}}
	fetcher := NewRSSFetcher(store, resty.New(), discardLogger())

	_, err := fetcher.Fetch(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse feed")
}
