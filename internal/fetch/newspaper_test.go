package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
	"github.com/dpalacios/newsdesk-be/internal/sources"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNewspaperStore struct {
	feed        *sources.NewspaperFeed
	replaced    []sources.Scrape
	replacedFor string
	touched     []int64
}

func (s *fakeNewspaperStore) GetNewspaperFeed(ctx context.Context, sourceType string, feedID int64) (*sources.NewspaperFeed, error) {
	if s.feed == nil {
		return nil, sources.ErrSourceNotFound
	}
	return s.feed, nil
}

func (s *fakeNewspaperStore) ReplaceScrapes(ctx context.Context, sourceType string, feedID int64, scrapes []sources.Scrape) error {
	s.replaced = scrapes
	s.replacedFor = sourceType
	return nil
}

func (s *fakeNewspaperStore) TouchLastFetched(ctx context.Context, sourceType string, sourceID int64) error {
	s.touched = append(s.touched, sourceID)
	return nil
}

func TestExtractStoryLinks(t *testing.T) {
	page := `
		<a href="https://elcomercio.pe/gastronomia/primera-nota-noticia/">first</a>
		<a href="/gastronomia/segunda-nota-noticia/">second</a>
		<a href="https://elcomercio.pe/gastronomia/primera-nota-noticia/">duplicate</a>
		<a href="https://elcomercio.pe/suscripciones/">not a story</a>
	`

	links := extractStoryLinks(page, "https://elcomercio.pe/archivo/gastronomia/")

	assert.Equal(t, []string{
		"https://elcomercio.pe/gastronomia/primera-nota-noticia/",
		"https://elcomercio.pe/gastronomia/segunda-nota-noticia/",
	}, links)
}

func TestExtractStoryLinks_NoMatches(t *testing.T) {
	links := extractStoryLinks(`<a href="/about">about</a>`, "https://diariocorreo.pe/gastronomia/")
	assert.Empty(t, links)
}

func TestNewspaperFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/gastronomia/ceviche-ranking-noticia/">story</a>`)
	}))
	defer server.Close()

	store := &fakeNewspaperStore{feed: &sources.NewspaperFeed{
		ID:      1,
		URL:     server.URL + "/gastronomia/",
		Section: "gastronomia",
	}}
	fetcher := NewElComercioFetcher(store, resty.New(), discardLogger())

	result, err := fetcher.Fetch(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, result.ItemCount)
	assert.Equal(t, domain.SourceTypeElComercio, store.replacedFor)

	require.Len(t, store.replaced, 1)
	assert.Equal(t, server.URL+"/gastronomia/ceviche-ranking-noticia/", store.replaced[0].URL)
	assert.Equal(t, []int64{1}, store.touched)
}

func TestNewspaperFetcher_Fetch_EmptyPageReplacesWithNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	store := &fakeNewspaperStore{feed: &sources.NewspaperFeed{ID: 2, URL: server.URL}}
	fetcher := NewDiarioCorreoFetcher(store, resty.New(), discardLogger())

	result, err := fetcher.Fetch(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 0, result.ItemCount)
	assert.Empty(t, store.replaced)
	assert.Equal(t, domain.SourceTypeDiarioCorreo, store.replacedFor)
}

func TestNewspaperFetcher_Fetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	store := &fakeNewspaperStore{feed: &sources.NewspaperFeed{ID: 1, URL: server.URL}}
	fetcher := NewElComercioFetcher(store, resty.New(), discardLogger())

	_, err := fetcher.Fetch(context.Background(), 1)
	require.Error(t, err)
	assert.Empty(t, store.replaced, "failed fetches keep the previous capture")
}
