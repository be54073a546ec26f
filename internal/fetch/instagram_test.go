package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dpalacios/newsdesk-be/internal/sources"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInstagramStore struct {
	feed    *sources.InstagramFeed
	posts   []sources.InstagramPost
	touched []int64
}

func (s *fakeInstagramStore) GetInstagramFeed(ctx context.Context, feedID int64) (*sources.InstagramFeed, error) {
	if s.feed == nil {
		return nil, sources.ErrSourceNotFound
	}
	return s.feed, nil
}

func (s *fakeInstagramStore) InsertInstagramPost(ctx context.Context, post *sources.InstagramPost) (bool, error) {
	s.posts = append(s.posts, *post)
	return true, nil
}

func (s *fakeInstagramStore) TouchLastFetched(ctx context.Context, sourceType string, sourceID int64) error {
	s.touched = append(s.touched, sourceID)
	return nil
}

func TestInstagramFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/foodie/media", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("access_token"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[
			{"id":"m1","caption":"ceviche","permalink":"https://instagram.com/p/m1","timestamp":"2025-06-14T10:00:00Z"},
			{"id":"","caption":"missing id"},
			{"id":"m2","caption":"lomo saltado"}
		]}`)
	}))
	defer server.Close()

	store := &fakeInstagramStore{feed: &sources.InstagramFeed{ID: 7, Username: "foodie"}}
	fetcher := NewInstagramFetcher(store, resty.New(), InstagramConfig{
		APIBaseURL:  server.URL,
		AccessToken: "test-token",
	}, discardLogger())

	result, err := fetcher.Fetch(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 2, result.ItemCount, "media without an id is dropped")

	require.Len(t, store.posts, 2)
	assert.Equal(t, "m1", store.posts[0].MediaID)
	assert.Equal(t, int64(7), store.posts[0].FeedID)
	assert.Equal(t, []int64{7}, store.touched)
}

func TestInstagramFetcher_Fetch_APIErrorBecomesFailedResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"message":"rate limit exceeded"}}`)
	}))
	defer server.Close()

	store := &fakeInstagramStore{feed: &sources.InstagramFeed{ID: 7, Username: "foodie"}}
	fetcher := NewInstagramFetcher(store, resty.New(), InstagramConfig{APIBaseURL: server.URL}, discardLogger())

	result, err := fetcher.Fetch(context.Background(), 7)
	require.NoError(t, err, "API errors report through the result, not the error")

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "rate limit exceeded", result.ErrorMessage)
	assert.Empty(t, store.posts)
	assert.Empty(t, store.touched)
}

func TestInstagramFetcher_Fetch_APIErrorWithoutMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	store := &fakeInstagramStore{feed: &sources.InstagramFeed{ID: 7, Username: "foodie"}}
	fetcher := NewInstagramFetcher(store, resty.New(), InstagramConfig{APIBaseURL: server.URL}, discardLogger())

	result, err := fetcher.Fetch(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "instagram API returned HTTP 429", result.ErrorMessage)
}
