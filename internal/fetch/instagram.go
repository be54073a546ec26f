package fetch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
	"github.com/dpalacios/newsdesk-be/internal/sources"
	"github.com/go-resty/resty/v2"
)

// InstagramStore is the slice of the source registry the Instagram adapter uses
type InstagramStore interface {
	GetInstagramFeed(ctx context.Context, feedID int64) (*sources.InstagramFeed, error)
	InsertInstagramPost(ctx context.Context, post *sources.InstagramPost) (bool, error)
	TouchLastFetched(ctx context.Context, sourceType string, sourceID int64) error
}

// InstagramConfig holds the upstream media API settings
type InstagramConfig struct {
	APIBaseURL  string
	AccessToken string
}

// InstagramFetcher pulls recent media for one account from the scraping API
type InstagramFetcher struct {
	store  InstagramStore
	client *resty.Client
	config InstagramConfig
	logger *slog.Logger
}

// NewInstagramFetcher creates the Instagram adapter
func NewInstagramFetcher(store InstagramStore, client *resty.Client, config InstagramConfig, logger *slog.Logger) *InstagramFetcher {
	return &InstagramFetcher{
		store:  store,
		client: client,
		config: config,
		logger: logger,
	}
}

type instagramMediaResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Caption   string `json:"caption"`
		MediaURL  string `json:"media_url"`
		Permalink string `json:"permalink"`
		Timestamp string `json:"timestamp"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Fetch retrieves the account's recent media and stores new posts
func (f *InstagramFetcher) Fetch(ctx context.Context, sourceID int64) (*Result, error) {
	feed, err := f.store.GetInstagramFeed(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	var body instagramMediaResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("access_token", f.config.AccessToken).
		SetResult(&body).
		SetError(&body).
		Get(fmt.Sprintf("%s/users/%s/media", f.config.APIBaseURL, feed.Username))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch instagram media for @%s: %w", feed.Username, err)
	}
	if resp.IsError() {
		// Upstream rate limiting and auth problems come back as an adapter
		// failure result rather than a raised error so the message survives
		// on the step.
		msg := body.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("instagram API returned HTTP %d", resp.StatusCode())
		}
		return &Result{Status: StatusFailed, ErrorMessage: msg}, nil
	}

	inserted := 0
	for _, media := range body.Data {
		if media.ID == "" {
			continue
		}

		post := &sources.InstagramPost{
			FeedID:    feed.ID,
			MediaID:   media.ID,
			Caption:   media.Caption,
			MediaURL:  media.MediaURL,
			Permalink: media.Permalink,
			PostedAt:  media.Timestamp,
		}

		created, err := f.store.InsertInstagramPost(ctx, post)
		if err != nil {
			return nil, err
		}
		if created {
			inserted++
		}
	}

	if err := f.store.TouchLastFetched(ctx, domain.SourceTypeInstagram, feed.ID); err != nil {
		f.logger.Warn("Failed to update last_fetched",
			slog.Int64("feed_id", feed.ID),
			slog.String("error", err.Error()),
		)
	}

	f.logger.Info("Instagram feed fetched",
		slog.String("username", feed.Username),
		slog.Int("new_posts", inserted),
	)

	return &Result{Status: StatusSuccess, ItemCount: inserted}, nil
}
