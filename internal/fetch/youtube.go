package fetch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
	"github.com/dpalacios/newsdesk-be/internal/sources"
	"github.com/go-resty/resty/v2"
)

// YouTubeStore is the slice of the source registry the YouTube adapter uses
type YouTubeStore interface {
	GetYouTubeFeed(ctx context.Context, feedID int64) (*sources.YouTubeFeed, error)
	InsertYouTubePost(ctx context.Context, post *sources.YouTubePost) (bool, error)
	TouchLastFetched(ctx context.Context, sourceType string, sourceID int64) error
}

// YouTubeConfig holds the Data API settings
type YouTubeConfig struct {
	APIBaseURL string
	APIKey     string
	MaxResults int
}

// YouTubeFetcher pulls the latest uploads for one channel via the Data API
type YouTubeFetcher struct {
	store  YouTubeStore
	client *resty.Client
	config YouTubeConfig
	logger *slog.Logger
}

// NewYouTubeFetcher creates the YouTube adapter
func NewYouTubeFetcher(store YouTubeStore, client *resty.Client, config YouTubeConfig, logger *slog.Logger) *YouTubeFetcher {
	if config.MaxResults <= 0 {
		config.MaxResults = 25
	}
	return &YouTubeFetcher{
		store:  store,
		client: client,
		config: config,
		logger: logger,
	}
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Fetch retrieves the channel's newest videos and stores new posts
func (f *YouTubeFetcher) Fetch(ctx context.Context, sourceID int64) (*Result, error) {
	feed, err := f.store.GetYouTubeFeed(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	var body youtubeSearchResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part":       "snippet",
			"channelId":  feed.ChannelID,
			"order":      "date",
			"type":       "video",
			"maxResults": fmt.Sprintf("%d", f.config.MaxResults),
			"key":        f.config.APIKey,
		}).
		SetResult(&body).
		SetError(&body).
		Get(f.config.APIBaseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch youtube channel %s: %w", feed.ChannelID, err)
	}
	if resp.IsError() {
		// API quota exhaustion is the common case here; surface the API's
		// own message as an adapter failure result.
		msg := body.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("youtube API returned HTTP %d", resp.StatusCode())
		}
		return &Result{Status: StatusFailed, ErrorMessage: msg}, nil
	}

	inserted := 0
	for _, item := range body.Items {
		if item.ID.VideoID == "" {
			continue
		}

		post := &sources.YouTubePost{
			FeedID:      feed.ID,
			VideoID:     item.ID.VideoID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			PublishedAt: item.Snippet.PublishedAt,
		}

		created, err := f.store.InsertYouTubePost(ctx, post)
		if err != nil {
			return nil, err
		}
		if created {
			inserted++
		}
	}

	if err := f.store.TouchLastFetched(ctx, domain.SourceTypeYouTube, feed.ID); err != nil {
		f.logger.Warn("Failed to update last_fetched",
			slog.Int64("feed_id", feed.ID),
			slog.String("error", err.Error()),
		)
	}

	f.logger.Info("YouTube channel fetched",
		slog.String("channel_id", feed.ChannelID),
		slog.Int("new_posts", inserted),
	)

	return &Result{Status: StatusSuccess, ItemCount: inserted}, nil
}
