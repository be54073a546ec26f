package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
	"github.com/dpalacios/newsdesk-be/internal/sources"
	"github.com/go-resty/resty/v2"
)

// RSSStore is the slice of the source registry the RSS adapter writes to
type RSSStore interface {
	GetFeed(ctx context.Context, feedID int64) (*sources.Feed, error)
	InsertLead(ctx context.Context, lead *sources.Lead) (bool, error)
	TouchLastFetched(ctx context.Context, sourceType string, sourceID int64) error
}

// RSSFetcher pulls an RSS 2.0 feed and turns new entries into leads
type RSSFetcher struct {
	store  RSSStore
	client *resty.Client
	logger *slog.Logger
}

// NewRSSFetcher creates the RSS adapter
func NewRSSFetcher(store RSSStore, client *resty.Client, logger *slog.Logger) *RSSFetcher {
	return &RSSFetcher{
		store:  store,
		client: client,
		logger: logger,
	}
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	GUID        string `xml:"guid"`
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Author      string `xml:"author"`
	Creator     string `xml:"creator"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// Fetch downloads the feed and inserts leads for entries not seen before
func (f *RSSFetcher) Fetch(ctx context.Context, sourceID int64) (*Result, error) {
	feed, err := f.store.GetFeed(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.R().SetContext(ctx).Get(feed.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %q: %w", feed.URL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("feed %q returned HTTP %d", feed.URL, resp.StatusCode())
	}

	var doc rssDocument
	if err := xml.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse feed %q: %w", feed.URL, err)
	}

	inserted := 0
	var itemErrors []string

	for _, item := range doc.Channel.Items {
		guid := strings.TrimSpace(item.GUID)
		if guid == "" {
			guid = strings.TrimSpace(item.Link)
		}
		if guid == "" {
			continue
		}

		author := item.Author
		if author == "" {
			author = item.Creator
		}

		lead := &sources.Lead{
			FeedID:    feed.ID,
			GUID:      guid,
			Title:     strings.TrimSpace(item.Title),
			Link:      strings.TrimSpace(item.Link),
			Country:   feed.Country,
			Author:    strings.TrimSpace(author),
			Summary:   strings.TrimSpace(item.Description),
			Published: strings.TrimSpace(item.PubDate),
		}

		created, err := f.store.InsertLead(ctx, lead)
		if err != nil {
			itemErrors = append(itemErrors, fmt.Sprintf("%s: %v", guid, err))
			continue
		}
		if created {
			inserted++
		}
	}

	if err := f.store.TouchLastFetched(ctx, domain.SourceTypeRSS, feed.ID); err != nil {
		f.logger.Warn("Failed to update last_fetched",
			slog.Int64("feed_id", feed.ID),
			slog.String("error", err.Error()),
		)
	}

	result := &Result{
		Status:    StatusSuccess,
		ItemCount: inserted,
	}
	if len(itemErrors) > 0 {
		result.Status = StatusPartial
		result.ErrorMessage = fmt.Sprintf("%d entries failed: %s", len(itemErrors), strings.Join(firstN(itemErrors, 3), "; "))
	}

	f.logger.Info("RSS feed fetched",
		slog.Int64("feed_id", feed.ID),
		slog.Int("new_leads", inserted),
		slog.Int("entry_errors", len(itemErrors)),
	)

	return result, nil
}

func firstN(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
