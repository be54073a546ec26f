package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
	"github.com/dpalacios/newsdesk-be/internal/sources"
	"github.com/go-resty/resty/v2"
)

// NewspaperStore is the slice of the source registry the newspaper adapters use
type NewspaperStore interface {
	GetNewspaperFeed(ctx context.Context, sourceType string, feedID int64) (*sources.NewspaperFeed, error)
	ReplaceScrapes(ctx context.Context, sourceType string, feedID int64, scrapes []sources.Scrape) error
	TouchLastFetched(ctx context.Context, sourceType string, sourceID int64) error
}

// GEC newspaper sites link stories with a trailing -noticia/ slug.
var storyLinkPattern = regexp.MustCompile(`href="(https?://[^"]+-noticia/?[^"]*|/[^"]+-noticia/?[^"]*)"`)

// NewspaperFetcher scrapes one newspaper section page for story links and
// replaces the previous capture. El Comercio and Diario Correo share the
// page structure; the source type selects the singleton feed.
type NewspaperFetcher struct {
	sourceType string
	store      NewspaperStore
	client     *resty.Client
	logger     *slog.Logger
}

// NewElComercioFetcher creates the El Comercio adapter
func NewElComercioFetcher(store NewspaperStore, client *resty.Client, logger *slog.Logger) *NewspaperFetcher {
	return &NewspaperFetcher{
		sourceType: domain.SourceTypeElComercio,
		store:      store,
		client:     client,
		logger:     logger,
	}
}

// NewDiarioCorreoFetcher creates the Diario Correo adapter
func NewDiarioCorreoFetcher(store NewspaperStore, client *resty.Client, logger *slog.Logger) *NewspaperFetcher {
	return &NewspaperFetcher{
		sourceType: domain.SourceTypeDiarioCorreo,
		store:      store,
		client:     client,
		logger:     logger,
	}
}

// Fetch downloads the section page and replaces the stored story links
func (f *NewspaperFetcher) Fetch(ctx context.Context, sourceID int64) (*Result, error) {
	feed, err := f.store.GetNewspaperFeed(ctx, f.sourceType, sourceID)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.R().SetContext(ctx).Get(feed.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch section page %q: %w", feed.URL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("section page %q returned HTTP %d", feed.URL, resp.StatusCode())
	}

	links := extractStoryLinks(resp.String(), feed.URL)
	scrapes := make([]sources.Scrape, 0, len(links))
	for _, link := range links {
		scrapes = append(scrapes, sources.Scrape{FeedID: feed.ID, URL: link})
	}

	if err := f.store.ReplaceScrapes(ctx, f.sourceType, feed.ID, scrapes); err != nil {
		return nil, err
	}

	if err := f.store.TouchLastFetched(ctx, f.sourceType, feed.ID); err != nil {
		f.logger.Warn("Failed to update last_fetched",
			slog.Int64("feed_id", feed.ID),
			slog.String("error", err.Error()),
		)
	}

	f.logger.Info("Newspaper section fetched",
		slog.String("source_type", f.sourceType),
		slog.String("section", feed.Section),
		slog.Int("articles", len(scrapes)),
	)

	return &Result{Status: StatusSuccess, ItemCount: len(scrapes)}, nil
}

// extractStoryLinks pulls story URLs out of the page, resolving relative
// links against the section origin and deduplicating in page order
func extractStoryLinks(page, sectionURL string) []string {
	origin := pageOrigin(sectionURL)

	seen := make(map[string]struct{})
	var links []string

	for _, match := range storyLinkPattern.FindAllStringSubmatch(page, -1) {
		link := match[1]
		if strings.HasPrefix(link, "/") {
			link = origin + link
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}

	return links
}

func pageOrigin(url string) string {
	rest := url
	scheme := ""
	if idx := strings.Index(url, "://"); idx >= 0 {
		scheme = url[:idx+3]
		rest = url[idx+3:]
	}
	if idx := strings.Index(rest, "/"); idx >= 0 {
		rest = rest[:idx]
	}
	return scheme + rest
}
