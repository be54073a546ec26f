package sources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetFeed loads one RSS feed row for fetching
func (r *Registry) GetFeed(ctx context.Context, feedID int64) (*Feed, error) {
	query := `
		SELECT id, url, COALESCE(source_name, '') AS name, COALESCE(country, '') AS country
		FROM feeds
		WHERE id = $1
	`

	var feed Feed
	err := r.db.GetContext(ctx, &feed, query, feedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return &feed, nil
}

// GetInstagramFeed loads one Instagram account row for fetching
func (r *Registry) GetInstagramFeed(ctx context.Context, feedID int64) (*InstagramFeed, error) {
	query := `SELECT id, username FROM instagram_feeds WHERE id = $1`

	var feed InstagramFeed
	err := r.db.GetContext(ctx, &feed, query, feedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instagram feed: %w", err)
	}

	return &feed, nil
}

// GetYouTubeFeed loads one YouTube channel row for fetching
func (r *Registry) GetYouTubeFeed(ctx context.Context, feedID int64) (*YouTubeFeed, error) {
	query := `
		SELECT id, channel_id, COALESCE(display_name, '') AS name
		FROM youtube_feeds
		WHERE id = $1
	`

	var feed YouTubeFeed
	err := r.db.GetContext(ctx, &feed, query, feedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get youtube feed: %w", err)
	}

	return &feed, nil
}

// GetNewspaperFeed loads one newspaper section row for fetching
func (r *Registry) GetNewspaperFeed(ctx context.Context, sourceType string, feedID int64) (*NewspaperFeed, error) {
	table, err := tableForSourceType(sourceType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, url, COALESCE(display_name, '') AS name, COALESCE(section, '') AS section
		FROM %s
		WHERE id = $1
	`, table)

	var feed NewspaperFeed
	err = r.db.GetContext(ctx, &feed, query, feedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get newspaper feed: %w", err)
	}

	return &feed, nil
}

// InsertLead inserts one lead, deduplicated by (feed_id, guid). Returns
// true when a new row was written.
func (r *Registry) InsertLead(ctx context.Context, lead *Lead) (bool, error) {
	query := `
		INSERT INTO leads (feed_id, guid, title, link, country, author, summary, published, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (feed_id, guid) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		lead.FeedID,
		lead.GUID,
		lead.Title,
		lead.Link,
		lead.Country,
		lead.Author,
		lead.Summary,
		lead.Published,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert lead: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return rows > 0, nil
}

// InsertInstagramPost inserts one media item, deduplicated by (feed_id, media_id)
func (r *Registry) InsertInstagramPost(ctx context.Context, post *InstagramPost) (bool, error) {
	query := `
		INSERT INTO instagram_posts (feed_id, media_id, caption, media_url, permalink, posted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (feed_id, media_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		post.FeedID,
		post.MediaID,
		post.Caption,
		post.MediaURL,
		post.Permalink,
		post.PostedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert instagram post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return rows > 0, nil
}

// InsertYouTubePost inserts one video item, deduplicated by (feed_id, video_id)
func (r *Registry) InsertYouTubePost(ctx context.Context, post *YouTubePost) (bool, error) {
	query := `
		INSERT INTO youtube_posts (feed_id, video_id, title, description, published_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (feed_id, video_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		post.FeedID,
		post.VideoID,
		post.Title,
		post.Description,
		post.PublishedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert youtube post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return rows > 0, nil
}

// ReplaceScrapes swaps the captured article links for one newspaper feed.
// The section page is a moving window, so each fetch replaces the previous
// capture wholesale.
func (r *Registry) ReplaceScrapes(ctx context.Context, sourceType string, feedID int64, scrapes []Scrape) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin scrape replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM scrapes WHERE source_type = $1 AND feed_id = $2`,
		sourceType, feedID,
	); err != nil {
		return fmt.Errorf("failed to clear scrapes: %w", err)
	}

	for _, scrape := range scrapes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scrapes (source_type, feed_id, url, created_at) VALUES ($1, $2, $3, NOW())`,
			sourceType, scrape.FeedID, scrape.URL,
		); err != nil {
			return fmt.Errorf("failed to insert scrape: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scrape replace: %w", err)
	}

	return nil
}
