package sources

import "time"

// SourceRef identifies one plannable source: registry row id plus the
// display label snapshotted onto the step at planning time.
type SourceRef struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// SourceState is the per-source state the orchestrator consults for its
// skip policy. A nil *SourceState means the registry has no such row.
type SourceState struct {
	LastFetched *time.Time `db:"last_fetched"`
	IsActive    bool       `db:"is_active"`
}

// Feed is an RSS feed registry row, reduced to what the fetch adapter needs
type Feed struct {
	ID      int64  `db:"id"`
	URL     string `db:"url"`
	Name    string `db:"name"`
	Country string `db:"country"`
}

// InstagramFeed is an Instagram account registry row
type InstagramFeed struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
}

// YouTubeFeed is a YouTube channel registry row
type YouTubeFeed struct {
	ID        int64  `db:"id"`
	ChannelID string `db:"channel_id"`
	Name      string `db:"name"`
}

// NewspaperFeed is a singleton newspaper section registry row
type NewspaperFeed struct {
	ID      int64  `db:"id"`
	URL     string `db:"url"`
	Name    string `db:"name"`
	Section string `db:"section"`
}

// Lead is one normalized content item produced by the RSS adapter
type Lead struct {
	FeedID    int64
	GUID      string
	Title     string
	Link      string
	Country   string
	Author    string
	Summary   string
	Published string
}

// InstagramPost is one media item produced by the Instagram adapter
type InstagramPost struct {
	FeedID    int64
	MediaID   string
	Caption   string
	MediaURL  string
	Permalink string
	PostedAt  string
}

// YouTubePost is one video item produced by the YouTube adapter
type YouTubePost struct {
	FeedID      int64
	VideoID     string
	Title       string
	Description string
	PublishedAt string
}

// Scrape is one article link captured from a newspaper section page
type Scrape struct {
	FeedID int64
	URL    string
}
