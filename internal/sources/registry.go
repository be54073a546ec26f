package sources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
	"github.com/jmoiron/sqlx"
)

// Singleton newspaper feeds are auto-provisioned with these defaults when
// planning finds no row yet.
const (
	ElComercioDefaultCategory    = "Peru"
	ElComercioDefaultURL         = "https://elcomercio.pe/archivo/gastronomia/"
	ElComercioDefaultDisplayName = "El Comercio Gastronomia"
	ElComercioDefaultSection     = "gastronomia"

	DiarioCorreoDefaultCategory    = "Peru"
	DiarioCorreoDefaultURL         = "https://diariocorreo.pe/gastronomia/"
	DiarioCorreoDefaultDisplayName = "Diario Correo Gastronomia"
	DiarioCorreoDefaultSection     = "gastronomia"

	newspaperDefaultFetchInterval = 60
)

// ErrSourceNotFound is returned when a registry row does not exist
var ErrSourceNotFound = errors.New("source not found")

// Registry reads and maintains the five per-source-type registries
type Registry struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewRegistry creates a Registry backed by the shared database
func NewRegistry(db *sqlx.DB, logger *slog.Logger) *Registry {
	return &Registry{
		db:     db,
		logger: logger,
	}
}

// ActiveFeeds returns all active RSS feeds in id order
func (r *Registry) ActiveFeeds(ctx context.Context) ([]SourceRef, error) {
	query := `
		SELECT id, COALESCE(source_name, '') AS name
		FROM feeds
		WHERE is_active
		ORDER BY id
	`

	var refs []SourceRef
	if err := r.db.SelectContext(ctx, &refs, query); err != nil {
		return nil, fmt.Errorf("failed to list active feeds: %w", err)
	}

	return refs, nil
}

// ActiveInstagramFeeds returns all active Instagram accounts in id order.
// The display name falls back to the username when unset.
func (r *Registry) ActiveInstagramFeeds(ctx context.Context) ([]SourceRef, error) {
	query := `
		SELECT id, COALESCE(NULLIF(display_name, ''), username) AS name
		FROM instagram_feeds
		WHERE is_active
		ORDER BY id
	`

	var refs []SourceRef
	if err := r.db.SelectContext(ctx, &refs, query); err != nil {
		return nil, fmt.Errorf("failed to list active instagram feeds: %w", err)
	}

	return refs, nil
}

// ActiveYouTubeFeeds returns all active YouTube channels in id order
func (r *Registry) ActiveYouTubeFeeds(ctx context.Context) ([]SourceRef, error) {
	query := `
		SELECT id, COALESCE(display_name, '') AS name
		FROM youtube_feeds
		WHERE is_active
		ORDER BY id
	`

	var refs []SourceRef
	if err := r.db.SelectContext(ctx, &refs, query); err != nil {
		return nil, fmt.Errorf("failed to list active youtube feeds: %w", err)
	}

	return refs, nil
}

// EnsureElComercioFeed returns the singleton El Comercio feed, creating it
// with defaults when absent
func (r *Registry) EnsureElComercioFeed(ctx context.Context) (*SourceRef, error) {
	return r.ensureNewspaperFeed(ctx, "el_comercio_feeds",
		ElComercioDefaultCategory,
		ElComercioDefaultURL,
		ElComercioDefaultDisplayName,
		ElComercioDefaultSection,
	)
}

// EnsureDiarioCorreoFeed returns the singleton Diario Correo feed, creating
// it with defaults when absent
func (r *Registry) EnsureDiarioCorreoFeed(ctx context.Context) (*SourceRef, error) {
	return r.ensureNewspaperFeed(ctx, "diario_correo_feeds",
		DiarioCorreoDefaultCategory,
		DiarioCorreoDefaultURL,
		DiarioCorreoDefaultDisplayName,
		DiarioCorreoDefaultSection,
	)
}

func (r *Registry) ensureNewspaperFeed(ctx context.Context, table, category, url, displayName, section string) (*SourceRef, error) {
	var ref SourceRef
	query := fmt.Sprintf(`
		SELECT id, COALESCE(display_name, '') AS name
		FROM %s
		ORDER BY id
		LIMIT 1
	`, table)

	err := r.db.GetContext(ctx, &ref, query)
	if err == nil {
		return &ref, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get %s row: %w", table, err)
	}

	categoryID, err := r.ensureCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (category_id, url, display_name, section, fetch_interval, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id
	`, table)

	var id int64
	if err := r.db.QueryRowContext(ctx, insert, categoryID, url, displayName, section, newspaperDefaultFetchInterval).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to provision %s row: %w", table, err)
	}

	r.logger.Info("Provisioned newspaper feed",
		slog.String("table", table),
		slog.Int64("feed_id", id),
		slog.String("display_name", displayName),
	)

	return &SourceRef{ID: id, Name: displayName}, nil
}

// ensureCategory returns the id of the named category, creating it if needed
func (r *Registry) ensureCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `SELECT id FROM categories WHERE name = $1`, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to get category: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create category: %w", err)
	}

	return id, nil
}

// SourceState returns the skip-policy state for one source, or nil when the
// registry has no such row
func (r *Registry) SourceState(ctx context.Context, sourceType string, sourceID int64) (*SourceState, error) {
	table, err := tableForSourceType(sourceType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT last_fetched, is_active FROM %s WHERE id = $1`, table)

	var state SourceState
	err = r.db.GetContext(ctx, &state, query, sourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source state: %w", err)
	}

	return &state, nil
}

// TouchLastFetched stamps the source's last_fetched with the current time
func (r *Registry) TouchLastFetched(ctx context.Context, sourceType string, sourceID int64) error {
	table, err := tableForSourceType(sourceType)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET last_fetched = NOW() WHERE id = $1`, table)
	if _, err := r.db.ExecContext(ctx, query, sourceID); err != nil {
		return fmt.Errorf("failed to update last_fetched: %w", err)
	}

	return nil
}

func tableForSourceType(sourceType string) (string, error) {
	switch sourceType {
	case domain.SourceTypeRSS:
		return "feeds", nil
	case domain.SourceTypeInstagram:
		return "instagram_feeds", nil
	case domain.SourceTypeYouTube:
		return "youtube_feeds", nil
	case domain.SourceTypeElComercio:
		return "el_comercio_feeds", nil
	case domain.SourceTypeDiarioCorreo:
		return "diario_correo_feeds", nil
	default:
		return "", fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
