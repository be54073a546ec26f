// Package fetch holds the source fetch adapters the batch orchestrator
// invokes through one narrow contract. Adapters do network I/O, write the
// shared content tables as a side effect, and report an opaque Result.
package fetch

import (
	"context"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
)

// Result statuses. StatusFailed is the only value the orchestrator
// special-cases (case-insensitively); anything else counts as success.
const (
	StatusSuccess = "SUCCESS"
	StatusPartial = "PARTIAL"
	StatusFailed  = "FAILED"
)

// Result is the adapter's report for one fetch. ErrorMessage may be set
// even on a non-failed status (partial success) and is passed through to
// the step verbatim.
type Result struct {
	Status       string `json:"status"`
	ItemCount    int    `json:"item_count"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Fetcher is the single operation an adapter exposes to the orchestrator
type Fetcher interface {
	Fetch(ctx context.Context, sourceID int64) (*Result, error)
}

// FetcherSet carries one adapter per source type. A closed struct keeps
// the set of source types explicit instead of a string-keyed map.
type FetcherSet struct {
	RSS          Fetcher
	Instagram    Fetcher
	YouTube      Fetcher
	ElComercio   Fetcher
	DiarioCorreo Fetcher
}

// ForSourceType returns the adapter for a step's source type, or nil when
// the type is unknown or unwired
func (s *FetcherSet) ForSourceType(sourceType string) Fetcher {
	switch sourceType {
	case domain.SourceTypeRSS:
		return s.RSS
	case domain.SourceTypeInstagram:
		return s.Instagram
	case domain.SourceTypeYouTube:
		return s.YouTube
	case domain.SourceTypeElComercio:
		return s.ElComercio
	case domain.SourceTypeDiarioCorreo:
		return s.DiarioCorreo
	default:
		return nil
	}
}
