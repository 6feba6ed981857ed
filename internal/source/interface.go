package source

import (
	"context"

	"github.com/timmy/insights/internal/domain"
)

// Source supplies a complete dataset sequence. Every Source satisfies
// store.Fetcher.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	// Parameters: none.
	// Returns:
	//   - string: stable source identifier.
	GetSourceID() string

	// GetDisplayName returns a human-readable name for this source.
	GetDisplayName() string

	// FetchAll returns the full sequence in display order.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	// Returns:
	//   - []domain.Dataset: datasets, most recent first.
	//   - error: non-nil if the source cannot be read.
	FetchAll(ctx context.Context) ([]domain.Dataset, error)
}
