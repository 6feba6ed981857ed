package source

import (
	"context"
	"time"

	"github.com/timmy/insights/internal/domain"
)

// Builtin serves a fixed demo catalogue, optionally after a simulated latency.
type Builtin struct {
	latency time.Duration
}

// NewBuiltin creates the demo source. latency is waited out before
// every fetch unless ctx ends first.
func NewBuiltin(latency time.Duration) *Builtin {
	return &Builtin{latency: latency}
}

func (b *Builtin) GetSourceID() string    { return "builtin" }
func (b *Builtin) GetDisplayName() string { return "Demo datasets" }

// FetchAll returns a fresh copy of the demo catalogue.
func (b *Builtin) FetchAll(ctx context.Context) ([]domain.Dataset, error) {
	if b.latency > 0 {
		timer := time.NewTimer(b.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return demoDatasets(), nil
}

func demoDatasets() []domain.Dataset {
	score := func(n int) *int { return &n }
	return []domain.Dataset{
		{
			ID: "1", Name: "Customer Survey Results", RowCount: 1245, ColumnCount: 18,
			SizeLabel: "2.4 MB", LastUpdated: "2023-12-15", Status: domain.StatusCompleted,
			QualityScore: score(87), Tags: domain.StringArray{"customer", "survey", "feedback"},
		},
		{
			ID: "2", Name: "Sales Transactions 2023", RowCount: 5432, ColumnCount: 12,
			SizeLabel: "8.7 MB", LastUpdated: "2023-11-28", Status: domain.StatusCompleted,
			QualityScore: score(92), Tags: domain.StringArray{"sales", "transactions", "revenue"},
		},
		{
			ID: "3", Name: "Marketing Campaign Results", RowCount: 876, ColumnCount: 24,
			SizeLabel: "3.2 MB", LastUpdated: "2023-12-10", Status: domain.StatusProcessing,
			Tags: domain.StringArray{"marketing", "campaign", "performance"},
		},
		{
			ID: "4", Name: "Product Inventory", RowCount: 1200, ColumnCount: 10,
			SizeLabel: "1.5 MB", LastUpdated: "2023-12-10", Status: domain.StatusCompleted,
			QualityScore: score(81), Tags: domain.StringArray{"product", "inventory"},
		},
		{
			ID: "5", Name: "Employee Performance", RowCount: 75, ColumnCount: 20,
			SizeLabel: "0.5 MB", LastUpdated: "2023-11-15", Status: domain.StatusPending,
			Tags: domain.StringArray{"employee", "performance"},
		},
	}
}
