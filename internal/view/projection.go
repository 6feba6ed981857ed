// Package view derives read-only projections from a dataset sequence.
package view

import (
	"fmt"
	"strings"

	"github.com/timmy/insights/internal/domain"
)

// StatusFilter selects datasets by status. FilterAll matches every status.
type StatusFilter string

// FilterAll is the sentinel filter that matches everything.
const FilterAll StatusFilter = "all"

// ParseStatusFilter validates user input. Empty input means FilterAll.
func ParseStatusFilter(raw string) (StatusFilter, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == string(FilterAll) {
		return FilterAll, nil
	}
	if !domain.DatasetStatus(raw).Valid() {
		return "", fmt.Errorf("unknown status filter %q", raw)
	}
	return StatusFilter(raw), nil
}

// Matches reports whether status passes the filter.
func (f StatusFilter) Matches(status domain.DatasetStatus) bool {
	return f == FilterAll || domain.DatasetStatus(f) == status
}

// Project keeps the datasets whose name contains searchTerm
// (case-insensitive) and whose status passes filter, in input order.
// The result is never nil.
func Project(datasets []domain.Dataset, searchTerm string, filter StatusFilter) []domain.Dataset {
	needle := strings.ToLower(searchTerm)
	out := make([]domain.Dataset, 0, len(datasets))
	for _, ds := range datasets {
		if !filter.Matches(ds.Status) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(ds.Name), needle) {
			continue
		}
		out = append(out, ds)
	}
	return out
}
