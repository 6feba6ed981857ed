package view

import (
	"math"

	"github.com/timmy/insights/internal/domain"
)

// Summary aggregates a dataset sequence for the dashboard.
type Summary struct {
	Total          int                          `json:"total"`
	ByStatus       map[domain.DatasetStatus]int `json:"by_status"`
	TotalRows      int                          `json:"total_rows"`
	AverageQuality *float64                     `json:"average_quality,omitempty"`
	Scored         int                          `json:"scored"`
	NeverAnalyzed  int                          `json:"never_analyzed"`
}

// Summarize counts datasets per status and averages quality scores.
// AverageQuality stays nil until at least one dataset is scored.
func Summarize(datasets []domain.Dataset) Summary {
	s := Summary{
		Total:    len(datasets),
		ByStatus: make(map[domain.DatasetStatus]int, len(domain.Statuses)),
	}
	for _, st := range domain.Statuses {
		s.ByStatus[st] = 0
	}

	sum := 0
	for _, ds := range datasets {
		s.ByStatus[ds.Status]++
		s.TotalRows += ds.RowCount
		if ds.QualityScore != nil {
			sum += *ds.QualityScore
			s.Scored++
		}
		if ds.LastAnalyzed == nil {
			s.NeverAnalyzed++
		}
	}
	if s.Scored > 0 {
		avg := math.Round(float64(sum)/float64(s.Scored)*10) / 10
		s.AverageQuality = &avg
	}
	return s
}
