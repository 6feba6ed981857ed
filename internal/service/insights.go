package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/timmy/insights/internal/domain"
)

// Columns assumed when a dataset has no readable profile.
var (
	defaultNumericColumns     = []string{"sales", "revenue", "profit", "customers"}
	defaultCategoricalColumns = []string{"region", "product", "category"}
)

// missingRate is the share of cells assumed missing without a profile.
const missingRate = 0.05

// Chart is a suggested visualisation.
type Chart struct {
	Type  string `json:"type"` // bar, line, pie
	Title string `json:"title"`
}

// InsightSummary is the headline numbers of a dataset.
type InsightSummary struct {
	Rows          int `json:"rows"`
	Columns       int `json:"columns"`
	MissingValues int `json:"missing_values"`
}

// Insights is the analysis result for one dataset.
type Insights struct {
	DatasetID          string         `json:"dataset_id"`
	Name               string         `json:"name"`
	Summary            InsightSummary `json:"summary"`
	NumericColumns     []string       `json:"numeric_columns"`
	CategoricalColumns []string       `json:"categorical_columns"`
	Charts             []Chart        `json:"charts"`
	QualityScore       *int           `json:"quality_score,omitempty"`
	Profiled           bool           `json:"profiled"`

	// Set only when Profiled.
	NumericStats     []NumericStats     `json:"numeric_stats,omitempty"`
	CategoricalStats []CategoricalStats `json:"categorical_stats,omitempty"`
}

// AnalysisService builds insights, reading stored CSV files when it can.
type AnalysisService struct {
	files Downloader
}

// NewAnalysisService creates the service; files may be nil.
func NewAnalysisService(files Downloader) *AnalysisService {
	return &AnalysisService{files: files}
}

// Insights returns the analysis of ds. A stored CSV that cannot be read
// is an error; datasets without a CSV get estimated figures.
func (s *AnalysisService) Insights(ctx context.Context, ds domain.Dataset) (Insights, error) {
	if s.files == nil || !strings.HasSuffix(strings.ToLower(ds.StorageKey), ".csv") {
		return InsightsFor(ds), nil
	}
	rc, err := s.files.Download(ctx, ds.StorageKey)
	if err != nil {
		return Insights{}, domain.NewError(domain.KindService, "insights", ds.ID, err)
	}
	defer rc.Close()
	prof, err := ProfileCSV(io.Reader(rc))
	if err != nil {
		return Insights{}, domain.NewError(domain.KindService, "insights", ds.ID, err)
	}
	return InsightsFromProfile(ds, prof), nil
}

// InsightsFor estimates insights from the dataset record alone.
func InsightsFor(ds domain.Dataset) Insights {
	in := Insights{
		DatasetID:          ds.ID,
		Name:               ds.Name,
		Summary:            InsightSummary{Rows: ds.RowCount, Columns: ds.ColumnCount},
		NumericColumns:     append([]string(nil), defaultNumericColumns...),
		CategoricalColumns: append([]string(nil), defaultCategoricalColumns...),
		QualityScore:       ds.Clone().QualityScore,
	}
	in.Summary.MissingValues = int(float64(ds.RowCount*ds.ColumnCount) * missingRate)
	in.Charts = suggestCharts(in.NumericColumns, in.CategoricalColumns)
	return in
}

// InsightsFromProfile uses measured figures.
func InsightsFromProfile(ds domain.Dataset, p Profile) Insights {
	in := Insights{
		DatasetID:          ds.ID,
		Name:               ds.Name,
		Summary:            InsightSummary{Rows: p.Rows, Columns: p.Columns, MissingValues: p.MissingCells},
		NumericColumns:     p.NumericColumns,
		CategoricalColumns: p.CategoricalColumns,
		QualityScore:       ds.Clone().QualityScore,
		Profiled:           true,
		NumericStats:       p.NumericStats,
		CategoricalStats:   p.CategoricalStats,
	}
	in.Charts = suggestCharts(in.NumericColumns, in.CategoricalColumns)
	return in
}

func suggestCharts(numeric, categorical []string) []Chart {
	charts := []Chart{}
	if len(numeric) > 0 && len(categorical) > 0 {
		charts = append(charts, Chart{Type: "bar", Title: fmt.Sprintf("%s by %s", title(numeric[0]), title(categorical[0]))})
	}
	if len(numeric) > 0 {
		charts = append(charts, Chart{Type: "line", Title: fmt.Sprintf("%s Trend", title(numeric[0]))})
	}
	if len(categorical) > 0 {
		charts = append(charts, Chart{Type: "pie", Title: fmt.Sprintf("%s Distribution", title(categorical[0]))})
	}
	return charts
}

func title(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
