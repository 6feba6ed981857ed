package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Intent is the category of a data question.
type Intent string

const (
	IntentExploration Intent = "data_exploration"
	IntentStatistics  Intent = "statistical_analysis"
	IntentTrend       Intent = "trend_analysis"
	IntentComparison  Intent = "comparison"
	IntentPrediction  Intent = "prediction"
	IntentAnomaly     Intent = "anomaly_detection"
	IntentFiltering   Intent = "data_filtering"
	IntentAggregation Intent = "data_aggregation"
)

// fallbackConfidence is reported when no keyword matched.
const fallbackConfidence = 0.7

// Filter is a "where <column> <op> <value>" condition.
type Filter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// Aggregation is a "<function> of <column>" request.
type Aggregation struct {
	Function string `json:"function"`
	Column   string `json:"column"`
}

// TimeRange is a "from X to Y" or "between X and Y" span.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Entities are the structured parts recognised in a question.
type Entities struct {
	Columns      []string      `json:"columns"`
	Filters      []Filter      `json:"filters"`
	Aggregations []Aggregation `json:"aggregations"`
	TimeRange    *TimeRange    `json:"time_range"`
}

// Empty reports whether nothing was recognised.
func (e Entities) Empty() bool {
	return len(e.Columns) == 0 && len(e.Filters) == 0 && len(e.Aggregations) == 0 && e.TimeRange == nil
}

// String renders the entities for a reply sentence.
func (e Entities) String() string {
	if e.Empty() {
		return "none"
	}
	var parts []string
	if len(e.Columns) > 0 {
		parts = append(parts, "columns: "+strings.Join(e.Columns, ", "))
	}
	if len(e.Filters) > 0 {
		fs := make([]string, len(e.Filters))
		for i, f := range e.Filters {
			fs[i] = fmt.Sprintf("%s %s %s", f.Column, f.Operator, f.Value)
		}
		parts = append(parts, "filters: "+strings.Join(fs, ", "))
	}
	if len(e.Aggregations) > 0 {
		as := make([]string, len(e.Aggregations))
		for i, a := range e.Aggregations {
			as[i] = fmt.Sprintf("%s of %s", a.Function, a.Column)
		}
		parts = append(parts, "aggregations: "+strings.Join(as, ", "))
	}
	if e.TimeRange != nil {
		parts = append(parts, fmt.Sprintf("time range: %s to %s", e.TimeRange.Start, e.TimeRange.End))
	}
	return strings.Join(parts, "; ")
}

var (
	columnPattern = regexp.MustCompile(`(?i)(?:show|display|what is|what are|analyze|compare)(?:\s+the)?\s+([a-zA-Z0-9_\s,]+?)(?:\s+from|\s+in|\s+of|\s+for|\s+by|\s+where|$)`)
	filterPattern = regexp.MustCompile(`(?i)where\s+([a-zA-Z0-9_]+)\s+(is|>=|<=|!=|=|>|<)\s+('[^']*'|"[^"]*"|[a-zA-Z0-9_.\-]+)`)
	aggPattern    = regexp.MustCompile(`(?i)\b(average|avg|sum|total|count|min|max|mean|median)\s+(?:of\s+|for\s+)?([a-zA-Z0-9_]+(?:\s+[a-zA-Z0-9_]+)?)`)
	timePattern   = regexp.MustCompile(`(?i)(?:from|between)\s+([a-zA-Z0-9_\-/]+(?:\s+[a-zA-Z0-9_\-/]+)?)\s+(?:to|and)\s+([a-zA-Z0-9_\-/]+(?:\s+[a-zA-Z0-9_\-/]+)?)`)
)

// ExtractEntities pulls columns, filters, aggregations and a time range
// out of a free-text question.
func ExtractEntities(query string) Entities {
	e := Entities{Columns: []string{}, Filters: []Filter{}, Aggregations: []Aggregation{}}

	if m := columnPattern.FindStringSubmatch(query); m != nil {
		for _, col := range strings.Split(m[1], ",") {
			if col = strings.TrimSpace(col); col != "" {
				e.Columns = append(e.Columns, col)
			}
		}
	}

	for _, m := range filterPattern.FindAllStringSubmatch(query, -1) {
		e.Filters = append(e.Filters, Filter{
			Column:   strings.TrimSpace(m[1]),
			Operator: strings.TrimSpace(m[2]),
			Value:    strings.Trim(strings.TrimSpace(m[3]), `'"`),
		})
	}

	for _, m := range aggPattern.FindAllStringSubmatch(query, -1) {
		e.Aggregations = append(e.Aggregations, Aggregation{
			Function: strings.ToLower(m[1]),
			Column:   strings.TrimSpace(m[2]),
		})
	}

	if m := timePattern.FindStringSubmatch(query); m != nil {
		e.TimeRange = &TimeRange{Start: strings.TrimSpace(m[1]), End: strings.TrimSpace(m[2])}
	}

	return e
}

// intentKeywords is checked in order; earlier intents win ties.
var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentPrediction, []string{"predict", "forecast", "projection", "next month", "next year", "will be"}},
	{IntentAnomaly, []string{"anomal", "outlier", "unusual", "spike", "abnormal", "unexpected"}},
	{IntentTrend, []string{"trend", "over time", "growth", "increase", "decrease", "monthly", "yearly", "seasonal"}},
	{IntentComparison, []string{"compare", "comparison", "versus", " vs ", "difference between", "better than"}},
	{IntentAggregation, []string{"sum", "total", "average", "avg", "count", "group by", "aggregate", "per "}},
	{IntentFiltering, []string{"where", "filter", "only", "exclude", "greater than", "less than"}},
	{IntentStatistics, []string{"mean", "median", "standard deviation", "variance", "correlation", "distribution", "statistic"}},
	{IntentExploration, []string{"show", "display", "explore", "overview", "what is", "what are", "list"}},
}

// Classification is an intent with a confidence in [0,1].
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// ClassifyIntent picks the intent with the most keyword hits.
// Without any hit it falls back to data exploration at 0.7.
func ClassifyIntent(query string) Classification {
	q := " " + strings.ToLower(query) + " "
	best, bestHits := IntentExploration, 0
	for _, ik := range intentKeywords {
		hits := 0
		for _, kw := range ik.keywords {
			if strings.Contains(q, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = ik.intent, hits
		}
	}
	if bestHits == 0 {
		return Classification{Intent: IntentExploration, Confidence: fallbackConfidence}
	}
	conf := math.Min(0.95, 0.7+0.1*float64(bestHits))
	return Classification{Intent: best, Confidence: math.Round(conf*100) / 100}
}

// Understanding combines intent and entities for one question.
type Understanding struct {
	Classification
	Entities Entities `json:"entities"`
}

// RuleAssistant answers from local pattern matching, without a model.
// It satisfies Assistant.
type RuleAssistant struct{}

// NewRuleAssistant creates a RuleAssistant.
func NewRuleAssistant() *RuleAssistant {
	return &RuleAssistant{}
}

// Understand classifies text and extracts its entities.
func (a *RuleAssistant) Understand(text string) Understanding {
	return Understanding{Classification: ClassifyIntent(text), Entities: ExtractEntities(text)}
}

// Ask describes what was understood from text.
func (a *RuleAssistant) Ask(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	u := a.Understand(text)
	return fmt.Sprintf("I understand you want to %s (confidence: %.2f). I found these entities: %s",
		u.Intent, u.Confidence, u.Entities), nil
}

// VoiceReply is the acknowledgement for a spoken command.
func (a *RuleAssistant) VoiceReply(u Understanding) string {
	about := "your data"
	if len(u.Entities.Columns) > 0 {
		about = strings.Join(u.Entities.Columns, ", ")
	}
	return fmt.Sprintf("Voice command understood. Intent: %s. I'll process your request about %s.", u.Intent, about)
}
