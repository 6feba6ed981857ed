package service

import (
	"context"
	"strings"
	"testing"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Intent
	}{
		{name: "trend", query: "How did revenue grow over time?", want: IntentTrend},
		{name: "prediction", query: "Forecast sales for next month", want: IntentPrediction},
		{name: "anomaly", query: "Are there any outliers in the spending data?", want: IntentAnomaly},
		{name: "comparison", query: "Compare region A versus region B", want: IntentComparison},
		{name: "aggregation", query: "What is the total and average of profit?", want: IntentAggregation},
		{name: "fallback", query: "hello there", want: IntentExploration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyIntent(tt.query)
			if got.Intent != tt.want {
				t.Errorf("ClassifyIntent(%q) intent = %s, want %s", tt.query, got.Intent, tt.want)
			}
			if got.Confidence < 0.7 || got.Confidence > 0.95 {
				t.Errorf("ClassifyIntent(%q) confidence = %v, want within [0.7,0.95]", tt.query, got.Confidence)
			}
		})
	}
}

func TestClassifyIntent_FallbackConfidence(t *testing.T) {
	got := ClassifyIntent("zzz")
	if got.Intent != IntentExploration || got.Confidence != 0.7 {
		t.Errorf("ClassifyIntent(zzz) = %+v, want data_exploration at 0.7", got)
	}
}

func TestExtractEntities(t *testing.T) {
	e := ExtractEntities("Show revenue, profit where region = 'west' from 2023-01 to 2023-06")

	if len(e.Columns) != 2 || e.Columns[0] != "revenue" || e.Columns[1] != "profit" {
		t.Errorf("Columns = %v, want [revenue profit]", e.Columns)
	}
	if len(e.Filters) != 1 {
		t.Fatalf("Filters = %v, want one filter", e.Filters)
	}
	if f := e.Filters[0]; f.Column != "region" || f.Operator != "=" || f.Value != "west" {
		t.Errorf("Filter = %+v, want region = west", f)
	}
	if e.TimeRange == nil || e.TimeRange.Start != "2023-01" || e.TimeRange.End != "2023-06" {
		t.Errorf("TimeRange = %+v, want 2023-01 to 2023-06", e.TimeRange)
	}
}

func TestExtractEntities_Aggregation(t *testing.T) {
	e := ExtractEntities("average of salary")
	if len(e.Aggregations) != 1 || e.Aggregations[0].Function != "average" || e.Aggregations[0].Column != "salary" {
		t.Errorf("Aggregations = %+v, want average of salary", e.Aggregations)
	}
}

func TestExtractEntities_None(t *testing.T) {
	e := ExtractEntities("hello")
	if !e.Empty() {
		t.Errorf("ExtractEntities(hello) = %+v, want empty", e)
	}
	if e.String() != "none" {
		t.Errorf("String() = %q, want none", e.String())
	}
}

func TestRuleAssistant_Ask(t *testing.T) {
	a := NewRuleAssistant()
	reply, err := a.Ask(context.Background(), "Show sales by region")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !strings.HasPrefix(reply, "I understand you want to data_exploration (confidence: 0.80)") {
		t.Errorf("Ask() = %q", reply)
	}
	if !strings.Contains(reply, "columns: sales") {
		t.Errorf("Ask() = %q, want sales column mentioned", reply)
	}
}

func TestRuleAssistant_AskCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRuleAssistant().Ask(ctx, "show sales"); err == nil {
		t.Error("Ask() with cancelled context should fail")
	}
}

func TestRuleAssistant_VoiceReply(t *testing.T) {
	a := NewRuleAssistant()

	got := a.VoiceReply(a.Understand("hello"))
	want := "Voice command understood. Intent: data_exploration. I'll process your request about your data."
	if got != want {
		t.Errorf("VoiceReply() = %q, want %q", got, want)
	}

	got = a.VoiceReply(a.Understand("display revenue"))
	if !strings.HasSuffix(got, "about revenue.") {
		t.Errorf("VoiceReply() = %q, want it to mention revenue", got)
	}
}
