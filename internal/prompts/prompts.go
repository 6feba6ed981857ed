package prompts

import (
	"fmt"
	"strings"

	"github.com/timmy/insights/internal/domain"
)

// ============================================================================
// Shared vocabulary
// ============================================================================

// Intents is the closed set of request categories the assistant recognises.
var Intents = []string{
	"data_exploration",
	"statistical_analysis",
	"trend_analysis",
	"comparison",
	"prediction",
	"anomaly_detection",
	"data_filtering",
	"data_aggregation",
}

// ============================================================================
// Assistant prompts
// ============================================================================

// AssistantSystemPrompt defines the role and rules for the chat assistant.
const AssistantSystemPrompt = `You are the Data Insights Assistant. You help people explore and understand the tabular datasets they have uploaded.

Rules:
- Answer in at most three short paragraphs.
- Refer to datasets by name. Never invent datasets, columns or numbers that are not in the catalogue below.
- When a question needs a computation you cannot perform, say which dataset and columns would answer it.
- Classify the request as one of: ` + "data_exploration, statistical_analysis, trend_analysis, comparison, prediction, anomaly_detection, data_filtering, data_aggregation" + `, and let that shape the answer.`

// CatalogHeader introduces the dataset catalogue appended to the system prompt.
const CatalogHeader = "Dataset catalogue (name | status | rows x columns | quality | tags):"

// EmptyCatalog is used when no dataset is loaded.
const EmptyCatalog = "No datasets are loaded yet. Suggest uploading a CSV file."

// BuildCatalog renders datasets as compact context lines, at most limit entries.
func BuildCatalog(datasets []domain.Dataset, limit int) string {
	if len(datasets) == 0 {
		return EmptyCatalog
	}
	var b strings.Builder
	b.WriteString(CatalogHeader)
	for i, ds := range datasets {
		if limit > 0 && i == limit {
			fmt.Fprintf(&b, "\n- ... and %d more", len(datasets)-limit)
			break
		}
		quality := "n/a"
		if ds.QualityScore != nil {
			quality = fmt.Sprintf("%d/100", *ds.QualityScore)
		}
		fmt.Fprintf(&b, "\n- %s | %s | %d x %d | %s | %s",
			ds.Name, ds.Status, ds.RowCount, ds.ColumnCount, quality, strings.Join(ds.Tags, ", "))
	}
	return b.String()
}

// SystemPrompt joins the assistant rules with the current catalogue.
func SystemPrompt(datasets []domain.Dataset) string {
	return AssistantSystemPrompt + "\n\n" + BuildCatalog(datasets, 50)
}
