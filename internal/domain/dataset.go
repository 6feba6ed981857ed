package domain

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// DateLayout is the format of Dataset.LastUpdated.
const DateLayout = "2006-01-02"

// DatasetStatus is the lifecycle state of a dataset.
// Values include StatusPending, StatusProcessing, StatusCompleted, and StatusFailed.
type DatasetStatus string

const (
	StatusPending    DatasetStatus = "pending"
	StatusProcessing DatasetStatus = "processing"
	StatusCompleted  DatasetStatus = "completed"
	StatusFailed     DatasetStatus = "failed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []DatasetStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

var transitions = map[DatasetStatus][]DatasetStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// Valid reports whether s is one of the four known statuses.
func (s DatasetStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s DatasetStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Awaiting reports whether s still expects a processing outcome.
func (s DatasetStatus) Awaiting() bool {
	return s == StatusPending || s == StatusProcessing
}

// CanTransition reports whether from -> to is a single legal step:
// pending -> processing -> completed|failed.
func CanTransition(from, to DatasetStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Dataset describes one uploaded data file.
type Dataset struct {
	ID           string        `gorm:"type:text;primaryKey" json:"id"`
	Name         string        `gorm:"type:text;not null" json:"name"`
	RowCount     int           `json:"row_count"`
	ColumnCount  int           `json:"column_count"`
	SizeLabel    string        `gorm:"type:text" json:"size"`
	LastUpdated  string        `gorm:"type:text" json:"last_updated"`
	Status       DatasetStatus `gorm:"type:text;index:idx_datasets_status;default:pending" json:"status"`
	QualityScore *int          `json:"quality_score,omitempty"`
	Tags         StringArray   `gorm:"type:text" json:"tags"`
	LastAnalyzed *time.Time    `json:"last_analyzed,omitempty"`
	StorageKey   string        `gorm:"type:text" json:"storage_key,omitempty"`
}

// Clone returns a deep copy; the result shares no memory with d.
func (d Dataset) Clone() Dataset {
	out := d
	if d.QualityScore != nil {
		score := *d.QualityScore
		out.QualityScore = &score
	}
	if d.LastAnalyzed != nil {
		at := *d.LastAnalyzed
		out.LastAnalyzed = &at
	}
	if d.Tags != nil {
		out.Tags = append(StringArray(nil), d.Tags...)
	}
	return out
}

// Validate checks the record-level invariants.
func (d Dataset) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("dataset %q: empty id", d.Name)
	}
	if !d.Status.Valid() {
		return fmt.Errorf("dataset %s: unknown status %q", d.ID, d.Status)
	}
	if d.QualityScore != nil && !ValidScore(*d.QualityScore) {
		return fmt.Errorf("dataset %s: quality score %d out of range", d.ID, *d.QualityScore)
	}
	if d.RowCount < 0 || d.ColumnCount < 0 {
		return fmt.Errorf("dataset %s: negative dimensions", d.ID)
	}
	return nil
}

// CloneAll deep copies a sequence, preserving order. Nil in, empty out.
func CloneAll(in []Dataset) []Dataset {
	out := make([]Dataset, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// ValidScore reports whether score lies in [0,100].
func ValidScore(score int) bool {
	return score >= 0 && score <= 100
}

// Outcome is the result of processing a dataset.
type Outcome struct {
	Status DatasetStatus // StatusCompleted or StatusFailed
	Score  int           // meaningful for StatusCompleted only
	Reason string        // meaningful for StatusFailed only
}

// Completed builds a successful outcome with a quality score.
func Completed(score int) Outcome {
	return Outcome{Status: StatusCompleted, Score: score}
}

// Failed builds a failed outcome.
func Failed(reason string) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason}
}

// Validate checks that the outcome is terminal and, when completed, scored in range.
func (o Outcome) Validate() error {
	switch o.Status {
	case StatusCompleted:
		if !ValidScore(o.Score) {
			return fmt.Errorf("quality score %d must be within [0,100]", o.Score)
		}
	case StatusFailed:
	default:
		return fmt.Errorf("outcome status %q is not terminal", o.Status)
	}
	return nil
}

// FileMeta describes a file handed to an upload.
type FileMeta struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader // may be nil when only metadata is known
	Rows        int       // profiled dimensions, zero when unknown
	Columns     int
	Tags        []string
}

// Validate requires a name and a positive size.
func (m FileMeta) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("file name is required")
	}
	if m.Size <= 0 {
		return fmt.Errorf("file %q: size must be positive, got %d", m.Name, m.Size)
	}
	return nil
}

// UploadReceipt is returned by an upload collaborator once bytes are stored.
type UploadReceipt struct {
	Name string
	Size int64
	Key  string // storage key, empty when nothing was persisted
}

// FormatSize renders a byte count as megabytes with one decimal, e.g. "2.4 MB".
func FormatSize(bytes int64) string {
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}

// DisplayName strips the final extension from a file name.
// "sales.2023.csv" becomes "sales.2023"; a name that is only an
// extension is returned unchanged.
func DisplayName(filename string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	name := strings.TrimSuffix(base, path.Ext(base))
	if name == "" {
		return base
	}
	return name
}
