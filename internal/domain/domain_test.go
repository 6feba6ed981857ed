package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	legal := map[[2]DatasetStatus]bool{
		{StatusPending, StatusProcessing}:   true,
		{StatusProcessing, StatusCompleted}: true,
		{StatusProcessing, StatusFailed}:    true,
	}
	for _, from := range Statuses {
		for _, to := range Statuses {
			assert.Equal(t, legal[[2]DatasetStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestDatasetStatus_Predicates(t *testing.T) {
	assert.True(t, StatusPending.Awaiting())
	assert.True(t, StatusProcessing.Awaiting())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, DatasetStatus("done").Valid())
}

func TestDataset_CloneIsDeep(t *testing.T) {
	score := 80
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	orig := Dataset{ID: "1", QualityScore: &score, Tags: StringArray{"a"}, LastAnalyzed: &at}

	c := orig.Clone()
	*c.QualityScore = 10
	c.Tags[0] = "b"
	*c.LastAnalyzed = at.Add(time.Hour)

	assert.Equal(t, 80, *orig.QualityScore)
	assert.Equal(t, "a", orig.Tags[0])
	assert.Equal(t, at, *orig.LastAnalyzed)
}

func TestDataset_Validate(t *testing.T) {
	bad := 101
	assert.NoError(t, Dataset{ID: "1", Status: StatusPending}.Validate())
	assert.Error(t, Dataset{Status: StatusPending}.Validate())
	assert.Error(t, Dataset{ID: "1", Status: "weird"}.Validate())
	assert.Error(t, Dataset{ID: "1", Status: StatusCompleted, QualityScore: &bad}.Validate())
}

func TestOutcome_Validate(t *testing.T) {
	assert.NoError(t, Completed(0).Validate())
	assert.NoError(t, Completed(100).Validate())
	assert.NoError(t, Failed("boom").Validate())
	assert.Error(t, Completed(-1).Validate())
	assert.Error(t, Completed(101).Validate())
	assert.Error(t, Outcome{Status: StatusProcessing}.Validate())
}

func TestFileMeta_Validate(t *testing.T) {
	assert.NoError(t, FileMeta{Name: "a.csv", Size: 1}.Validate())
	assert.Error(t, FileMeta{Name: " ", Size: 1}.Validate())
	assert.Error(t, FileMeta{Name: "a.csv", Size: 0}.Validate())
	assert.Error(t, FileMeta{Name: "a.csv", Size: -5}.Validate())
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "2.4 MB", FormatSize(2516582))
	assert.Equal(t, "0.0 MB", FormatSize(1))
	assert.Equal(t, "1.0 MB", FormatSize(1<<20))
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"sales.csv":          "sales",
		"sales.2023.xlsx":    "sales.2023",
		"noext":              "noext",
		"dir/report.json":    "report",
		`C:\tmp\survey.csv`:  "survey",
		".env":               ".env",
	}
	for in, want := range tests {
		assert.Equal(t, want, DisplayName(in), in)
	}
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, StringArray{"Sales", "2023"}, NormalizeTags([]string{" Sales", "", "sales", "2023"}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestStringArray_ValueScan(t *testing.T) {
	v, err := StringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var a StringArray
	require.NoError(t, a.Scan([]byte(`["x","y"]`)))
	assert.Equal(t, StringArray{"x", "y"}, a)
	require.NoError(t, a.Scan(nil))
	assert.Empty(t, a)
	assert.Error(t, a.Scan(42))
}

func TestError_IsAndMessage(t *testing.T) {
	err := NewError(KindNotFound, "delete", "42", nil)
	wrapped := fmt.Errorf("handler: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrStaleTransition))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "delete 42: not found", err.Error())
	assert.Equal(t, "Dataset not found", UserMessage(wrapped))

	cause := errors.New("disk full")
	up := NewError(KindUpload, "upload", "", cause)
	assert.ErrorIs(t, up, cause)
	assert.Equal(t, "upload: upload error: disk full", up.Error())
	assert.Equal(t, "Failed to upload dataset. Please try again.", UserMessage(up))

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "", UserMessage(nil))
}
