// Package manifest reads and writes dataset catalogues stored as JSON Lines.
package manifest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/timmy/insights/internal/domain"
	"github.com/timmy/insights/internal/logger"
)

// Item is one line of a manifest file.
type Item struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Rows         int      `json:"rows"`
	Columns      int      `json:"columns"`
	SizeBytes    int64    `json:"size_bytes,omitempty"`
	Size         string   `json:"size,omitempty"` // preformatted label, wins over size_bytes
	LastUpdated  string   `json:"last_updated"`
	Status       string   `json:"status"`
	QualityScore *int     `json:"quality_score,omitempty"`
	Tags         []string `json:"tags"`
}

// Dataset converts the item into a domain record.
func (it Item) Dataset() domain.Dataset {
	size := it.Size
	if size == "" {
		size = domain.FormatSize(it.SizeBytes)
	}
	status := domain.DatasetStatus(strings.ToLower(it.Status))
	if status == "" {
		status = domain.StatusPending
	}
	return domain.Dataset{
		ID:           it.ID,
		Name:         it.Name,
		RowCount:     it.Rows,
		ColumnCount:  it.Columns,
		SizeLabel:    size,
		LastUpdated:  it.LastUpdated,
		Status:       status,
		QualityScore: it.QualityScore,
		Tags:         domain.NormalizeTags(it.Tags),
	}
}

// FromDataset is the inverse of Item.Dataset.
func FromDataset(ds domain.Dataset) Item {
	return Item{
		ID:           ds.ID,
		Name:         ds.Name,
		Rows:         ds.RowCount,
		Columns:      ds.ColumnCount,
		Size:         ds.SizeLabel,
		LastUpdated:  ds.LastUpdated,
		Status:       string(ds.Status),
		QualityScore: ds.QualityScore,
		Tags:         ds.Tags,
	}
}

// Adapter implements source.Source for a manifest file. The file is
// re-read on every fetch, so edits show up on the next load.
type Adapter struct {
	path string
}

// NewAdapter creates a manifest adapter.
// Parameters:
//   - path: path to the JSON Lines manifest.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(path string) *Adapter {
	return &Adapter{path: path}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return "manifest:" + filepath.Base(a.path)
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("Manifest (%s)", a.path)
}

// FetchAll reads every item in file order. Blank lines are ignored;
// malformed lines are skipped with a warning.
func (a *Adapter) FetchAll(ctx context.Context) ([]domain.Dataset, error) {
	file, err := os.Open(a.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("manifest file not found: %s", a.path)
		}
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	items, err := Read(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest %s: %w", a.path, err)
	}

	datasets := make([]domain.Dataset, 0, len(items))
	for _, it := range items {
		datasets = append(datasets, it.Dataset())
	}
	return datasets, nil
}

// Read decodes manifest items from r.
func Read(ctx context.Context, r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item Item
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			logger.CtxWarn(ctx, "Skipping malformed manifest line %d: %v", lineNo, err)
			continue
		}
		if item.ID == "" {
			logger.CtxWarn(ctx, "Skipping manifest line %d: missing id", lineNo)
			continue
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Write encodes datasets as JSON Lines, one item per line.
func Write(w io.Writer, datasets []domain.Dataset) error {
	enc := json.NewEncoder(w)
	for _, ds := range datasets {
		if err := enc.Encode(FromDataset(ds)); err != nil {
			return fmt.Errorf("encode dataset %s: %w", ds.ID, err)
		}
	}
	return nil
}
