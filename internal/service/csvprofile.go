package service

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
)

// topValuesLimit caps CategoricalStats.Top.
const topValuesLimit = 10

// Profile summarises the shape of a CSV file.
type Profile struct {
	Rows               int                `json:"rows"`
	Columns            int                `json:"columns"`
	Headers            []string           `json:"headers"`
	MissingCells       int                `json:"missing_cells"`
	NumericColumns     []string           `json:"numeric_columns"`
	CategoricalColumns []string           `json:"categorical_columns"`
	NumericStats       []NumericStats     `json:"numeric_stats"`
	CategoricalStats   []CategoricalStats `json:"categorical_stats"`
}

// NumericStats describes one numeric column. Std is the sample standard
// deviation and is 0 for fewer than two values. Outliers holds the
// zero-based data row indices outside 1.5 IQR of the quartiles.
type NumericStats struct {
	Column     string  `json:"column"`
	Mean       float64 `json:"mean"`
	Median     float64 `json:"median"`
	Std        float64 `json:"std"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Missing    int     `json:"missing"`
	MissingPct float64 `json:"missing_percent"`
	Outliers   []int   `json:"outliers"`
}

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoricalStats describes one non-numeric column. Top lists the most
// frequent values, ties broken by value.
type CategoricalStats struct {
	Column     string       `json:"column"`
	Unique     int          `json:"unique_values"`
	Missing    int          `json:"missing"`
	MissingPct float64      `json:"missing_percent"`
	Top        []ValueCount `json:"top_values"`
}

// Completeness is the share of non-empty cells as a score in [0,100].
// An empty table scores 0.
func (p Profile) Completeness() int {
	cells := p.Rows * p.Columns
	if cells == 0 {
		return 0
	}
	return int(math.Round(100 * float64(cells-p.MissingCells) / float64(cells)))
}

// cell is a non-empty value and the data row it came from.
type cell struct {
	row int
	v   string
}

// ProfileCSV reads a CSV with a header row. Short rows count their
// absent cells as missing; a column is numeric when every non-empty
// value parses as a float.
func ProfileCSV(r io.Reader) (Profile, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Profile{}, errors.New("csv has no header row")
	}
	if err != nil {
		return Profile{}, fmt.Errorf("read csv header: %w", err)
	}

	p := Profile{Columns: len(header), Headers: make([]string, len(header))}
	for i, h := range header {
		p.Headers[i] = strings.TrimSpace(h)
	}
	numeric := make([]bool, len(header))
	values := make([][]cell, len(header))
	for i := range numeric {
		numeric[i] = true
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Profile{}, fmt.Errorf("read csv row %d: %w", p.Rows+1, err)
		}
		row := p.Rows
		p.Rows++
		for i := 0; i < p.Columns; i++ {
			if i >= len(rec) {
				p.MissingCells++
				continue
			}
			v := strings.TrimSpace(rec[i])
			if v == "" {
				p.MissingCells++
				continue
			}
			values[i] = append(values[i], cell{row: row, v: v})
			if numeric[i] {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					numeric[i] = false
				}
			}
		}
	}

	p.NumericColumns = []string{}
	p.CategoricalColumns = []string{}
	p.NumericStats = []NumericStats{}
	p.CategoricalStats = []CategoricalStats{}
	for i, name := range p.Headers {
		if len(values[i]) > 0 && numeric[i] {
			p.NumericColumns = append(p.NumericColumns, name)
			p.NumericStats = append(p.NumericStats, numericStats(name, values[i], p.Rows))
		} else {
			p.CategoricalColumns = append(p.CategoricalColumns, name)
			p.CategoricalStats = append(p.CategoricalStats, categoricalStats(name, values[i], p.Rows))
		}
	}
	return p, nil
}

func missingPct(present, rows int) float64 {
	if rows == 0 {
		return 0
	}
	return 100 * float64(rows-present) / float64(rows)
}

// numericStats expects at least one value, all parseable.
func numericStats(name string, cells []cell, rows int) NumericStats {
	xs := make([]float64, len(cells))
	var sum float64
	for i, c := range cells {
		xs[i], _ = strconv.ParseFloat(c.v, 64)
		sum += xs[i]
	}
	n := float64(len(xs))
	mean := sum / n

	var std float64
	if len(xs) > 1 {
		var ss float64
		for _, x := range xs {
			ss += (x - mean) * (x - mean)
		}
		std = math.Sqrt(ss / (n - 1))
	}

	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	q1, q3 := quantile(sorted, 0.25), quantile(sorted, 0.75)
	iqr := q3 - q1
	lo, hi := q1-1.5*iqr, q3+1.5*iqr

	outliers := []int{}
	for i, x := range xs {
		if x < lo || x > hi {
			outliers = append(outliers, cells[i].row)
		}
	}

	return NumericStats{
		Column:     name,
		Mean:       mean,
		Median:     quantile(sorted, 0.5),
		Std:        std,
		Min:        sorted[0],
		Max:        sorted[len(sorted)-1],
		Missing:    rows - len(xs),
		MissingPct: missingPct(len(xs), rows),
		Outliers:   outliers,
	}
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func categoricalStats(name string, cells []cell, rows int) CategoricalStats {
	counts := make(map[string]int, len(cells))
	for _, c := range cells {
		counts[c.v]++
	}
	top := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		top = append(top, ValueCount{Value: v, Count: n})
	}
	slices.SortFunc(top, func(a, b ValueCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Value, b.Value)
	})
	if len(top) > topValuesLimit {
		top = top[:topValuesLimit]
	}
	return CategoricalStats{
		Column:     name,
		Unique:     len(counts),
		Missing:    rows - len(cells),
		MissingPct: missingPct(len(cells), rows),
		Top:        top,
	}
}
