package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileCSV(t *testing.T) {
	in := "region,sales,product\nwest,10.5,a\neast,,b\nnorth,7\n"
	p, err := ProfileCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 3, p.Rows)
	assert.Equal(t, 3, p.Columns)
	assert.Equal(t, []string{"region", "sales", "product"}, p.Headers)
	assert.Equal(t, 2, p.MissingCells)
	assert.Equal(t, []string{"sales"}, p.NumericColumns)
	assert.Equal(t, []string{"region", "product"}, p.CategoricalColumns)
	assert.Equal(t, 78, p.Completeness())
}

func TestProfileCSV_HeaderOnly(t *testing.T) {
	p, err := ProfileCSV(strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, p.Rows)
	assert.Equal(t, 0, p.Completeness())
	assert.Equal(t, []string{"a", "b"}, p.CategoricalColumns)
}

func TestProfileCSV_Empty(t *testing.T) {
	_, err := ProfileCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestProfileCSV_Malformed(t *testing.T) {
	_, err := ProfileCSV(strings.NewReader("a,b\n\"unterminated,1\n"))
	assert.Error(t, err)
}

func TestProfileCSV_NumericStats(t *testing.T) {
	in := "id,score\n1,10\n2,12\n3,\n4,11\n5,13\n6,100\n"
	p, err := ProfileCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, p.NumericStats, 2)

	st := p.NumericStats[1]
	assert.Equal(t, "score", st.Column)
	assert.InDelta(t, 29.2, st.Mean, 1e-9)
	assert.InDelta(t, 12.0, st.Median, 1e-9)
	assert.InDelta(t, 39.5942, st.Std, 1e-3)
	assert.Equal(t, 10.0, st.Min)
	assert.Equal(t, 100.0, st.Max)
	assert.Equal(t, 1, st.Missing)
	assert.InDelta(t, 100.0/6, st.MissingPct, 1e-9)
	assert.Equal(t, []int{5}, st.Outliers)

	id := p.NumericStats[0]
	assert.Equal(t, []int{}, id.Outliers)
	assert.Zero(t, id.MissingPct)
}

func TestProfileCSV_SingleValueStd(t *testing.T) {
	p, err := ProfileCSV(strings.NewReader("x\n4\n"))
	require.NoError(t, err)
	require.Len(t, p.NumericStats, 1)
	assert.Zero(t, p.NumericStats[0].Std)
	assert.Equal(t, 4.0, p.NumericStats[0].Median)
}

func TestProfileCSV_CategoricalStats(t *testing.T) {
	var b strings.Builder
	b.WriteString("city,n\n")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "c%02d,1\n", i)
	}
	b.WriteString("c05,1\nc05,1\nc01,1\n,1\n")

	p, err := ProfileCSV(strings.NewReader(b.String()))
	require.NoError(t, err)
	require.Len(t, p.CategoricalStats, 1)

	st := p.CategoricalStats[0]
	assert.Equal(t, "city", st.Column)
	assert.Equal(t, 12, st.Unique)
	assert.Equal(t, 1, st.Missing)
	assert.InDelta(t, 100.0/16, st.MissingPct, 1e-9)
	require.Len(t, st.Top, 10)
	assert.Equal(t, ValueCount{Value: "c05", Count: 3}, st.Top[0])
	assert.Equal(t, ValueCount{Value: "c01", Count: 2}, st.Top[1])
	assert.Equal(t, ValueCount{Value: "c00", Count: 1}, st.Top[2])
	assert.Equal(t, "c09", st.Top[9].Value)
}
