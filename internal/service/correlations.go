package service

import (
	"math"
	"sort"

	"github.com/timmy/insights/internal/domain"
)

// Correlation relates two datasets by the tags they share.
type Correlation struct {
	A          string   `json:"dataset_a"`
	B          string   `json:"dataset_b"`
	NameA      string   `json:"name_a"`
	NameB      string   `json:"name_b"`
	Strength   float64  `json:"strength"` // Jaccard index of the tag sets
	SharedTags []string `json:"shared_tags"`
}

// Correlate returns every pair with at least one shared tag, strongest
// first. Ties keep the order of the input sequence.
func Correlate(datasets []domain.Dataset) []Correlation {
	out := []Correlation{}
	for i := 0; i < len(datasets); i++ {
		for j := i + 1; j < len(datasets); j++ {
			a, b := datasets[i], datasets[j]
			shared := []string{}
			for _, t := range a.Tags {
				if b.Tags.Contains(t) {
					shared = append(shared, t)
				}
			}
			if len(shared) == 0 {
				continue
			}
			union := len(a.Tags) + len(b.Tags) - len(shared)
			strength := math.Round(1000*float64(len(shared))/float64(union)) / 1000
			out = append(out, Correlation{
				A: a.ID, B: b.ID, NameA: a.Name, NameB: b.Name,
				Strength: strength, SharedTags: shared,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	return out
}
