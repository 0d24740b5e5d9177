package pricehistory

import (
	"pricemonitor/lib/snapshot"

	"github.com/antzucaro/matchr"
	"github.com/shopspring/decimal"
)

// Series is every observation of one product in history order.
type Series struct {
	ProductKey   string
	Observations []snapshot.ProductSnapshot
}

func (s Series) Latest() snapshot.ProductSnapshot {
	return s.Observations[len(s.Observations)-1]
}

// Change is the price difference between an observation and the one
// before it, zero for the first observation.
func (s Series) Change(i int) decimal.Decimal {
	if i <= 0 || i >= len(s.Observations) {
		return decimal.Zero
	}
	return s.Observations[i].Price.Sub(s.Observations[i-1].Price)
}

// GroupByProduct splits history into one Series per product key, in
// order of each key's first appearance.
func GroupByProduct(history []snapshot.ProductSnapshot) []Series {
	var result []Series
	index := make(map[string]int)
	for _, s := range history {
		i, ok := index[s.ProductKey]
		if !ok {
			i = len(result)
			index[s.ProductKey] = i
			result = append(result, Series{ProductKey: s.ProductKey})
		}
		result[i].Observations = append(result[i].Observations, s)
	}
	return result
}

// SuggestKey returns the known key most similar to `key`. It returns ""
// when there are no known keys or none shares a single character match
// with `key` (every similarity is 0).
func SuggestKey(key string, known []string) string {
	var mostSimilarity float64
	var mostSimilar string
	for _, candidate := range known {
		similarity := matchr.JaroWinkler(key, candidate, false)
		if similarity > mostSimilarity {
			mostSimilarity = similarity
			mostSimilar = candidate
		}
	}
	return mostSimilar
}
