package pricehistory

import (
	"pricemonitor/lib/snapshot"
	"pricemonitor/lib/timezone"
)

// ObservationKey is the (product_key, price, scraped_at) triple that
// identifies one observation. Prices and times are put in canonical
// form so 799 and 799.00, or the same instant in two zones, compare
// equal.
type ObservationKey struct {
	ProductKey string
	Price      string
	ScrapedAt  string
}

// RunKey is the (product_key, scraped_at) pair. Every snapshot of one
// fetch shares the same scraped_at, so a repeated RunKey means the page
// listed a product twice in one pass.
type RunKey struct {
	ProductKey string
	ScrapedAt  string
}

func KeyOf(s snapshot.ProductSnapshot) ObservationKey {
	return ObservationKey{
		ProductKey: s.ProductKey,
		Price:      s.Price.String(),
		ScrapedAt:  timezone.Format(s.ScrapedAt),
	}
}

func (k ObservationKey) Run() RunKey {
	return RunKey{ProductKey: k.ProductKey, ScrapedAt: k.ScrapedAt}
}

// Dedupe drops every snapshot whose observation triple or run pair was
// already seen earlier in the slice. The first occurrence wins and the
// survivors keep their relative order, so with history concatenated
// ahead of a fresh fetch the result stays chronological.
func Dedupe(snapshots []snapshot.ProductSnapshot) []snapshot.ProductSnapshot {
	seenObservations := make(map[ObservationKey]struct{}, len(snapshots))
	seenRuns := make(map[RunKey]struct{}, len(snapshots))

	out := make([]snapshot.ProductSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		key := KeyOf(s)
		if _, dup := seenObservations[key]; dup {
			continue
		}
		if _, dup := seenRuns[key.Run()]; dup {
			continue
		}
		seenObservations[key] = struct{}{}
		seenRuns[key.Run()] = struct{}{}
		out = append(out, s)
	}
	return out
}
