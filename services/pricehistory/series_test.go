package pricehistory

import (
	"pricemonitor/lib/snapshot"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestGroupByProduct(t *testing.T) {
	history := []snapshot.ProductSnapshot{
		snap("b", "10", t1),
		snap("a", "799", t1),
		snap("b", "12.5", t2),
		snap("a", "749", t2),
	}

	series := GroupByProduct(history)
	require.Len(t, series, 2)
	require.Equal(t, "b", series[0].ProductKey)
	require.Equal(t, "a", series[1].ProductKey)

	require.True(t, series[0].Change(0).IsZero())
	require.True(t, decimal.RequireFromString("2.5").Equal(series[0].Change(1)))
	require.True(t, decimal.RequireFromString("-50").Equal(series[1].Change(1)))
	require.True(t, series[1].Latest().Equal(snap("a", "749", t2)))

	require.Empty(t, GroupByProduct(nil))
}

func TestSuggestKey(t *testing.T) {
	known := []string{"iphone-15-128", "iphone-15-pro-256", "iphone-13-mini"}

	require.Equal(t, "iphone-15-pro-256", SuggestKey("iphone-15-pro-265", known))
	require.Equal(t, "iphone-13-mini", SuggestKey("iphone-13-mini-", known))
	require.Equal(t, "", SuggestKey("anything", nil))
	require.Equal(t, "", SuggestKey("zzz", []string{"abc", "xyw"}))
	require.Equal(t, "abc", SuggestKey("abd", []string{"xyz", "abc"}))
}
