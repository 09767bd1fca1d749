package model

import (
	"math"
	"testing"
	"time"
)

func crawlWith(records ...ListingRecord) *CrawlResult {
	res := NewCrawlResult("https://www.immobiliare.it/vendita-case/milano/")
	res.Finish(records, 1)
	return res
}

func TestCompareCrawls(t *testing.T) {
	t.Parallel()

	nan := Amount(math.NaN())
	previous := crawlWith(
		ListingRecord{URL: "a", Cost: 100000},
		ListingRecord{URL: "b", Cost: 200000},
		ListingRecord{URL: "c", Cost: nan},
		ListingRecord{URL: "gone", Cost: 50000},
	)
	current := crawlWith(
		ListingRecord{URL: "new", Cost: 80000},
		ListingRecord{URL: "a", Cost: 95000},
		ListingRecord{URL: "b", Cost: 200000},
		ListingRecord{URL: "c", Cost: nan},
	)
	current.StartedAt = previous.StartedAt.Add(time.Hour)

	diff := CompareCrawls(previous, current)

	if !diff.HasChanges() {
		t.Fatal("expected changes")
	}
	if len(diff.Added) != 1 || diff.Added[0].URL != "new" {
		t.Errorf("unexpected added %+v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].URL != "gone" {
		t.Errorf("unexpected removed %+v", diff.Removed)
	}
	if len(diff.PriceChanges) != 1 {
		t.Fatalf("expected 1 price change, got %+v", diff.PriceChanges)
	}
	if got := diff.PriceChanges[0].Delta(); got != -5000 {
		t.Errorf("expected delta -5000, got %v", got)
	}
	if diff.UnchangedCount != 2 {
		t.Errorf("expected 2 unchanged, got %d", diff.UnchangedCount)
	}
	if diff.Trend != TrendDown {
		t.Errorf("expected trend down, got %s", diff.Trend)
	}
	if diff.Previous.ID != previous.ID || diff.Current.Total != 4 {
		t.Errorf("unexpected refs %+v %+v", diff.Previous, diff.Current)
	}
}

func TestCompareCrawlsTrend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from Amount
		to   Amount
		want string
	}{
		{name: "rise", from: 100, to: 110, want: TrendUp},
		{name: "drop", from: 100, to: 90, want: TrendDown},
		{name: "same", from: 100, to: 100, want: TrendUnchanged},
		{name: "price appears", from: Amount(math.NaN()), to: 100, want: TrendUnchanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			diff := CompareCrawls(
				crawlWith(ListingRecord{URL: "x", Cost: tt.from}),
				crawlWith(ListingRecord{URL: "x", Cost: tt.to}),
			)
			if diff.Trend != tt.want {
				t.Errorf("expected %s, got %s", tt.want, diff.Trend)
			}
		})
	}

	t.Run("identical crawls", func(t *testing.T) {
		t.Parallel()

		a := crawlWith(ListingRecord{URL: "x", Cost: 1})
		if CompareCrawls(a, a).HasChanges() {
			t.Error("expected no changes")
		}
	})
}
