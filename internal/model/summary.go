package model

import (
	"math"
	"slices"
	"time"

	"github.com/nao1215/immoscan/internal/config"
)

// CrawlSummary is an aggregate view of a CrawlResult.
// Field counts compare each value against the sentinels the crawl was run
// with, so a real value that equals its sentinel is counted as missing.
type CrawlSummary struct {
	CrawlID      string    `json:"crawl_id"`
	BaseURL      string    `json:"base_url"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	PagesVisited int       `json:"pages_visited"`
	Total        int       `json:"total"`

	WithCost         int `json:"with_cost"`
	WithPricePerArea int `json:"with_price_per_area"`
	WithFloor        int `json:"with_floor"`
	WithArea         int `json:"with_area"`
	WithEnergyClass  int `json:"with_energy_class"`
	WithParking      int `json:"with_parking"`
	TopFloor         int `json:"top_floor"`

	// PricePerArea holds statistics over resolved price per area values.
	PricePerArea *PriceStats `json:"price_per_area,omitempty"`

	// EnergyClasses counts records per energy class, sentinel included.
	EnergyClasses map[string]int `json:"energy_classes"`
}

// PriceStats summarizes a set of prices.
type PriceStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// NewCrawlSummary builds the summary of result using sentinels to decide
// which fields were resolved.
func NewCrawlSummary(result *CrawlResult, sentinels config.Sentinels) *CrawlSummary {
	s := &CrawlSummary{
		CrawlID:       result.ID,
		BaseURL:       result.BaseURL,
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
		PagesVisited:  result.PagesVisited,
		Total:         len(result.Records),
		EnergyClasses: make(map[string]int),
	}

	ppa := make([]float64, 0, len(result.Records))
	for _, r := range result.Records {
		if !sameAmount(r.Cost, sentinels.PriceNotFound) {
			s.WithCost++
		}
		if !sameAmount(r.PricePerArea, sentinels.PricePerAreaInvalid) {
			s.WithPricePerArea++
			ppa = append(ppa, r.PricePerArea.Float64())
		}
		if r.Floor != sentinels.FloorNotFound {
			s.WithFloor++
		}
		if r.Area != sentinels.AreaNotFound {
			s.WithArea++
		}
		if r.EnergyClass != sentinels.EnergyNotFound {
			s.WithEnergyClass++
		}
		if r.ParkingSpots != sentinels.ParkingNotFound {
			s.WithParking++
		}
		if r.IsTopFloor {
			s.TopFloor++
		}
		s.EnergyClasses[r.EnergyClass]++
	}

	s.PricePerArea = newPriceStats(ppa)
	return s
}

// EnergyClassNames returns the energy classes of the summary in sorted order.
func (s *CrawlSummary) EnergyClassNames() []string {
	names := make([]string, 0, len(s.EnergyClasses))
	for name := range s.EnergyClasses {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func newPriceStats(values []float64) *PriceStats {
	if len(values) == 0 {
		return nil
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return &PriceStats{
		Count:  n,
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   math.Round(sum/float64(n)*10) / 10,
		Median: median,
	}
}

// sameAmount compares an amount with a sentinel, treating NaN as equal to NaN.
func sameAmount(a Amount, sentinel float64) bool {
	if math.IsNaN(sentinel) {
		return a.IsNaN()
	}
	return a.Float64() == sentinel
}
