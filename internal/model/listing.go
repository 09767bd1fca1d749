package model

import "strconv"

// ListingColumns is the column order used by tabular outputs.
var ListingColumns = []string{
	"cost",
	"price_per_area",
	"floor",
	"area",
	"is_top_floor",
	"url",
	"energy_class",
	"parking_spots",
}

// ListingRecord holds the fields extracted from one listing page.
// Every field always carries a value: fields that could not be resolved hold
// the configured "not found" sentinel.
type ListingRecord struct {
	// Cost is the asking price.
	Cost Amount `json:"cost"`

	// PricePerArea is Cost divided by Area, rounded to one decimal.
	PricePerArea Amount `json:"price_per_area"`

	// Floor is the floor number. Ground floor is reported as 1.
	Floor int `json:"floor"`

	// Area is the surface in square metres.
	Area int `json:"area"`

	// IsTopFloor is true when the listing mentions the top floor.
	IsTopFloor bool `json:"is_top_floor"`

	// URL is the listing address. It is unique within one crawl.
	URL string `json:"url"`

	// EnergyClass is the energy rating, e.g. "A4", "B+", "G1".
	EnergyClass string `json:"energy_class"`

	// ParkingSpots is the number of parking spots.
	ParkingSpots int `json:"parking_spots"`
}

// Row returns the record formatted in ListingColumns order.
func (r ListingRecord) Row() []string {
	return []string{
		r.Cost.String(),
		r.PricePerArea.String(),
		strconv.Itoa(r.Floor),
		strconv.Itoa(r.Area),
		strconv.FormatBool(r.IsTopFloor),
		r.URL,
		r.EnergyClass,
		strconv.Itoa(r.ParkingSpots),
	}
}
