package extractor

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/nao1215/immoscan/internal/config"
	"github.com/nao1215/immoscan/internal/model"
)

// Field names used in log attributes.
const (
	FieldCost         = "cost"
	FieldPricePerArea = "price_per_area"
	FieldFloor        = "floor"
	FieldArea         = "area"
	FieldEnergyClass  = "energy_class"
	FieldParkingSpots = "parking_spots"
)

// Outcomes of an unresolved field.
const (
	OutcomeExpectedAbsence    = "expected_absence"
	OutcomeExtractionFailure  = "extraction_failure"
	OutcomeThresholdRejection = "threshold_rejection"
)

// Extractor resolves listing fields from normalized page text.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	// minPrice is the lowest accepted price.
	minPrice int

	// sentinels are the values of unresolved fields.
	sentinels config.Sentinels

	// rules are the field patterns.
	rules Rules

	// logger receives one entry per unresolved field.
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger for field outcomes.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRules replaces the default rules.
func WithRules(rules Rules) Option {
	return func(e *Extractor) {
		e.rules = rules
	}
}

// New creates an Extractor reading the minimum price and the sentinels from
// cfg. Later changes to cfg do not affect the Extractor.
func New(cfg *config.Config, opts ...Option) *Extractor {
	e := &Extractor{
		minPrice:  cfg.MinPrice,
		sentinels: cfg.Sentinels,
		rules:     DefaultRules(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract builds the record of the listing at url from its lower-cased,
// whitespace-normalized text. Empty text, as produced by a timed out fetch,
// yields a record made of sentinels.
func (e *Extractor) Extract(text, url string) model.ListingRecord {
	cost, costOK := e.cost(text, url)
	area, areaOK := e.area(text, url)
	floor, topFloor := e.floor(text, url)

	return model.ListingRecord{
		Cost:         cost,
		PricePerArea: e.pricePerArea(cost, costOK, area, areaOK),
		Floor:        floor,
		Area:         area,
		IsTopFloor:   topFloor,
		URL:          url,
		EnergyClass:  e.energyClass(text, url),
		ParkingSpots: e.parkingSpots(text, url),
	}
}

func (e *Extractor) cost(text, url string) (model.Amount, bool) {
	raw, rule, ok := e.rules.Cost.First(text)
	if !ok {
		if strings.Contains(text, phrasePriceOnRequest) {
			e.report(slog.LevelInfo, "price available on request", FieldCost, OutcomeExpectedAbsence, url)
		} else {
			e.report(slog.LevelWarn, "price not found", FieldCost, OutcomeExtractionFailure, url)
		}
		return model.Amount(e.sentinels.PriceNotFound), false
	}

	value, err := strconv.Atoi(strings.ReplaceAll(raw, ".", ""))
	if err != nil {
		e.report(slog.LevelWarn, "price not parsable", FieldCost, OutcomeExtractionFailure, url, "raw", raw)
		return model.Amount(e.sentinels.PriceNotFound), false
	}
	if value < e.minPrice {
		e.report(slog.LevelWarn, "price below minimum", FieldCost, OutcomeThresholdRejection, url,
			"price", value, "min_price", e.minPrice)
		return model.Amount(e.sentinels.PriceNotFound), false
	}

	e.logger.Debug("field resolved", "field", FieldCost, "rule", rule, "url", url)
	return model.Amount(value), true
}

// floor returns the floor number and the top floor flag. The ground floor
// phrase overrides any numeric match.
func (e *Extractor) floor(text, url string) (int, bool) {
	topFloor := strings.Contains(text, phraseTopFloor)
	if strings.Contains(text, phraseGroundFloor) {
		return 1, topFloor
	}

	raw, _, ok := e.rules.Floor.First(text)
	if !ok {
		e.report(slog.LevelWarn, "floor not found", FieldFloor, OutcomeExtractionFailure, url)
		return e.sentinels.FloorNotFound, topFloor
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.report(slog.LevelWarn, "floor not parsable", FieldFloor, OutcomeExtractionFailure, url, "raw", raw)
		return e.sentinels.FloorNotFound, topFloor
	}
	return n, topFloor
}

func (e *Extractor) area(text, url string) (int, bool) {
	raw, _, ok := e.rules.Area.First(text)
	if !ok {
		e.report(slog.LevelWarn, "area not found", FieldArea, OutcomeExtractionFailure, url)
		return e.sentinels.AreaNotFound, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.report(slog.LevelWarn, "area not parsable", FieldArea, OutcomeExtractionFailure, url, "raw", raw)
		return e.sentinels.AreaNotFound, false
	}
	return n, true
}

func (e *Extractor) energyClass(text, url string) string {
	candidate, _, ok := e.rules.Energy.First(text)
	if ok && validEnergyClass(candidate) {
		return strings.ToUpper(candidate)
	}

	if strings.Contains(text, phraseCertificationPending) {
		e.report(slog.LevelInfo, "energy certification pending", FieldEnergyClass, OutcomeExpectedAbsence, url)
	} else {
		e.report(slog.LevelWarn, "energy class not found", FieldEnergyClass, OutcomeExtractionFailure, url,
			"candidate", candidate)
	}
	return e.sentinels.EnergyNotFound
}

func (e *Extractor) parkingSpots(text, url string) int {
	if raw, _, ok := e.rules.Parking.First(text); ok {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	if e.rules.ParkingOnRequest != nil && e.rules.ParkingOnRequest.MatchString(text) {
		e.report(slog.LevelInfo, "parking available on request", FieldParkingSpots, OutcomeExpectedAbsence, url)
		return e.sentinels.ParkingOnRequest
	}
	e.report(slog.LevelWarn, "parking not found", FieldParkingSpots, OutcomeExtractionFailure, url)
	return e.sentinels.ParkingNotFound
}

// pricePerArea divides cost by area, rounded half to even at one decimal.
// It returns the invalid sentinel unless both operands were parsed and area
// is not zero.
func (e *Extractor) pricePerArea(cost model.Amount, costOK bool, area int, areaOK bool) model.Amount {
	if !costOK || !areaOK || area == 0 {
		return model.Amount(e.sentinels.PricePerAreaInvalid)
	}
	v := math.RoundToEven(cost.Float64()/float64(area)*10) / 10
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return model.Amount(e.sentinels.PricePerAreaInvalid)
	}
	return model.Amount(v)
}

func (e *Extractor) report(level slog.Level, msg, field, outcome, url string, args ...any) {
	attrs := append([]any{"field", field, "outcome", outcome, "url", url}, args...)
	e.logger.Log(context.Background(), level, msg, attrs...)
}
