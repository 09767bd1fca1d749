package extractor

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/nao1215/immoscan/internal/config"
)

const listingURL = "https://www.immobiliare.it/annunci/101010/"

// logEntry is one decoded line of the JSON test logger.
type logEntry struct {
	Level   string `json:"level"`
	Msg     string `json:"msg"`
	Field   string `json:"field"`
	Outcome string `json:"outcome"`
	URL     string `json:"url"`
}

// syncBuffer guards a bytes.Buffer shared by concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) entries(t *testing.T) []logEntry {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []logEntry
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var e logEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("invalid log line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	return out
}

// newTestExtractor returns an extractor logging JSON at debug level into the
// returned buffer.
func newTestExtractor(t *testing.T, cfg *config.Config) (*Extractor, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(cfg, WithLogger(logger)), buf
}

// outcomesFor returns the log entries carrying an outcome for field.
func outcomesFor(entries []logEntry, field string) []logEntry {
	var out []logEntry
	for _, e := range entries {
		if e.Field == field && e.Outcome != "" {
			out = append(out, e)
		}
	}
	return out
}

func TestExtractCost(t *testing.T) {
	t.Parallel()

	t.Run("price with one separator", func(t *testing.T) {
		t.Parallel()

		ext, _ := newTestExtractor(t, config.NewConfig())
		rec := ext.Extract("trilocale in vendita € 150.000 milano", listingURL)
		if rec.Cost != 150000 {
			t.Errorf("expected cost 150000, got %v", rec.Cost)
		}
	})

	t.Run("price with two separators", func(t *testing.T) {
		t.Parallel()

		ext, _ := newTestExtractor(t, config.NewConfig())
		rec := ext.Extract("villa € 1.250.000", listingURL)
		if rec.Cost != 1250000 {
			t.Errorf("expected cost 1250000, got %v", rec.Cost)
		}
	})

	t.Run("rule priority wins over text position", func(t *testing.T) {
		t.Parallel()

		ext, _ := newTestExtractor(t, config.NewConfig())
		rec := ext.Extract("spese € 95.000 prezzo € 1.200.000", listingURL)
		if rec.Cost != 1200000 {
			t.Errorf("expected cost 1200000, got %v", rec.Cost)
		}
	})

	t.Run("no price and no phrase is an extraction failure", func(t *testing.T) {
		t.Parallel()

		ext, buf := newTestExtractor(t, config.NewConfig())
		rec := ext.Extract("appartamento luminoso", listingURL)
		if !rec.Cost.IsNaN() {
			t.Errorf("expected NaN sentinel, got %v", rec.Cost)
		}

		got := outcomesFor(buf.entries(t), FieldCost)
		if len(got) != 1 {
			t.Fatalf("expected one cost outcome, got %+v", got)
		}
		if got[0].Outcome != OutcomeExtractionFailure || got[0].Level != "WARN" {
			t.Errorf("expected WARN extraction_failure, got %+v", got[0])
		}
		if got[0].URL != listingURL {
			t.Errorf("expected url attribute, got %q", got[0].URL)
		}
	})

	t.Run("price on request is an expected absence", func(t *testing.T) {
		t.Parallel()

		ext, buf := newTestExtractor(t, config.NewConfig())
		rec := ext.Extract("attico prezzo su richiesta", listingURL)
		if !rec.Cost.IsNaN() {
			t.Errorf("expected NaN sentinel, got %v", rec.Cost)
		}

		got := outcomesFor(buf.entries(t), FieldCost)
		if len(got) != 1 || got[0].Outcome != OutcomeExpectedAbsence || got[0].Level != "INFO" {
			t.Errorf("expected one INFO expected_absence, got %+v", got)
		}
	})

	t.Run("price below minimum is rejected", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.MinPrice = 100000
		ext, buf := newTestExtractor(t, cfg)

		rec := ext.Extract("box € 50.000", listingURL)
		if !rec.Cost.IsNaN() {
			t.Errorf("expected NaN sentinel instead of 50000, got %v", rec.Cost)
		}

		got := outcomesFor(buf.entries(t), FieldCost)
		if len(got) != 1 || got[0].Outcome != OutcomeThresholdRejection {
			t.Fatalf("expected one threshold_rejection, got %+v", got)
		}
	})

	t.Run("configured sentinel is used", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Sentinels.PriceNotFound = -1
		ext, _ := newTestExtractor(t, cfg)

		if rec := ext.Extract("", listingURL); rec.Cost != -1 {
			t.Errorf("expected -1, got %v", rec.Cost)
		}
	})
}

func TestExtractFloor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		wantFlr  int
		wantLast bool
	}{
		{name: "floor prefix", text: "piano 3 con ascensore", wantFlr: 3},
		{name: "floor suffix", text: "situato al 2 piano", wantFlr: 2},
		{name: "floors plural", text: "edificio di 5 piani", wantFlr: 5},
		{name: "ground floor", text: "piano terra con giardino", wantFlr: 1},
		{name: "ground floor overrides numeric floor", text: "piano 4 oppure piano terra", wantFlr: 1},
		{name: "top floor is independent", text: "piano 6 ultimo piano", wantFlr: 6, wantLast: true},
		{name: "top floor without number", text: "attico all'ultimo", wantFlr: 0, wantLast: true},
		{name: "missing", text: "monolocale", wantFlr: 0},
	}

	ext, _ := newTestExtractor(t, config.NewConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := ext.Extract(tt.text, listingURL)
			if rec.Floor != tt.wantFlr {
				t.Errorf("expected floor %d, got %d", tt.wantFlr, rec.Floor)
			}
			if rec.IsTopFloor != tt.wantLast {
				t.Errorf("expected top floor %v, got %v", tt.wantLast, rec.IsTopFloor)
			}
		})
	}
}

func TestExtractArea(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.Sentinels.AreaNotFound = -1
	ext, _ := newTestExtractor(t, cfg)

	if rec := ext.Extract("superficie 85 m² commerciale", listingURL); rec.Area != 85 {
		t.Errorf("expected area 85, got %d", rec.Area)
	}
	if rec := ext.Extract("nessuna misura", listingURL); rec.Area != -1 {
		t.Errorf("expected sentinel -1, got %d", rec.Area)
	}
}

func TestUnresolvedFieldsAreReported(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		field string
		want  int
	}{
		{name: "floor missing", text: "monolocale", field: FieldFloor, want: 1},
		{name: "floor found", text: "piano 3", field: FieldFloor, want: 0},
		{name: "ground floor", text: "piano terra", field: FieldFloor, want: 0},
		{name: "area missing", text: "monolocale", field: FieldArea, want: 1},
		{name: "area found", text: "superficie 40 m", field: FieldArea, want: 0},
		{name: "parking missing", text: "cantina", field: FieldParkingSpots, want: 1},
		{name: "parking counted", text: "posti auto 2", field: FieldParkingSpots, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ext, buf := newTestExtractor(t, config.NewConfig())
			ext.Extract(tt.text, listingURL)

			failures := 0
			for _, e := range outcomesFor(buf.entries(t), tt.field) {
				if e.Outcome == OutcomeExtractionFailure {
					failures++
				}
			}
			if failures != tt.want {
				t.Errorf("expected %d extraction failures for %s, got %d", tt.want, tt.field, failures)
			}
		})
	}
}

func TestExtractPricePerArea(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "exact ratio", text: "€ 150.000 superficie 50 m", want: 3000},
		{name: "rounded to one decimal", text: "€ 100.000 superficie 30 m", want: 3333.3},
		{name: "area zero", text: "€ 150.000 superficie 0 m", want: 0},
		{name: "cost missing", text: "superficie 50 m", want: 0},
		{name: "area missing", text: "€ 150.000", want: 0},
	}

	ext, _ := newTestExtractor(t, config.NewConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := ext.Extract(tt.text, listingURL)
			if rec.PricePerArea.Float64() != tt.want {
				t.Errorf("expected %v, got %v", tt.want, rec.PricePerArea)
			}
		})
	}

	t.Run("rejected cost gives the invalid sentinel", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.MinPrice = 100000
		cfg.Sentinels.PricePerAreaInvalid = -1
		ext, _ := newTestExtractor(t, cfg)

		if rec := ext.Extract("€ 50.000 superficie 50 m", listingURL); rec.PricePerArea != -1 {
			t.Errorf("expected -1, got %v", rec.PricePerArea)
		}
	})

	t.Run("non-zero area sentinel is not used as a divisor", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Sentinels.AreaNotFound = 1
		cfg.Sentinels.PricePerAreaInvalid = math.NaN()
		ext, _ := newTestExtractor(t, cfg)

		if rec := ext.Extract("€ 150.000", listingURL); !rec.PricePerArea.IsNaN() {
			t.Errorf("expected NaN, got %v", rec.PricePerArea)
		}
	})
}

func TestExtractEnergyClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		text        string
		want        string
		wantOutcome string
	}{
		{name: "class with plus", text: "classe energetica b+ riscaldamento", want: "B+"},
		{name: "class with digit", text: "classe energetica a4 riscaldamento", want: "A4"},
		{name: "class at end of text", text: "classe energetica b+", want: "B+"},
		{name: "joined class", text: "classe energeticac1", want: "C1"},
		{name: "letter outside range", text: "classe energetica z9", want: "n/a", wantOutcome: OutcomeExtractionFailure},
		{name: "bare letter", text: "classe energetica g riscaldamento", want: "n/a", wantOutcome: OutcomeExtractionFailure},
		{name: "certification pending", text: "classe energetica in attesa di certificazione", want: "n/a", wantOutcome: OutcomeExpectedAbsence},
		{name: "missing", text: "bilocale", want: "n/a", wantOutcome: OutcomeExtractionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ext, buf := newTestExtractor(t, config.NewConfig())
			rec := ext.Extract(tt.text, listingURL)
			if rec.EnergyClass != tt.want {
				t.Errorf("expected %q, got %q", tt.want, rec.EnergyClass)
			}

			got := outcomesFor(buf.entries(t), FieldEnergyClass)
			if tt.wantOutcome == "" {
				if len(got) != 0 {
					t.Errorf("expected no outcome, got %+v", got)
				}
				return
			}
			if len(got) != 1 || got[0].Outcome != tt.wantOutcome {
				t.Errorf("expected outcome %s, got %+v", tt.wantOutcome, got)
			}
		})
	}
}

func TestExtractParkingSpots(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.Sentinels.ParkingNotFound = -1
	cfg.Sentinels.ParkingOnRequest = 0

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "counted", text: "posti auto 2 in garage", want: 2},
		{name: "single spot", text: "posto auto 1 coperto", want: 1},
		{name: "on request", text: "possibilità di posto auto", want: 0},
		{name: "absent", text: "cantina e soffitta", want: -1},
	}

	ext, _ := newTestExtractor(t, cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if rec := ext.Extract(tt.text, listingURL); rec.ParkingSpots != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.ParkingSpots)
			}
		})
	}
}

func TestExtractEmptyText(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	ext, buf := newTestExtractor(t, cfg)
	rec := ext.Extract("", listingURL)

	s := cfg.Sentinels
	if !rec.Cost.IsNaN() || rec.PricePerArea.Float64() != s.PricePerAreaInvalid ||
		rec.Floor != s.FloorNotFound || rec.Area != s.AreaNotFound ||
		rec.EnergyClass != s.EnergyNotFound || rec.ParkingSpots != s.ParkingNotFound || rec.IsTopFloor {
		t.Errorf("expected sentinel record, got %+v", rec)
	}
	if rec.URL != listingURL {
		t.Errorf("expected url %q, got %q", listingURL, rec.URL)
	}

	entries := buf.entries(t)
	for _, field := range []string{FieldCost, FieldFloor, FieldArea, FieldEnergyClass, FieldParkingSpots} {
		got := outcomesFor(entries, field)
		if len(got) != 1 || got[0].Outcome != OutcomeExtractionFailure || got[0].Level != "WARN" {
			t.Errorf("%s: expected one WARN extraction_failure, got %+v", field, got)
		}
	}
}

func TestExtractorConcurrentUse(t *testing.T) {
	t.Parallel()

	ext, _ := newTestExtractor(t, config.NewConfig())
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rec := ext.Extract("€ 150.000 superficie 50 m", listingURL); rec.PricePerArea != 3000 {
				t.Errorf("unexpected price per area %v", rec.PricePerArea)
			}
		}()
	}
	wg.Wait()
}

func TestNewCopiesConfig(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.MinPrice = 100000
	ext := New(cfg)
	cfg.MinPrice = 0

	if rec := ext.Extract("€ 50.000", listingURL); !rec.Cost.IsNaN() {
		t.Errorf("expected later config change to be ignored, got %v", rec.Cost)
	}
}
