package extractor

import "regexp"

// Phrases recognized in lower-cased listing text.
const (
	phrasePriceOnRequest       = "prezzo su richiesta"
	phraseGroundFloor          = "piano terra"
	phraseTopFloor             = "ultimo"
	phraseCertificationPending = "in attesa di certificazione"
)

// Rule is a named pattern whose first capture group holds the field value.
type Rule struct {
	// Name identifies the rule in debug logs.
	Name string

	// Pattern must have at least one capture group.
	Pattern *regexp.Regexp
}

// RuleSet is an ordered list of rules tried in priority order.
type RuleSet []Rule

// First returns the first capture of the first rule that matches text.
// Rules are tried in slice order, so an earlier rule wins even when a later
// rule matches closer to the start of the text.
func (rs RuleSet) First(text string) (value string, rule string, ok bool) {
	for _, r := range rs {
		if m := r.Pattern.FindStringSubmatch(text); len(m) > 1 {
			return m[1], r.Name, true
		}
	}
	return "", "", false
}

// Rules holds the rule set of every extracted field.
type Rules struct {
	Cost    RuleSet
	Floor   RuleSet
	Area    RuleSet
	Energy  RuleSet
	Parking RuleSet

	// ParkingOnRequest matches text saying a parking spot may be available.
	ParkingOnRequest *regexp.Regexp
}

// DefaultRules returns the rules for Italian immobiliare.it listings.
func DefaultRules() Rules {
	return Rules{
		Cost: RuleSet{
			// Prices of a million or more carry two thousands separators.
			{Name: "cost_millions", Pattern: regexp.MustCompile(`€ (\d+\.\d+\.\d+)`)},
			{Name: "cost_thousands", Pattern: regexp.MustCompile(`€ (\d+\.\d+)`)},
		},
		Floor: RuleSet{
			{Name: "floor_prefix", Pattern: regexp.MustCompile(`piano (\d{1,2})`)},
			{Name: "floor_suffix", Pattern: regexp.MustCompile(`(\d{1,2}) piano`)},
			{Name: "floor_plural", Pattern: regexp.MustCompile(`(\d{1,2}) piani`)},
		},
		Area: RuleSet{
			{Name: "area_surface", Pattern: regexp.MustCompile(`superficie (\d{1,4}) m`)},
		},
		Energy: RuleSet{
			{Name: "energy_spaced", Pattern: regexp.MustCompile(`energetica (\S{1,2})(?:\s|$)`)},
			{Name: "energy_joined", Pattern: regexp.MustCompile(`energetica(\S{1,2})`)},
		},
		Parking: RuleSet{
			{Name: "parking_count", Pattern: regexp.MustCompile(`post\S auto (\d{1,2})`)},
		},
		ParkingOnRequest: regexp.MustCompile(`possibilit\S.{0,10}auto`),
	}
}

// validEnergyClass reports whether candidate looks like an energy class:
// first character a letter from A to F, last character a digit or '+'.
func validEnergyClass(candidate string) bool {
	if candidate == "" {
		return false
	}
	first := candidate[0]
	if first >= 'A' && first <= 'F' {
		first += 'a' - 'A'
	}
	if first < 'a' || first > 'f' {
		return false
	}
	last := candidate[len(candidate)-1]
	return last == '+' || (last >= '0' && last <= '9')
}
