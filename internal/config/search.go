package config

import "maps"

// SentinelOverrides replaces individual sentinel values from the config file.
// Nil fields keep the value already configured.
type SentinelOverrides struct {
	PriceNotFound       *float64 `yaml:"priceNotFound,omitempty"`
	PricePerAreaInvalid *float64 `yaml:"pricePerAreaInvalid,omitempty"`
	FloorNotFound       *int     `yaml:"floorNotFound,omitempty"`
	AreaNotFound        *int     `yaml:"areaNotFound,omitempty"`
	EnergyNotFound      *string  `yaml:"energyNotFound,omitempty"`
	ParkingNotFound     *int     `yaml:"parkingNotFound,omitempty"`
	ParkingOnRequest    *int     `yaml:"parkingOnRequest,omitempty"`
}

// Search holds the settings of one named search from the config file.
type Search struct {
	// URL is the first result page of the search.
	URL string `yaml:"url,omitempty"`

	// MinPrice overrides the minimum acceptable price.
	MinPrice *int `yaml:"minPrice,omitempty"`

	// BrowseAllPages overrides pagination beyond page 1.
	BrowseAllPages *bool `yaml:"browseAllPages,omitempty"`

	// MaxPages overrides the page ceiling. Zero keeps the configured value.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Cookie is an HTTP cookie to send with every request.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to send with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Sentinels overrides individual "not found" values.
	Sentinels *SentinelOverrides `yaml:"sentinels,omitempty"`
}

// File represents the structure of the .immoscan configuration file.
type File struct {
	// Searches maps a search name to its settings.
	Searches map[string]Search `yaml:"searches,omitempty"`

	// Defaults applies to every search unless overridden.
	Defaults Search `yaml:"defaults,omitempty"`
}

// GetSearch returns the named search merged over the defaults.
// An empty name returns the defaults alone.
func (cf *File) GetSearch(name string) (Search, error) {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)
	if name == "" {
		return result, nil
	}

	s, ok := cf.Searches[name]
	if !ok {
		return Search{}, ErrSearchNotFound
	}

	if s.URL != "" {
		result.URL = s.URL
	}
	if s.MinPrice != nil {
		result.MinPrice = s.MinPrice
	}
	if s.BrowseAllPages != nil {
		result.BrowseAllPages = s.BrowseAllPages
	}
	if s.MaxPages != 0 {
		result.MaxPages = s.MaxPages
	}
	if s.Cookie != "" {
		result.Cookie = s.Cookie
	}
	if len(s.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, s.Headers)
	}
	if s.Sentinels != nil {
		result.Sentinels = mergeSentinelOverrides(result.Sentinels, s.Sentinels)
	}

	return result, nil
}

// ApplyTo writes the search settings into cfg.
func (s Search) ApplyTo(cfg *Config) {
	if s.URL != "" {
		cfg.BaseURL = s.URL
	}
	if s.MinPrice != nil {
		cfg.MinPrice = *s.MinPrice
	}
	if s.BrowseAllPages != nil {
		cfg.BrowseAllPages = *s.BrowseAllPages
	}
	if s.MaxPages > 0 {
		cfg.MaxPages = s.MaxPages
	}
	if s.Cookie != "" {
		cfg.Cookie = s.Cookie
	}
	if len(s.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		maps.Copy(cfg.Headers, s.Headers)
	}
	if s.Sentinels != nil {
		s.Sentinels.applyTo(&cfg.Sentinels)
	}
}

func (o *SentinelOverrides) applyTo(s *Sentinels) {
	if o.PriceNotFound != nil {
		s.PriceNotFound = *o.PriceNotFound
	}
	if o.PricePerAreaInvalid != nil {
		s.PricePerAreaInvalid = *o.PricePerAreaInvalid
	}
	if o.FloorNotFound != nil {
		s.FloorNotFound = *o.FloorNotFound
	}
	if o.AreaNotFound != nil {
		s.AreaNotFound = *o.AreaNotFound
	}
	if o.EnergyNotFound != nil {
		s.EnergyNotFound = *o.EnergyNotFound
	}
	if o.ParkingNotFound != nil {
		s.ParkingNotFound = *o.ParkingNotFound
	}
	if o.ParkingOnRequest != nil {
		s.ParkingOnRequest = *o.ParkingOnRequest
	}
}

// mergeSentinelOverrides layers override on top of base without mutating either.
func mergeSentinelOverrides(base, override *SentinelOverrides) *SentinelOverrides {
	var merged SentinelOverrides
	if base != nil {
		merged = *base
	}
	if override.PriceNotFound != nil {
		merged.PriceNotFound = override.PriceNotFound
	}
	if override.PricePerAreaInvalid != nil {
		merged.PricePerAreaInvalid = override.PricePerAreaInvalid
	}
	if override.FloorNotFound != nil {
		merged.FloorNotFound = override.FloorNotFound
	}
	if override.AreaNotFound != nil {
		merged.AreaNotFound = override.AreaNotFound
	}
	if override.EnergyNotFound != nil {
		merged.EnergyNotFound = override.EnergyNotFound
	}
	if override.ParkingNotFound != nil {
		merged.ParkingNotFound = override.ParkingNotFound
	}
	if override.ParkingOnRequest != nil {
		merged.ParkingOnRequest = override.ParkingOnRequest
	}
	return &merged
}
