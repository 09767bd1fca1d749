package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".immoscan"

// xdgConfigFile is the file name looked up in the XDG config directory.
const xdgConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads named searches from a YAML file.
// Unknown keys are rejected so that a misspelled option is not silently
// ignored. If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if cf.Searches == nil {
		cf.Searches = make(map[string]Search)
	}
	if err := cf.validate(); err != nil {
		return nil, err
	}
	return &cf, nil
}

// validate checks the defaults and every named search, reporting the first
// invalid one in name order.
func (cf *File) validate() error {
	if err := cf.Defaults.validate(); err != nil {
		return fmt.Errorf("%w: defaults: %w", ErrInvalidSearch, err)
	}

	names := make([]string, 0, len(cf.Searches))
	for name := range cf.Searches {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := cf.Searches[name].validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidSearch, name, err)
		}
	}
	return nil
}

func (s Search) validate() error {
	if s.URL != "" {
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidBaseURL
		}
	}
	if s.MinPrice != nil && *s.MinPrice < 0 {
		return ErrInvalidMinPrice
	}
	if s.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	return nil
}

// FindConfigFile returns the configuration file to load, or "" when there is
// none. An explicit configPath is used only if it exists. Otherwise the
// candidates are, in order: .immoscan in the current directory,
// config.yaml in the XDG config directory, and .immoscan in the home
// directory.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), xdgConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
