package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvBaseURL     = "IMMOSCAN_BASE_URL"
	EnvMinPrice    = "IMMOSCAN_MIN_PRICE"
	EnvWorkers     = "IMMOSCAN_WORKERS"
	EnvTimeout     = "IMMOSCAN_TIMEOUT"
	EnvMaxPages    = "IMMOSCAN_MAX_PAGES"
	EnvProxy       = "IMMOSCAN_PROXY"
	EnvRate        = "IMMOSCAN_RPS"
	EnvCookie      = "IMMOSCAN_COOKIE"
	EnvPostgresDSN = "IMMOSCAN_POSTGRES_DSN"
	EnvDBDir       = "IMMOSCAN_DB_DIR"
)

// DefaultEnvFile is the dotenv file read by DotEnvLookup when no path is given.
const DefaultEnvFile = ".env"

// LookupFunc reports the value of an environment variable.
// os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// DotEnvLookup layers the variables of a dotenv file under base: a key is
// taken from base when base reports it and from the file otherwise. A missing
// file leaves base unchanged.
func DotEnvLookup(path string, base LookupFunc) (LookupFunc, error) {
	if path == "" {
		path = DefaultEnvFile
	}
	env, err := ReadDotEnv(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	file := MapLookup(env)
	if base == nil {
		return file, nil
	}
	return func(key string) (string, bool) {
		if v, ok := base(key); ok {
			return v, true
		}
		return file(key)
	}, nil
}

// ReadDotEnv parses a dotenv file without touching the process environment.
func ReadDotEnv(path string) (map[string]string, error) {
	return godotenv.Read(path)
}

// MapLookup adapts a map to a LookupFunc.
func MapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// ApplyEnv overrides cfg with the IMMOSCAN_* variables reported by lookup.
// Empty values are ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	if v, ok := get(EnvBaseURL); ok {
		cfg.BaseURL = v
	}
	if v, ok := get(EnvProxy); ok {
		cfg.ProxyAddress = v
	}
	if v, ok := get(EnvCookie); ok {
		cfg.Cookie = v
	}
	if v, ok := get(EnvPostgresDSN); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := get(EnvDBDir); ok {
		cfg.DBDir = v
	}

	if v, ok := get(EnvMinPrice); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMinPrice, err)
		}
		cfg.MinPrice = n
	}
	if v, ok := get(EnvWorkers); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		cfg.Workers = n
	}
	if v, ok := get(EnvMaxPages); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxPages, err)
		}
		cfg.MaxPages = n
	}
	if v, ok := get(EnvTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}
	if v, ok := get(EnvRate); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRate, err)
		}
		cfg.RequestsPerSecond = f
	}

	return nil
}
