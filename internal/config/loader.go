package config

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment knobs read by Load.
const (
	EnvPrefix     = "LOANOFFER_"
	EnvConfigFile = "LOANOFFER_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if LOANOFFER_CONFIG is set
//  3. env (prefix LOANOFFER_, "__" separates sections)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// LOANOFFER_HTTP__READ_TIMEOUT -> http.read_timeout. Single underscores
	// stay so they match the koanf tags on the struct. List keys take
	// comma-separated values.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", envValue)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	clearOverriddenSlices(k, &cfg)
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// listKeys are the config keys that hold slices.
var listKeys = []string{
	"offers.tenures",
	"persistence.sinks",
	"kafka.brokers",
	"matrices.tenure.options",
	"matrices.amount.options",
}

func envValue(key, value string) (string, any) {
	key = envKey(key)
	if !slices.Contains(listKeys, key) {
		return key, value
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return key, out
}

func envKey(s string) string {
	s = strings.ToLower(s)
	s = strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// clearOverriddenSlices drops default slices that a source replaces, so a
// shorter list from a file or env does not keep the default's tail.
func clearOverriddenSlices(k *koanf.Koanf, cfg *Config) {
	for _, key := range listKeys {
		if !k.Exists(key) {
			continue
		}
		switch key {
		case "offers.tenures":
			cfg.Offers.Tenures = nil
		case "persistence.sinks":
			cfg.Persistence.Sinks = nil
		case "kafka.brokers":
			cfg.Kafka.Brokers = nil
		case "matrices.tenure.options":
			cfg.Matrices.Tenure.Options = nil
		case "matrices.amount.options":
			cfg.Matrices.Amount.Options = nil
		}
	}
}
