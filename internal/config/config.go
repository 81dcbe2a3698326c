// Package config loads server configuration. Precedence is defaults,
// then the YAML file, then HEXACORE_ environment variables (double
// underscore nests, HEXACORE_HTTP__ADDR sets http.addr).
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "HEXACORE_"

type Config struct {
	HTTP struct {
		Addr string `koanf:"addr"`
	} `koanf:"http"`
	Database struct {
		URL string `koanf:"url"`
	} `koanf:"database"`
	Authz struct {
		ModelPath  string `koanf:"model_path"`
		PolicyPath string `koanf:"policy_path"`
		Mode       string `koanf:"mode"`
	} `koanf:"authz"`
	Resources struct {
		Path string `koanf:"path"`
	} `koanf:"resources"`
	RateLimit struct {
		Limit         int `koanf:"limit"`
		WindowSeconds int `koanf:"window_seconds"`
	} `koanf:"rate_limit"`
	Confirmation struct {
		TTLSeconds int `koanf:"ttl_seconds"`
	} `koanf:"confirmation"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func defaults() map[string]any {
	return map[string]any{
		"http.addr":                 ":8080",
		"authz.mode":                "enforce",
		"rate_limit.limit":          120,
		"rate_limit.window_seconds": 60,
		"confirmation.ttl_seconds":  300,
		"log.level":                 "info",
	}
}

// Load builds the config. path may be empty; the file layer is then
// skipped and defaults plus environment apply.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config file: %w", err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("config env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}
	return cfg, nil
}
