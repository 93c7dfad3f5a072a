package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Guard    GuardConfig    `koanf:"guard"`
	Captcha  CaptchaConfig  `koanf:"captcha"`
	Sweep    SweepConfig    `koanf:"sweep"`
}

type ServerConfig struct {
	Host           string   `koanf:"host"`
	Port           int      `koanf:"port"`
	CORSOrigins    []string `koanf:"cors_origins"`
	TrustedProxies []string `koanf:"trusted_proxies"`
}

type DatabaseConfig struct {
	URL      string `koanf:"url"`
	MaxConns int    `koanf:"max_conns"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type GuardConfig struct {
	RateLimitWindowMs int `koanf:"rate_limit_window_ms"`
	RateLimitMax      int `koanf:"rate_limit_max"`
	IPBlockThreshold  int `koanf:"ip_block_threshold"`
	IPBlockDurationMs int `koanf:"ip_block_duration_ms"`
	MaxMessageLength  int `koanf:"max_message_length"`
}

type CaptchaConfig struct {
	ExpiryMs    int `koanf:"expiry_ms"`
	MaxAttempts int `koanf:"max_attempts"`
}

type SweepConfig struct {
	IntervalMs int `koanf:"interval_ms"`
}

// legacyEnvKeys maps the bare environment names the original deployment used
// onto koanf paths. These work without the GATEHOUSE_ prefix.
var legacyEnvKeys = map[string]string{
	"RATE_LIMIT_WINDOW_MS": "guard.rate_limit_window_ms",
	"RATE_LIMIT_MAX":       "guard.rate_limit_max",
	"IP_BLOCK_THRESHOLD":   "guard.ip_block_threshold",
	"IP_BLOCK_DURATION_MS": "guard.ip_block_duration_ms",
	"CAPTCHA_EXPIRY_MS":    "captcha.expiry_ms",
	"CAPTCHA_MAX_ATTEMPTS": "captcha.max_attempts",
	"MAX_MESSAGE_LENGTH":   "guard.max_message_length",
}

func Load(configPaths ...string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	_ = k.Load(confmap.Provider(map[string]any{
		"server.host":                "0.0.0.0",
		"server.port":                8080,
		"database.max_conns":         10,
		"log.level":                  "info",
		"log.format":                 "json",
		"guard.rate_limit_window_ms": 60_000,
		"guard.rate_limit_max":       10,
		"guard.ip_block_threshold":   5,
		"guard.ip_block_duration_ms": 3_600_000,
		"guard.max_message_length":   1000,
		"captcha.expiry_ms":          300_000,
		"captcha.max_attempts":       3,
		"sweep.interval_ms":          60_000,
	}, "."), nil)

	// YAML file (optional)
	for _, path := range configPaths {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// Config file is optional, skip if not found
			continue
		}
	}

	// Environment variables override everything
	// GATEHOUSE_SERVER_PORT -> server.port
	_ = k.Load(env.Provider("GATEHOUSE_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "GATEHOUSE_")),
			"_", ".",
		)
	}), nil)

	// Bare legacy names, e.g. RATE_LIMIT_MAX -> guard.rate_limit_max.
	// Unknown names map to "" and are dropped by the provider.
	_ = k.Load(env.Provider("", ".", func(s string) string {
		return legacyEnvKeys[s]
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
