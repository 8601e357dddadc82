// Package config loads Arbor's configuration from a YAML or JSON file
// overlaid with ARBOR_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARBOR_"

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" json:"server" yaml:"server"`
	Redis   RedisConfig   `mapstructure:"redis" json:"redis" yaml:"redis"`
	Cache   CacheConfig   `mapstructure:"cache" json:"cache" yaml:"cache"`
	Storage StorageConfig `mapstructure:"storage" json:"storage" yaml:"storage"`
	Log     LogConfig     `mapstructure:"log" json:"log" yaml:"log"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Port       int    `mapstructure:"port" json:"port" yaml:"port" validate:"min=1,max=65535"`
	CORSOrigin string `mapstructure:"corsOrigin" json:"corsOrigin" yaml:"corsOrigin"`
}

// RedisConfig configures the Redis store. An empty Addr selects the in-memory store.
type RedisConfig struct {
	Addr      string `mapstructure:"addr" json:"addr" yaml:"addr"`
	Password  string `mapstructure:"password" json:"-" yaml:"password"`
	DB        int    `mapstructure:"db" json:"db" yaml:"db" validate:"min=0"`
	Namespace string `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
	KeyPrefix string `mapstructure:"keyPrefix" json:"keyPrefix" yaml:"keyPrefix" validate:"required"`
}

// CacheConfig configures the processed-tree cache.
type CacheConfig struct {
	TreeKey string        `mapstructure:"treeKey" json:"treeKey" yaml:"treeKey" validate:"required"`
	TreeTTL time.Duration `mapstructure:"treeTTL" json:"treeTTL" yaml:"treeTTL" validate:"min=0"`
	// EncryptionKey is a base64 AES-256 key. When set, cached trees are encrypted at rest.
	EncryptionKey string `mapstructure:"encryptionKey" json:"-" yaml:"encryptionKey" validate:"omitempty,base64"`
}

// StorageConfig configures file-system lookups.
type StorageConfig struct {
	MatchesPath string `mapstructure:"matchesPath" json:"matchesPath" yaml:"matchesPath"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" json:"format" yaml:"format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080, CORSOrigin: "*"},
		Redis:   RedisConfig{Addr: "localhost:6379", KeyPrefix: "mcts:"},
		Cache:   CacheConfig{TreeKey: "tree:current", TreeTTL: 60 * time.Minute},
		Storage: StorageConfig{MatchesPath: "matches"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// envKeys lists the settings that can be overridden from the environment,
// as dotted paths into the configuration document.
var envKeys = []string{
	"server.port",
	"server.corsOrigin",
	"redis.addr",
	"redis.password",
	"redis.db",
	"redis.namespace",
	"redis.keyPrefix",
	"cache.treeKey",
	"cache.treeTTL",
	"cache.encryptionKey",
	"storage.matchesPath",
	"log.level",
	"log.format",
}

// EnvName returns the environment variable overriding a dotted setting path,
// e.g. "server.corsOrigin" -> "ARBOR_SERVER_CORS_ORIGIN".
func EnvName(path string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	for i, r := range path {
		switch {
		case r == '.':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 && unicode.IsLower(rune(path[i-1])) {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// Load reads path (if non-empty) and the process environment.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	raw := map[string]any{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if strings.ToLower(filepath.Ext(path)) == ".json" {
			if err := json.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
			}
		} else {
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
			}
		}
	}

	for _, key := range envKeys {
		if v, ok := lookup(EnvName(key)); ok {
			set(raw, key, v)
		}
	}

	cfg := Default()
	if err := decode(raw, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create config decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// set writes value at a dotted path, creating intermediate maps.
func set(raw map[string]any, path, value string) {
	parts := strings.Split(path, ".")
	m := raw
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
