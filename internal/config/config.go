// Package config loads the settings of the openbis command.
//
// Values come, lowest precedence first, from Defaults, a YAML or TOML file,
// .env files and OPENBIS_* environment variables. Every setting has an
// environment name built from its key path, e.g. transport.breaker.timeout
// is OPENBIS_TRANSPORT_BREAKER_TIMEOUT.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/mnehpets/openbis/auth"
	"github.com/mnehpets/openbis/jsonrpc"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "OPENBIS_"

// Config is the top-level configuration.
type Config struct {
	// URL is the openBIS server, e.g. https://openbis.example.org.
	URL       string        `mapstructure:"url" yaml:"url" toml:"url"`
	User      string        `mapstructure:"user" yaml:"user" toml:"user"`
	AllowHTTP bool          `mapstructure:"allow_http" yaml:"allow_http" toml:"allow_http"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" toml:"timeout"`

	Transport TransportConfig `mapstructure:"transport" yaml:"transport" toml:"transport"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session" toml:"session"`
	Auth      auth.Config     `mapstructure:"auth" yaml:"auth" toml:"auth"`
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger" toml:"logger"`
	Tracer    TracerConfig    `mapstructure:"tracer" yaml:"tracer" toml:"tracer"`
}

// TransportConfig tunes the HTTP transport of the JSON-RPC clients.
type TransportConfig struct {
	RateLimit float64               `mapstructure:"rate_limit" yaml:"rate_limit" toml:"rate_limit"`
	Burst     int                   `mapstructure:"burst" yaml:"burst" toml:"burst"`
	Breaker   jsonrpc.BreakerConfig `mapstructure:"breaker" yaml:"breaker" toml:"breaker"`
}

// SessionConfig controls where session tokens are kept between runs.
type SessionConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir" toml:"dir"`
	KeyID      string `mapstructure:"key_id" yaml:"key_id" toml:"key_id"`
	Passphrase string `mapstructure:"passphrase" yaml:"-" toml:"-"`
}

// LoggerConfig selects the log handler.
type LoggerConfig struct {
	Level  string `mapstructure:"level" yaml:"level" toml:"level"`
	Format string `mapstructure:"format" yaml:"format" toml:"format"`
	Output string `mapstructure:"output" yaml:"output" toml:"output"`
}

// TracerConfig selects the span exporter.
type TracerConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled" toml:"enabled"`
	Exporter string `mapstructure:"exporter" yaml:"exporter" toml:"exporter"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Timeout: 60 * time.Second,
		Transport: TransportConfig{
			Breaker: jsonrpc.BreakerConfig{
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Session: SessionConfig{
			Dir:   defaultSessionDir(),
			KeyID: "1",
		},
		Logger: LoggerConfig{Level: "warn", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Exporter: "noop"},
	}
}

func defaultSessionDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "openbis")
	}
	return ".openbis"
}

// Load reads the configuration like Read and validates it.
func Load(path string, dotenv ...string) (*Config, error) {
	cfg, err := Read(path, dotenv...)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads the file at path, if any, and applies the .env files and the
// environment on top. A missing path or .env file is not an error. The
// result is not validated, so callers can apply overrides first.
func Read(path string, dotenv ...string) (*Config, error) {
	raw, err := readFile(path)
	if err != nil {
		return nil, err
	}

	env := map[string]string{}
	for _, p := range dotenv {
		if p == "" {
			continue
		}
		vals, err := godotenv.Read(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		for k, v := range vals {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	for _, key := range keys(reflect.TypeOf(Config{}), nil) {
		if v, ok := env[EnvName(key)]; ok {
			setPath(raw, key, v)
		}
	}

	cfg := Defaults()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// readFile decodes a YAML or TOML file, chosen by extension, into a
// generic map.
func readFile(path string) (map[string]any, error) {
	raw := map[string]any{}
	if path == "" {
		return raw, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("config %s: unknown format, want .yaml or .toml", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// EnvName returns the environment variable for a key path.
func EnvName(key []string) string {
	return EnvPrefix + strings.ToUpper(strings.Join(key, "_"))
}

// keys lists the key paths of the leaf fields of t.
func keys(t reflect.Type, prefix []string) [][]string {
	var out [][]string
	for i := range t.NumField() {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			continue
		}
		key := append(append([]string(nil), prefix...), name)
		if f.Type.Kind() == reflect.Struct {
			out = append(out, keys(f.Type, key)...)
			continue
		}
		out = append(out, key)
	}
	return out
}

func setPath(m map[string]any, key []string, v string) {
	for _, k := range key[:len(key)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[k] = next
		}
		m = next
	}
	m[key[len(key)-1]] = v
}
