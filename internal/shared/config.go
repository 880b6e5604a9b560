package shared

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging struct {
		Format string `yaml:"format" env:"CREATURETIME_LOG_FORMAT"` // "json"|"text"
		Level  string `yaml:"level" env:"CREATURETIME_LOG_LEVEL"`   // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`

	Journal struct {
		Enabled bool   `yaml:"enabled" env:"CREATURETIME_JOURNAL_ENABLED"`
		DSN     string `yaml:"dsn" env:"CREATURETIME_JOURNAL_DSN"` // "./creaturetime.db"
	} `yaml:"journal"`

	Reporting struct {
		OutDir string `yaml:"out_dir" env:"CREATURETIME_OUT_DIR"` // "./reports"
	} `yaml:"reporting"`

	ShapeKeys struct {
		PruneTolerance    float64  `yaml:"prune_tolerance" env:"CREATURETIME_PRUNE_TOLERANCE"`
		AffectedTolerance float64  `yaml:"affected_tolerance" env:"CREATURETIME_AFFECTED_TOLERANCE"`
		ExtraOrder        []string `yaml:"extra_order" env:"CREATURETIME_SHAPE_KEY_ORDER" envSeparator:","`
	} `yaml:"shape_keys"`

	Watch struct {
		Debounce time.Duration `yaml:"debounce" env:"CREATURETIME_WATCH_DEBOUNCE"` // "300ms"
	} `yaml:"watch"`

	Serve struct {
		Addr           string   `yaml:"addr" env:"CREATURETIME_SERVE_ADDR"`             // "127.0.0.1:8077"
		TokenHash      string   `yaml:"token_hash" env:"CREATURETIME_SERVE_TOKEN_HASH"` // bcrypt; empty disables auth
		AllowedOrigins []string `yaml:"allowed_origins" env:"CREATURETIME_SERVE_ORIGINS" envSeparator:","`
	} `yaml:"serve"`
}

func DefaultConfig() Config {
	var c Config
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	c.Journal.Enabled = true
	c.Journal.DSN = "./creaturetime.db"
	c.Reporting.OutDir = "./reports"
	c.ShapeKeys.PruneTolerance = 0.001
	c.ShapeKeys.AffectedTolerance = 1e-5
	c.Watch.Debounce = 300 * time.Millisecond
	c.Serve.Addr = "127.0.0.1:8077"
	return c
}

// LoadConfig layers the YAML file at path (if any) and then CREATURETIME_*
// environment variables over DefaultConfig. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return c, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}
