// Package config loads runtime settings for the tycoon simulation from YAML,
// then applies environment overrides for secrets and paths.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Sim     SimConfig     `yaml:"sim" json:"sim"`
	Paths   PathsConfig   `yaml:"paths" json:"paths"`
	API     APIConfig     `yaml:"api" json:"api"`
	Entropy EntropyConfig `yaml:"entropy" json:"entropy"`
	Labor   LaborConfig   `yaml:"labor" json:"labor"`
}

type SimConfig struct {
	Seed            int64         `yaml:"seed" json:"seed"`
	TickInterval    time.Duration `yaml:"tick_interval" json:"tick_interval"`
	Speed           float64       `yaml:"speed" json:"speed"`
	PlayerCompanyID uint64        `yaml:"player_company_id" json:"player_company_id"` // 0 = take it from the scenario
	AutosaveMonths  int           `yaml:"autosave_months" json:"autosave_months"`
}

type PathsConfig struct {
	DB       string `yaml:"db" json:"db"`
	Catalog  string `yaml:"catalog" json:"catalog"`
	Scenario string `yaml:"scenario" json:"scenario"`
	Journal  string `yaml:"journal" json:"journal"` // Empty disables the journal
}

type APIConfig struct {
	Port     int    `yaml:"port" json:"port"`
	AdminKey string `yaml:"admin_key" json:"-"`
}

type EntropyConfig struct {
	RandomOrgKey string `yaml:"random_org_key" json:"-"`
}

type LaborConfig struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	Amplitude float64 `yaml:"amplitude" json:"amplitude"` // Max relative wage swing, e.g. 0.1 = ±10%
	Frequency float64 `yaml:"frequency" json:"frequency"` // Noise steps per month
}

// Environment variables that override file settings.
const (
	EnvAdminKey  = "TYCOON_ADMIN_KEY"
	EnvRandomOrg = "RANDOM_ORG_API_KEY"
	EnvDB        = "TYCOON_DB"
)

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Sim: SimConfig{
			Seed:           42,
			TickInterval:   time.Second,
			Speed:          1,
			AutosaveMonths: 1,
		},
		Paths: PathsConfig{
			DB:       "data/tycoon.db",
			Catalog:  "data/catalog",
			Scenario: "data/scenario.yaml",
			Journal:  "data/journal",
		},
		API: APIConfig{Port: 8080},
		Labor: LaborConfig{
			Enabled:   true,
			Amplitude: 0.08,
			Frequency: 0.15,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvAdminKey); v != "" {
		c.API.AdminKey = v
	}
	if v := getenv(EnvRandomOrg); v != "" {
		c.Entropy.RandomOrgKey = v
	}
	if v := getenv(EnvDB); v != "" {
		c.Paths.DB = v
	}
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var errs []error
	if c.Sim.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("sim.tick_interval must be positive, got %s", c.Sim.TickInterval))
	}
	if c.Sim.Speed < 0 || c.Sim.Speed > 1000 {
		errs = append(errs, fmt.Errorf("sim.speed must be 0-1000, got %g", c.Sim.Speed))
	}
	if c.Sim.AutosaveMonths < 0 {
		errs = append(errs, fmt.Errorf("sim.autosave_months must not be negative"))
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port out of range: %d", c.API.Port))
	}
	if c.Labor.Amplitude < 0 || c.Labor.Amplitude >= 1 {
		errs = append(errs, fmt.Errorf("labor.amplitude must be in [0, 1), got %g", c.Labor.Amplitude))
	}
	if c.Paths.Catalog == "" {
		errs = append(errs, fmt.Errorf("paths.catalog is required"))
	}
	return errors.Join(errs...)
}
