// Package config loads the application configuration from yaml, with
// ${VAR} references expanded from the environment so secrets stay out of
// the file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/earnscope/earnscope/internal/application/pipeline"
	"github.com/earnscope/earnscope/internal/domain/nowcast"
	"github.com/earnscope/earnscope/internal/persistence/postgres"
	"github.com/earnscope/earnscope/internal/provider"
)

// App is the root configuration.
type App struct {
	LogLevel string `yaml:"log_level"`

	Database postgres.Config `yaml:"database"`
	Redis    RedisConfig     `yaml:"redis"`

	Providers Providers `yaml:"providers"`

	Pipeline pipeline.Config `yaml:"pipeline"`
	Nowcast  NowcastConfig   `yaml:"nowcast"`
	API      APIConfig       `yaml:"api"`

	WeightsFile   string `yaml:"weights_file"`
	SchedulerFile string `yaml:"scheduler_file"`
	UniverseFile  string `yaml:"universe_file"`
}

// RedisConfig holds the nowcast state store connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Providers groups vendor client settings.
type Providers struct {
	Chain    provider.ClientConfig `yaml:"chain"`
	Earnings provider.ClientConfig `yaml:"earnings"`
	Timezone string                `yaml:"timezone"`
}

// NowcastConfig tunes the intraday smoothing and guards.
type NowcastConfig struct {
	Alpha  float64             `yaml:"alpha"`
	Guards nowcast.GuardConfig `yaml:"guards"`
}

// APIConfig holds the HTTP surface settings.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Universe is the allowlist file layout.
type Universe struct {
	Symbols []string `yaml:"symbols"`
}

// Load reads and validates the root config file.
func Load(path string) (*App, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var app App
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &app); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := app.Validate(); err != nil {
		return nil, err
	}
	return &app, nil
}

// LoadUniverse reads the symbol allowlist. A missing path means no
// restriction.
func LoadUniverse(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}
	var u Universe
	if err := yaml.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to parse universe YAML: %w", err)
	}
	return u.Symbols, nil
}

// Validate rejects configurations that cannot run.
func (a *App) Validate() error {
	if a.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if a.Nowcast.Alpha < 0 || a.Nowcast.Alpha > 1 {
		return fmt.Errorf("nowcast.alpha must be in [0, 1]")
	}
	return nil
}

// Defaults fills unset sections.
func (a *App) Defaults() {
	if a.LogLevel == "" {
		a.LogLevel = "info"
	}
	if a.API.Addr == "" {
		a.API.Addr = ":8080"
	}
	if a.Redis.Addr == "" {
		a.Redis.Addr = "localhost:6379"
	}
	if a.Nowcast.Alpha == 0 {
		a.Nowcast.Alpha = nowcast.DefaultAlpha
	}
	if a.Nowcast.Guards == (nowcast.GuardConfig{}) {
		a.Nowcast.Guards = nowcast.DefaultGuardConfig()
	}
	if a.WeightsFile == "" {
		a.WeightsFile = "config/weights.yaml"
	}
	if a.SchedulerFile == "" {
		a.SchedulerFile = "config/scheduler.yaml"
	}
}
