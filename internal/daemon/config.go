// Package daemon manages the ganbari server lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Database  DatabaseConfig  `toml:"database"`
	Logging   LoggingConfig   `toml:"logging"`
	Jobs      JobsConfig      `toml:"jobs"`
	Redis     RedisConfig     `toml:"redis"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host          string  `toml:"host"`
	Port          int     `toml:"port"`
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// DatabaseConfig points at the SQLite directory.
type DatabaseConfig struct {
	Dir string `toml:"dir"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// JobsConfig controls the in-process scheduler. Hours are UTC.
type JobsConfig struct {
	Enabled    bool `toml:"enabled"`
	DecayHour  int  `toml:"decay_hour"`
	WeeklyHour int  `toml:"weekly_hour"`
}

// RedisConfig enables the Redis job guard when Addr is set.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// TelemetryConfig toggles the Prometheus endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	home := ganbariHome()
	return Config{
		API: APIConfig{
			Host:          "127.0.0.1",
			Port:          8787,
			RatePerSecond: 20,
			Burst:         40,
		},
		Database: DatabaseConfig{Dir: home},
		Logging: LoggingConfig{
			Level:     "info",
			File:      filepath.Join(home, "ganbari.log"),
			MaxSizeMB: 50,
			MaxFiles:  5,
		},
		Jobs: JobsConfig{
			Enabled:    true,
			DecayHour:  0,
			WeeklyHour: 1,
		},
		Telemetry: TelemetryConfig{Prometheus: true},
	}
}

// LoadConfig loads .env files, decodes $GANBARI_HOME/config.toml over the
// defaults and applies environment overrides.
func LoadConfig() (Config, error) {
	loadDotEnv()

	cfg := DefaultConfig()
	path := ConfigPath()
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the daemon cannot run with.
func (c Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("config: api.port %d out of range", c.API.Port)
	}
	if c.Jobs.DecayHour < 0 || c.Jobs.DecayHour > 23 {
		return fmt.Errorf("config: jobs.decay_hour %d out of range", c.Jobs.DecayHour)
	}
	if c.Jobs.WeeklyHour < 0 || c.Jobs.WeeklyHour > 23 {
		return fmt.Errorf("config: jobs.weekly_hour %d out of range", c.Jobs.WeeklyHour)
	}
	if c.Database.Dir == "" {
		return errors.New("config: database.dir is empty")
	}
	return nil
}

// SaveConfig writes cfg to $GANBARI_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// ConfigPath is the location of config.toml.
func ConfigPath() string {
	return filepath.Join(ganbariHome(), "config.toml")
}

// GanbariHome is the data directory, $GANBARI_HOME or ~/.ganbari.
func GanbariHome() string {
	return ganbariHome()
}

func ganbariHome() string {
	if env := os.Getenv("GANBARI_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ganbari")
}

// loadDotEnv reads ./.env then $GANBARI_HOME/.env. Existing variables win,
// so the first file to set a key keeps it.
func loadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(ganbariHome(), ".env"))
}

func applyEnv(cfg *Config) error {
	if home := os.Getenv("GANBARI_HOME"); home != "" {
		cfg.Database.Dir = home
	}
	if addr := os.Getenv("GANBARI_REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if port := os.Getenv("GANBARI_API_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("GANBARI_API_PORT: %w", err)
		}
		cfg.API.Port = p
	}
	return nil
}
