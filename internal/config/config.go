// Package config loads service and solver settings from an optional YAML file overlaid with
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	yaml "gopkg.in/yaml.v3"

	"antroute/internal/opt"
)

// EnvFile names the environment variable holding the YAML config path.
const EnvFile = "ANTROUTE_CONFIG"

type Config struct {
	Port               string        `yaml:"port"`
	DatabaseURL        string        `yaml:"databaseUrl"`
	RedisURL           string        `yaml:"redisUrl"`
	RateRPS            float64       `yaml:"rateRps"`   // POST /v1/solve requests per second per client; 0 disables
	RateBurst          int           `yaml:"rateBurst"`
	WebhookMaxAttempts int           `yaml:"webhookMaxAttempts"`
	MaxNodes           int           `yaml:"maxNodes"`      // largest instance accepted over HTTP
	MaxIterations      int           `yaml:"maxIterations"` // cap on per-request iteration overrides
	SolveTimeout       time.Duration `yaml:"solveTimeout"`
	Auth               Auth          `yaml:"auth"`
	ACO                ACO           `yaml:"aco"`
}

// Auth selects how API callers are identified: off (X-Client-Id/X-Role headers), dev, hmac or jwks
// bearer tokens.
type Auth struct {
	Mode        string `yaml:"mode"`
	HMACSecret  string `yaml:"hmacSecret"`
	JWKSURL     string `yaml:"jwksUrl"`
	ClientClaim string `yaml:"clientClaim"`
	RoleClaim   string `yaml:"roleClaim"`
}

// ACO mirrors opt.Config with YAML names.
type ACO struct {
	Ants               int     `yaml:"ants"`
	Alpha              float64 `yaml:"alpha"`
	Beta               float64 `yaml:"beta"`
	Evaporation        float64 `yaml:"evaporation"`
	Deposit            float64 `yaml:"deposit"`
	InitialPheromone   float64 `yaml:"initialPheromone"`
	Iterations         int     `yaml:"iterations"`
	EliteAnts          int     `yaml:"eliteAnts"`
	EliteReinforcement float64 `yaml:"eliteReinforcement"`
	LocalSearch        bool    `yaml:"localSearch"`
	SnapshotEvery      int     `yaml:"snapshotEvery"`
}

func Default() Config {
	d := opt.DefaultConfig()
	return Config{
		Port:               "8080",
		RateRPS:            5,
		RateBurst:          10,
		WebhookMaxAttempts: 10,
		MaxNodes:           2000,
		MaxIterations:      20000,
		SolveTimeout:       2 * time.Minute,
		Auth:               Auth{Mode: "off"},
		ACO: ACO{
			Ants:               d.Ants,
			Alpha:              d.Alpha,
			Beta:               d.Beta,
			Evaporation:        d.Evaporation,
			Deposit:            d.Deposit,
			InitialPheromone:   d.InitialPheromone,
			Iterations:         d.Iterations,
			EliteAnts:          d.EliteAnts,
			EliteReinforcement: d.EliteReinforcement,
			LocalSearch:        d.LocalSearch,
			SnapshotEvery:      d.SnapshotEvery,
		},
	}
}

// Opt converts the colony section to solver parameters.
func (a ACO) Opt() opt.Config {
	return opt.Config{
		Ants:               a.Ants,
		Alpha:              a.Alpha,
		Beta:               a.Beta,
		Evaporation:        a.Evaporation,
		Deposit:            a.Deposit,
		InitialPheromone:   a.InitialPheromone,
		Iterations:         a.Iterations,
		EliteAnts:          a.EliteAnts,
		EliteReinforcement: a.EliteReinforcement,
		LocalSearch:        a.LocalSearch,
		SnapshotEvery:      a.SnapshotEvery,
	}
}

// Load reads path (skipped when empty), then applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv is Load with the path taken from ANTROUTE_CONFIG.
func FromEnv() (Config, error) {
	return Load(os.Getenv(EnvFile))
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Port = v
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		c.DatabaseURL = v
	}
	if v, ok := lookup("REDIS_URL"); ok {
		c.RedisURL = v
	}
	if v, ok := lookup("AUTH_MODE"); ok && v != "" {
		c.Auth.Mode = v
	}
	if v, ok := lookup("AUTH_HMAC_SECRET"); ok {
		c.Auth.HMACSecret = v
	}
	if v, ok := lookup("AUTH_JWKS_URL"); ok {
		c.Auth.JWKSURL = v
	}
	if v, ok := lookup("RATE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_RPS: %w", err)
		}
		c.RateRPS = f
	}
	if v, ok := lookup("RATE_BURST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_BURST: %w", err)
		}
		c.RateBurst = n
	}
	if v, ok := lookup("WEBHOOK_MAX_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WEBHOOK_MAX_ATTEMPTS: %w", err)
		}
		c.WebhookMaxAttempts = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must be set")
	}
	if c.RateRPS < 0 {
		return fmt.Errorf("rateRps must be >= 0 (got %v)", c.RateRPS)
	}
	if c.RateRPS > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rateBurst must be >= 1 when rate limiting is on (got %d)", c.RateBurst)
	}
	if c.WebhookMaxAttempts < 1 {
		return fmt.Errorf("webhookMaxAttempts must be >= 1 (got %d)", c.WebhookMaxAttempts)
	}
	if c.MaxNodes < 2 {
		return fmt.Errorf("maxNodes must be >= 2 (got %d)", c.MaxNodes)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("maxIterations must be >= 1 (got %d)", c.MaxIterations)
	}
	if c.SolveTimeout < 0 {
		return fmt.Errorf("solveTimeout must be >= 0 (got %v)", c.SolveTimeout)
	}
	if err := c.ACO.Opt().Validate(); err != nil {
		return fmt.Errorf("aco: %w", err)
	}
	return nil
}
