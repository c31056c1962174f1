package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	"github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/randomness"
	"github.com/Black-And-White-Club/numbers-lottery/app/observability"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	JWT           JWTConfig           `yaml:"jwt"`
	Observability ObservabilityConfig `yaml:"observability"`
	Lottery       LotteryConfig       `yaml:"lottery"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL runs the event bus in
// process.
type NATSConfig struct {
	URL        string `yaml:"url"`
	QueueGroup string `yaml:"queue_group"`
}

// HTTPConfig holds the API listener settings.
type HTTPConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      float64  `yaml:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst"`
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress  string  `yaml:"metrics_address"`
	OTLPEndpoint    string  `yaml:"otlp_endpoint"`
	OTLPInsecure    bool    `yaml:"otlp_insecure"`
	TraceSampleRate float64 `yaml:"trace_sample_rate"`
	Environment     string  `yaml:"environment"`
}

// LotteryConfig holds the payout and draw settings applied to new lotteries.
type LotteryConfig struct {
	PayoutPolicy    string `yaml:"payout_policy"`
	PrizeMultiplier uint64 `yaml:"prize_multiplier"`
	Randomness      string `yaml:"randomness"`
	RandomSeed      uint64 `yaml:"random_seed"`
	RandomSalt      string `yaml:"random_salt"`
	AutoDraw        bool   `yaml:"auto_draw"`
}

// LoadConfig loads the configuration from a YAML file, falling back to the
// environment when the file cannot be read.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides lets environment variables win over file values.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("NATS_QUEUE_GROUP"); v != "" {
		cfg.NATS.QueueGroup = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWT.Issuer = v
	}
	if v := os.Getenv("JWT_DEFAULT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JWT_DEFAULT_TTL value: %v", err)
		}
		cfg.JWT.DefaultTTL = d
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("OTLP_ENDPOINT"); v != "" {
		cfg.Observability.OTLPEndpoint = v
	}
	if v := os.Getenv("OTLP_INSECURE"); v != "" {
		cfg.Observability.OTLPInsecure = v == "true"
	}
	if v := os.Getenv("TRACE_SAMPLE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TRACE_SAMPLE_RATE value: %v", err)
		}
		cfg.Observability.TraceSampleRate = f
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOTTERY_PAYOUT_POLICY"); v != "" {
		cfg.Lottery.PayoutPolicy = v
	}
	if v := os.Getenv("LOTTERY_PRIZE_MULTIPLIER"); v != "" {
		m, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid LOTTERY_PRIZE_MULTIPLIER value: %v", err)
		}
		cfg.Lottery.PrizeMultiplier = m
	}
	if v := os.Getenv("LOTTERY_RANDOMNESS"); v != "" {
		cfg.Lottery.Randomness = v
	}
	if v := os.Getenv("LOTTERY_RANDOM_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid LOTTERY_RANDOM_SEED value: %v", err)
		}
		cfg.Lottery.RandomSeed = seed
	}
	if v := os.Getenv("LOTTERY_RANDOM_SALT"); v != "" {
		cfg.Lottery.RandomSalt = v
	}
	if v := os.Getenv("LOTTERY_AUTO_DRAW"); v != "" {
		cfg.Lottery.AutoDraw = v == "true"
	}
	return nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	if os.Getenv("DATABASE_URL") == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.NATS.QueueGroup == "" {
		c.NATS.QueueGroup = "lottery"
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.RateLimit <= 0 {
		c.HTTP.RateLimit = 5
	}
	if c.HTTP.RateBurst <= 0 {
		c.HTTP.RateBurst = 10
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "numbers-lottery"
	}
	if c.JWT.DefaultTTL <= 0 {
		c.JWT.DefaultTTL = 24 * time.Hour
	}
	if c.Observability.TraceSampleRate <= 0 {
		c.Observability.TraceSampleRate = 0.1
	}
	if c.Lottery.PayoutPolicy == "" {
		c.Lottery.PayoutPolicy = lotterydomain.PolicyFixedMultiplier
	}
	if c.Lottery.PrizeMultiplier == 0 {
		c.Lottery.PrizeMultiplier = lotterydomain.DefaultPrizeMultiplier
	}
	if c.Lottery.Randomness == "" {
		c.Lottery.Randomness = randomness.KindHash
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres dsn is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if _, err := lotterydomain.NewPayoutPolicy(c.Lottery.PayoutPolicy, c.Lottery.PrizeMultiplier); err != nil {
		errs = append(errs, fmt.Errorf("lottery payout policy: %w", err))
	}
	switch c.Lottery.Randomness {
	case randomness.KindHash, randomness.KindSeeded:
	default:
		errs = append(errs, fmt.Errorf("unknown lottery randomness %q", c.Lottery.Randomness))
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ToObsConfig maps the observability section onto the observability
// package settings.
func ToObsConfig(appCfg *Config) observability.Config {
	return observability.Config{
		ServiceName:    "numbers-lottery",
		Environment:    appCfg.Observability.Environment,
		Version:        "0.1.0",
		MetricsAddress: appCfg.Observability.MetricsAddress,
		OTLPEndpoint:   appCfg.Observability.OTLPEndpoint,
		OTLPInsecure:   appCfg.Observability.OTLPInsecure,
		SampleRate:     appCfg.Observability.TraceSampleRate,
	}
}
