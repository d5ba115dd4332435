package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultBaseURL is the public Mercado deployment the suite targets.
const DefaultBaseURL = "https://api-desafio-qa.onrender.com/mercado"

// DefaultTimeout matches the slow cold start of the free-tier remote.
const DefaultTimeout = 90 * time.Second

// Config holds the runner configuration read from the environment.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Rate      float64 // requests per second, 0 = unlimited
	Seed      int64   // 0 = time-based
	ReportDir string
	Log       LogConfig
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
	Output string
	MaxAge int
}

// Load reads .env (if present) and then the environment. A malformed value is
// an error rather than a silent default.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var errs []error
	cfg := &Config{
		BaseURL:   strings.TrimRight(getEnv("MERCADO_BASE_URL", DefaultBaseURL), "/"),
		Timeout:   getDurationEnv("MERCADO_TIMEOUT", DefaultTimeout, &errs),
		Rate:      getFloatEnv("MERCADO_RATE", 0, &errs),
		Seed:      getInt64Env("MERCADO_SEED", 0, &errs),
		ReportDir: getEnv("MERCADO_REPORT_DIR", "reports"),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stderr"),
			MaxAge: int(getInt64Env("LOG_MAX_AGE", 0, &errs)),
		},
	}
	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("MERCADO_BASE_URL must not be empty"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("MERCADO_TIMEOUT must be positive, got %s", c.Timeout))
	}
	if c.Rate < 0 {
		errs = append(errs, fmt.Errorf("MERCADO_RATE must not be negative, got %v", c.Rate))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be 'json' or 'text', got '%s'", c.Log.Format))
	}
	if c.Log.MaxAge < 0 {
		errs = append(errs, errors.New("LOG_MAX_AGE must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func getFloatEnv(key string, defaultValue float64, errs *[]error) float64 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return f
}

func getInt64Env(key string, defaultValue int64, errs *[]error) int64 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}
