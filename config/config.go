package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/uyplayer/tech-analysis/internal/classification"
)

// ConfigFileEnv names the env var holding the optional YAML config path.
const ConfigFileEnv = "KERNELCTL_CONFIG"

// Config holds kernelctl configuration. Values come from, in increasing priority:
// defaults, .env, environment variables, the YAML file at $KERNELCTL_CONFIG, and
// finally command-line flags (applied by the caller).
type Config struct {
	// Data source
	CSVPath    string `yaml:"csv"`
	SQLitePath string `yaml:"sqlite_path"`
	Symbol     string `yaml:"symbol"`
	TF         string `yaml:"tf"` // seconds or a duration such as "15m"
	Source     string `yaml:"source"`

	// Indicators, e.g. "RQ:8:1:25,GAUSS:16:25"
	Indicators string `yaml:"indicators"`
	Strategy   string `yaml:"strategy"` // batch | reference

	// Outputs
	ChartOut    string `yaml:"chart_out"`
	MetricsOut  string `yaml:"metrics_out"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`

	// Classifier parameters, validated with classification.Validate
	Classification classification.Params `yaml:"classification"`
}

// Load reads configuration from .env, environment variables and the optional YAML
// file. A missing .env is ignored; a configured YAML file that cannot be read or
// parsed is an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env", "error", err)
	}

	cfg := &Config{
		CSVPath:    getEnv("KERNELCTL_CSV", ""),
		SQLitePath: getEnv("SQLITE_PATH", "data/candles.db"),
		Symbol:     getEnv("SYMBOL", "BTCUSDT"),
		TF:         getEnv("TF", "900"),
		Source:     getEnv("SOURCE", "close"),

		Indicators: getEnv("INDICATORS", "RQ:8:1:25,GAUSS:16:25"),
		Strategy:   getEnv("KERNEL_STRATEGY", "batch"),

		ChartOut:    getEnv("CHART_OUT", ""),
		MetricsOut:  getEnv("METRICS_OUT", ""),
		MetricsAddr: getEnv("METRICS_ADDR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		Classification: classification.DefaultParams(),
	}

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ParseTF returns the configured timeframe in seconds. Plain integers are seconds;
// anything else is parsed as a Go duration ("15m", "1h").
func (c *Config) ParseTF() (int, error) {
	s := strings.TrimSpace(c.TF)
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("tf must be positive, got %d", n)
		}
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid tf %q: %w", c.TF, err)
	}
	if d < time.Second || d%time.Second != 0 {
		return 0, fmt.Errorf("tf must be a whole number of seconds, got %s", d)
	}
	return int(d / time.Second), nil
}

// Classifier returns the validated classifier parameters.
func (c *Config) Classifier() (classification.ValidatedParams, error) {
	return classification.Validate(c.Classification)
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
