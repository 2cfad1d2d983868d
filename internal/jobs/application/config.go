package application

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config defines the audit pipeline configuration. Env vars set the
// baseline; an optional yaml file named by AUDIT_CONFIG overrides it.
type Config struct {
	Tolerance      string            `yaml:"tolerance"`
	Carriers       []string          `yaml:"carriers"`
	CarrierTols    map[string]string `yaml:"carrier_tolerances"`
	UploadDir      string            `yaml:"upload_dir"`
	OutputDir      string            `yaml:"output_dir"`
	PollInterval   time.Duration     `yaml:"poll_interval"`
	MaxUploadBytes int64             `yaml:"max_upload_bytes"`
}

// LoadConfig loads config from env, then the optional yaml overlay.
func LoadConfig() (Config, error) {
	cfg := Config{
		Tolerance:      getenvDefault("MONEY_TOLERANCE", "1.00"),
		Carriers:       splitCSV(getenvDefault("AUDIT_CARRIERS", "ONE,COSCO")),
		UploadDir:      getenvDefault("AUDIT_UPLOAD_DIR", filepath.FromSlash("var/uploads")),
		OutputDir:      getenvDefault("AUDIT_OUTPUT_DIR", filepath.FromSlash("var/reports")),
		PollInterval:   getenvDurationDefault("AUDIT_POLL_INTERVAL", 2*time.Second),
		MaxUploadBytes: getenvInt64Default("AUDIT_MAX_UPLOAD_BYTES", 32<<20),
	}

	if path := os.Getenv("AUDIT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.UploadDir == "" || cfg.OutputDir == "" {
		return cfg, errors.New("jobs: upload and output directories required")
	}
	if _, err := decimal.NewFromString(cfg.Tolerance); err != nil {
		return cfg, errors.New("jobs: tolerance is not a valid decimal")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return cfg, nil
}

// ToleranceFor returns the tolerance for a carrier, falling back to the
// global default when no per-carrier override is set.
func (c Config) ToleranceFor(carrier string) decimal.Decimal {
	carrier = strings.ToUpper(strings.TrimSpace(carrier))
	if c.CarrierTols != nil {
		if raw, ok := c.CarrierTols[carrier]; ok {
			if tol, err := decimal.NewFromString(raw); err == nil && !tol.IsNegative() {
				return tol
			}
		}
	}
	tol, err := decimal.NewFromString(c.Tolerance)
	if err != nil {
		return decimal.RequireFromString("1.00")
	}
	return tol
}

// SupportsCarrier reports whether the carrier is enabled.
func (c Config) SupportsCarrier(carrier string) bool {
	carrier = strings.ToUpper(strings.TrimSpace(carrier))
	for _, c := range c.Carriers {
		if strings.ToUpper(strings.TrimSpace(c)) == carrier {
			return true
		}
	}
	return false
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt64Default(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDurationDefault(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
