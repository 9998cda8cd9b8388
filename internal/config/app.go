package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"receipt-diagnoser/internal/domain"
)

// EnvPrefix namespaces environment overrides, e.g. RECEIPTDX_LOGGING_LEVEL.
const EnvPrefix = "RECEIPTDX"

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CacheConfig controls the fingerprint-keyed diagnosis cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// BatchConfig controls parallel batch intake.
type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

// AppConfig is everything the CLI needs to build and run the engine.
type AppConfig struct {
	Logging    LoggingConfig `mapstructure:"logging"`
	Cache      CacheConfig   `mapstructure:"cache"`
	Batch      BatchConfig   `mapstructure:"batch"`
	Thresholds Thresholds    `mapstructure:"thresholds"`
	// Profile names the threshold set taken from profiles.<name>, if any.
	Profile string `mapstructure:"-"`
}

// DefaultAppConfig returns the configuration used when nothing is overridden.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Logging:    LoggingConfig{Level: "info", Format: "console"},
		Cache:      CacheConfig{Enabled: false, Path: "~/.cache/receiptdx/diagnoses.db"},
		Batch:      BatchConfig{Workers: 4},
		Thresholds: Default(),
	}
}

// Configure wires environment overrides and defaults into v.
func Configure(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// SetDefaults registers every known key so environment overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("batch.workers", d.Batch.Workers)

	t := d.Thresholds
	v.SetDefault("thresholds.min_match_confidence", t.MinMatchConfidence)
	v.SetDefault("thresholds.vendor_mismatch_below", t.VendorMismatchBelow)
	v.SetDefault("thresholds.settlement_delay_days", t.SettlementDelayDays[:])
	v.SetDefault("thresholds.exact_amount_tolerance_pct", t.ExactAmountTolerancePct)
	v.SetDefault("thresholds.tip_tax_variance_ceiling_pct", t.TipTaxVarianceCeilingPct)
	v.SetDefault("thresholds.amount_tolerance_pct", t.AmountTolerancePct)
	v.SetDefault("thresholds.date_tolerance_days", t.DateToleranceDays)
	v.SetDefault("thresholds.weights.vendor", t.Weights.Vendor)
	v.SetDefault("thresholds.weights.amount", t.Weights.Amount)
	v.SetDefault("thresholds.weights.date", t.Weights.Date)
	v.SetDefault("thresholds.clean_match_min_confidence", t.CleanMatchMinConfidence)
	v.SetDefault("thresholds.low_extraction_confidence", t.LowExtractionConfidence)
	v.SetDefault("thresholds.no_match_confidence", t.NoMatchConfidence)
	v.SetDefault("thresholds.runner_up_gap", t.RunnerUpGap)
	v.SetDefault("thresholds.max_candidates", t.MaxCandidates)
}

// Load unmarshals v into an AppConfig, applies the named threshold profile on
// top of the base thresholds, and validates the result.
func Load(v *viper.Viper, profile string) (AppConfig, error) {
	cfg := DefaultAppConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if profile != "" {
		sub := v.Sub("profiles." + profile)
		if sub == nil {
			return AppConfig{}, domain.NewConfigurationError("profile", profile, "no such profile")
		}
		t := cfg.Thresholds
		if err := sub.Unmarshal(&t); err != nil {
			return AppConfig{}, fmt.Errorf("failed to unmarshal profile %s: %w", profile, err)
		}
		cfg.Thresholds = t
		cfg.Profile = profile
	}

	cfg.Cache.Path = ExpandPath(cfg.Cache.Path)
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks application settings and the threshold profile.
func (c AppConfig) Validate() error {
	if c.Batch.Workers < 1 {
		return domain.NewConfigurationError("batch.workers", c.Batch.Workers, "must be at least 1")
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) == "" {
		return domain.NewConfigurationError("cache.path", c.Cache.Path, "is required when the cache is enabled")
	}
	return c.Thresholds.Validate()
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}
	return os.ExpandEnv(path)
}
