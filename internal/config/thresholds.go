// Package config holds the tunable thresholds of the diagnosis engine and the
// application settings the CLI loads around them.
package config

import (
	"math"

	"receipt-diagnoser/internal/domain"
)

// Weights combine the three dimension sub-scores into an overall confidence.
type Weights struct {
	Vendor float64 `mapstructure:"vendor" yaml:"vendor" json:"vendor"`
	Amount float64 `mapstructure:"amount" yaml:"amount" json:"amount"`
	Date   float64 `mapstructure:"date" yaml:"date" json:"date"`
}

// Thresholds is an immutable threshold profile. It is passed by value into the
// scorer and classifier, so several profiles can be in use at once.
type Thresholds struct {
	MinMatchConfidence  float64 `mapstructure:"min_match_confidence" yaml:"min_match_confidence" json:"min_match_confidence"`
	VendorMismatchBelow float64 `mapstructure:"vendor_mismatch_below" yaml:"vendor_mismatch_below" json:"vendor_mismatch_below"`
	// SettlementDelayDays is the inclusive [min, max] posting lag window.
	SettlementDelayDays      [2]int  `mapstructure:"settlement_delay_days" yaml:"settlement_delay_days" json:"settlement_delay_days"`
	ExactAmountTolerancePct  float64 `mapstructure:"exact_amount_tolerance_pct" yaml:"exact_amount_tolerance_pct" json:"exact_amount_tolerance_pct"`
	TipTaxVarianceCeilingPct float64 `mapstructure:"tip_tax_variance_ceiling_pct" yaml:"tip_tax_variance_ceiling_pct" json:"tip_tax_variance_ceiling_pct"`
	AmountTolerancePct       float64 `mapstructure:"amount_tolerance_pct" yaml:"amount_tolerance_pct" json:"amount_tolerance_pct"`
	DateToleranceDays        float64 `mapstructure:"date_tolerance_days" yaml:"date_tolerance_days" json:"date_tolerance_days"`
	Weights                  Weights `mapstructure:"weights" yaml:"weights" json:"weights"`
	CleanMatchMinConfidence  float64 `mapstructure:"clean_match_min_confidence" yaml:"clean_match_min_confidence" json:"clean_match_min_confidence"`
	LowExtractionConfidence  float64 `mapstructure:"low_extraction_confidence" yaml:"low_extraction_confidence" json:"low_extraction_confidence"`
	NoMatchConfidence        float64 `mapstructure:"no_match_confidence" yaml:"no_match_confidence" json:"no_match_confidence"`
	RunnerUpGap              float64 `mapstructure:"runner_up_gap" yaml:"runner_up_gap" json:"runner_up_gap"`
	// MaxCandidates caps the ranked list; zero keeps every qualifying candidate.
	MaxCandidates int `mapstructure:"max_candidates" yaml:"max_candidates" json:"max_candidates"`
}

// Default returns the shipped threshold profile.
func Default() Thresholds {
	return Thresholds{
		MinMatchConfidence:       30,
		VendorMismatchBelow:      80,
		SettlementDelayDays:      [2]int{1, 3},
		ExactAmountTolerancePct:  2,
		TipTaxVarianceCeilingPct: 25,
		AmountTolerancePct:       25,
		DateToleranceDays:        5,
		Weights:                  Weights{Vendor: 0.40, Amount: 0.35, Date: 0.25},
		CleanMatchMinConfidence:  80,
		LowExtractionConfidence:  0.80,
		NoMatchConfidence:        95,
		RunnerUpGap:              15,
		MaxCandidates:            0,
	}
}

// SettlementMin is the shortest lag that counts as a settlement delay.
func (t Thresholds) SettlementMin() int { return t.SettlementDelayDays[0] }

// SettlementMax is the longest lag that counts as a settlement delay.
func (t Thresholds) SettlementMax() int { return t.SettlementDelayDays[1] }

// Validate reports the first out-of-range threshold as a *domain.ConfigurationError.
func (t Thresholds) Validate() error {
	percentages := []struct {
		field string
		value float64
	}{
		{"min_match_confidence", t.MinMatchConfidence},
		{"vendor_mismatch_below", t.VendorMismatchBelow},
		{"clean_match_min_confidence", t.CleanMatchMinConfidence},
		{"no_match_confidence", t.NoMatchConfidence},
	}
	for _, p := range percentages {
		if !inRange(p.value, 0, 100) {
			return domain.NewConfigurationError(p.field, p.value, "must be within 0..100")
		}
	}

	switch {
	case t.SettlementMin() < 0:
		return domain.NewConfigurationError("settlement_delay_days", t.SettlementDelayDays, "minimum must not be negative")
	case t.SettlementMin() > t.SettlementMax():
		return domain.NewConfigurationError("settlement_delay_days", t.SettlementDelayDays, "minimum must not exceed maximum")
	case !finite(t.ExactAmountTolerancePct) || t.ExactAmountTolerancePct < 0:
		return domain.NewConfigurationError("exact_amount_tolerance_pct", t.ExactAmountTolerancePct, "must not be negative")
	case !finite(t.TipTaxVarianceCeilingPct) || t.TipTaxVarianceCeilingPct <= t.ExactAmountTolerancePct:
		return domain.NewConfigurationError("tip_tax_variance_ceiling_pct", t.TipTaxVarianceCeilingPct, "must exceed exact_amount_tolerance_pct")
	case t.TipTaxVarianceCeilingPct > 100:
		return domain.NewConfigurationError("tip_tax_variance_ceiling_pct", t.TipTaxVarianceCeilingPct, "must not exceed 100")
	case !finite(t.AmountTolerancePct) || t.AmountTolerancePct <= 0:
		return domain.NewConfigurationError("amount_tolerance_pct", t.AmountTolerancePct, "must be positive")
	case !finite(t.DateToleranceDays) || t.DateToleranceDays <= 0:
		return domain.NewConfigurationError("date_tolerance_days", t.DateToleranceDays, "must be positive")
	case !inRange(t.LowExtractionConfidence, 0, 1):
		return domain.NewConfigurationError("low_extraction_confidence", t.LowExtractionConfidence, "must be within 0..1")
	case !finite(t.RunnerUpGap) || t.RunnerUpGap < 0:
		return domain.NewConfigurationError("runner_up_gap", t.RunnerUpGap, "must not be negative")
	case t.MaxCandidates < 0:
		return domain.NewConfigurationError("max_candidates", t.MaxCandidates, "must not be negative")
	}

	return t.Weights.validate()
}

func (w Weights) validate() error {
	for _, v := range []float64{w.Vendor, w.Amount, w.Date} {
		if !finite(v) || v <= 0 {
			return domain.NewConfigurationError("weights", w, "each weight must be positive")
		}
	}
	if math.Abs(w.Vendor+w.Amount+w.Date-1) > 1e-9 {
		return domain.NewConfigurationError("weights", w, "must sum to 1")
	}
	if w.Vendor <= w.Amount || w.Vendor <= w.Date {
		return domain.NewConfigurationError("weights.vendor", w.Vendor, "must be the largest weight")
	}
	return nil
}

func inRange(v, lo, hi float64) bool { return finite(v) && v >= lo && v <= hi }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
