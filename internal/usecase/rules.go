package usecase

import (
	"fmt"
	"math"
	"strings"

	"receipt-diagnoser/internal/config"
	"receipt-diagnoser/internal/domain"
	"receipt-diagnoser/internal/normalize"
)

// dimension is the evidence slot a finding belongs to.
type dimension int

const (
	dimVendor dimension = iota
	dimAmount
	dimDate
	dimSummary
)

// RuleInput is everything a rule may look at.
type RuleInput struct {
	Receipt    domain.ReceiptRecord
	Top        domain.MatchCandidate
	Thresholds config.Thresholds
}

// Finding is one rule's label plus the evidence line that justifies it.
type Finding struct {
	Label    domain.Label
	Evidence string
	dim      dimension
}

// ArchetypeRule is an independent predicate over the top candidate.
type ArchetypeRule func(in RuleInput) (Finding, bool)

// archetypeRules are evaluated unconditionally; their findings are unioned.
var archetypeRules = []ArchetypeRule{
	VendorMismatchRule,
	SettlementDelayRule,
	TipTaxVarianceRule,
}

// VendorMismatchRule fires when vendor similarity is strictly below the threshold.
func VendorMismatchRule(in RuleInput) (Finding, bool) {
	score := in.Top.VendorSimilarity
	if score >= in.Thresholds.VendorMismatchBelow {
		return Finding{}, false
	}
	return Finding{
		Label: domain.LabelVendorMismatch,
		dim:   dimVendor,
		Evidence: fmt.Sprintf(
			"Vendor descriptor mismatch: names scored %.1f/100 (threshold: %.0f). Receipt vendor '%s' does not closely match bank descriptor '%s' - likely abbreviated or coded by payment processor.",
			score, in.Thresholds.VendorMismatchBelow, in.Receipt.Vendor, in.Top.Transaction.Merchant),
	}, true
}

// SettlementDelayRule fires when the bank posted within the settlement window,
// never before the receipt date.
func SettlementDelayRule(in RuleInput) (Finding, bool) {
	days := in.Top.DateDeltaDays
	if days < 0 || days < in.Thresholds.SettlementMin() || days > in.Thresholds.SettlementMax() {
		return Finding{}, false
	}
	return Finding{
		Label: domain.LabelSettlementDelay,
		dim:   dimDate,
		Evidence: fmt.Sprintf(
			"Settlement delay: %d day(s) between receipt date and bank posting date. Credit card transactions typically settle in %d-%d business days, so this delay is within the normal range.",
			days, in.Thresholds.SettlementMin(), in.Thresholds.SettlementMax()),
	}, true
}

// TipTaxVarianceRule fires when the amount gap exceeds the exact-match tolerance
// but stays at or under the explainable-variance ceiling. A gap above the
// ceiling never qualifies, even when the receipt tip alone would cover it.
func TipTaxVarianceRule(in RuleInput) (Finding, bool) {
	pct := in.Top.AmountDeltaPct
	if pct <= in.Thresholds.ExactAmountTolerancePct || pct > in.Thresholds.TipTaxVarianceCeilingPct {
		return Finding{}, false
	}

	delta := in.Top.AmountDeltaCents
	base := fmt.Sprintf("Amount variance of %s (%.1f%%) is within the %.0f%% threshold for tip/tax variance.",
		normalize.FormatCents(absInt64(delta)), pct, in.Thresholds.TipTaxVarianceCeilingPct)

	var notes []string
	if in.Receipt.HasTip() {
		notes = append(notes, fmt.Sprintf("Receipt includes a %s tip.", normalize.FormatCents(*in.Receipt.Tip)))
	}
	if in.Receipt.HasTax() && absInt64(absInt64(delta)-*in.Receipt.Tax) < 100 {
		notes = append(notes, fmt.Sprintf("Difference (%s) is close to the receipt tax amount (%s).",
			normalize.FormatCents(absInt64(delta)), normalize.FormatCents(*in.Receipt.Tax)))
	}
	switch {
	case delta > 0:
		notes = append(notes, "Bank charged more than receipt total - consistent with tip added after receipt was printed.")
	case delta < 0:
		notes = append(notes, "Bank charged less than receipt total - possible discount, partial refund, or pre-tip authorization.")
	}
	if len(notes) == 0 {
		notes = append(notes, "Consistent with tip, tax adjustment, or rounding difference.")
	}

	return Finding{
		Label:    domain.LabelTipTaxVariance,
		dim:      dimAmount,
		Evidence: base + " " + strings.Join(notes, " "),
	}, true
}

// outsideBands lists the dimensions of the top candidate that no archetype
// explains: an amount gap above the ceiling, a bank date before the receipt,
// or a lag beyond the settlement window.
func outsideBands(in RuleInput) []string {
	var factors []string
	top := in.Top
	if in.Thresholds.VendorMismatchBelow <= top.VendorSimilarity && top.VendorSimilarity < 95 {
		factors = append(factors, fmt.Sprintf("vendor similarity is moderate (%.1f/100)", top.VendorSimilarity))
	}
	if top.AmountDeltaPct > in.Thresholds.TipTaxVarianceCeilingPct {
		factors = append(factors, fmt.Sprintf("amount difference (%.1f%%) exceeds the %.0f%% tip/tax threshold",
			top.AmountDeltaPct, in.Thresholds.TipTaxVarianceCeilingPct))
	}
	switch {
	case top.DateDeltaDays < 0:
		factors = append(factors, fmt.Sprintf("bank posting date is %d day(s) before the receipt date", -top.DateDeltaDays))
	case top.DateDeltaDays > in.Thresholds.SettlementMax():
		factors = append(factors, fmt.Sprintf("date gap (%d days) exceeds the %d-day settlement window",
			top.DateDeltaDays, in.Thresholds.SettlementMax()))
	}
	return factors
}

// unexplained reports whether any dimension lies outside every explained band.
// Moderate vendor similarity alone does not count; it is only a contributing factor.
func unexplained(in RuleInput) bool {
	top := in.Top
	return top.AmountDeltaPct > in.Thresholds.TipTaxVarianceCeilingPct ||
		top.DateDeltaDays < 0 ||
		top.DateDeltaDays > in.Thresholds.SettlementMax() ||
		(top.DateDeltaDays > 0 && top.DateDeltaDays < in.Thresholds.SettlementMin())
}

// PartialMatchRule fires only when no other archetype did and the candidate is
// still not clean: confidence under the clean-match bar or a dimension that no
// archetype explains.
func PartialMatchRule(in RuleInput, others []Finding) (Finding, bool) {
	if len(others) > 0 {
		return Finding{}, false
	}
	conf := in.Top.OverallConfidence
	if conf >= in.Thresholds.CleanMatchMinConfidence && !unexplained(in) {
		return Finding{}, false
	}

	var evidence string
	if factors := outsideBands(in); len(factors) > 0 {
		evidence = fmt.Sprintf("Partial match: overall confidence is %.1f%% (clean match threshold: %.0f%%). Contributing factors: %s.",
			conf, in.Thresholds.CleanMatchMinConfidence, strings.Join(factors, "; "))
	} else {
		evidence = fmt.Sprintf("Partial match: overall confidence is %.1f%% (below %.0f%% clean match threshold). Some signals align but the combined evidence is not strong enough for a confident diagnosis.",
			conf, in.Thresholds.CleanMatchMinConfidence)
	}
	return Finding{Label: domain.LabelPartialMatch, Evidence: evidence, dim: dimSummary}, true
}

func lowExtractionWarning(in RuleInput) (string, bool) {
	r := in.Receipt
	low := r.ExtractionConfidence < in.Thresholds.LowExtractionConfidence
	if !low && r.ExtractionStatus == domain.ExtractionOK {
		return "", false
	}
	return fmt.Sprintf(
		"WARNING: Low extraction confidence (%.0f%%, status: %s). The receipt image may be blurry, damaged, or partially illegible. Extracted values should be verified manually before acting on this diagnosis.",
		math.Round(r.ExtractionConfidence*100), r.ExtractionStatus), true
}
