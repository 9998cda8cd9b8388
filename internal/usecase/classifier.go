package usecase

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"receipt-diagnoser/internal/config"
	"receipt-diagnoser/internal/domain"
	"receipt-diagnoser/internal/normalize"
)

// Classifier turns a ranked candidate list into a Diagnosis. It is stateless
// beyond its thresholds and safe for concurrent use.
type Classifier struct {
	cfg config.Thresholds
}

// NewClassifier validates cfg and returns a classifier bound to it.
func NewClassifier(cfg config.Thresholds) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{cfg: cfg}, nil
}

// Diagnose classifies the top candidate. An empty list yields NO_MATCH.
// Candidates must come from Score: in range and in ranking order. Anything
// else is a programming error and panics with *domain.InvariantViolation.
func (c *Classifier) Diagnose(receipt domain.ReceiptRecord, candidates []domain.MatchCandidate) domain.Diagnosis {
	checkRanked(candidates)
	if len(candidates) == 0 {
		return c.noMatch(receipt)
	}

	top := candidates[0]
	in := RuleInput{Receipt: receipt, Top: top, Thresholds: c.cfg}

	var findings []Finding
	for _, rule := range archetypeRules {
		if f, ok := rule(in); ok {
			slog.Debug("archetype rule fired", "label", f.Label, "transaction_id", top.Transaction.TransactionID)
			findings = append(findings, f)
		}
	}
	if f, ok := PartialMatchRule(in, findings); ok {
		slog.Debug("archetype rule fired", "label", f.Label, "transaction_id", top.Transaction.TransactionID)
		findings = append(findings, f)
	}

	labels := make([]domain.Label, 0, len(findings))
	for _, f := range findings {
		labels = append(labels, f.Label)
	}
	labels = domain.SortLabels(labels)

	lines := dimensionEvidence(c.cfg, receipt, top)
	evidence := make([]string, 0, 8)
	for i, dim := range []dimension{dimVendor, dimAmount, dimDate} {
		evidence = append(evidence, lines[i])
		evidence = append(evidence, findingsFor(findings, dim)...)
	}
	if summary := findingsFor(findings, dimSummary); len(summary) > 0 {
		evidence = append(evidence, summary...)
	} else if len(labels) == 0 {
		evidence = append(evidence, "All signals align - vendor, amount, and date all match within thresholds. This appears to be a clean match with no accounting exception.")
	}
	if warning, ok := lowExtractionWarning(in); ok {
		evidence = append(evidence, warning)
	}
	if note, ok := c.runnerUpNote(candidates); ok {
		evidence = append(evidence, note)
	}

	chosen := top
	d := domain.Diagnosis{
		TopCandidate: &chosen,
		Labels:       labels,
		Confidence:   top.OverallConfidence,
		LabelSummary: domain.LabelSummary(labels),
		Evidence:     evidence,
		RunnerUps:    len(candidates) - 1,
	}
	slog.Debug("diagnosis complete",
		"receipt_vendor", receipt.Vendor,
		"labels", d.LabelSummary,
		"confidence", d.Confidence)
	return d
}

func (c *Classifier) noMatch(receipt domain.ReceiptRecord) domain.Diagnosis {
	evidence := []string{
		fmt.Sprintf("No transaction scored above the %.0f%% confidence threshold, so none satisfied vendor, amount and date together.", c.cfg.MinMatchConfidence),
	}
	if !receipt.Date.IsZero() {
		evidence = append(evidence, fmt.Sprintf(
			"Receipt dated %s - verify that transactions from this date range are included in the transaction set.",
			receipt.Date.Format(time.DateOnly)))
	}
	evidence = append(evidence, "Possible causes: transaction not yet posted by the bank, transaction in a different account, or receipt doesn't belong to this transaction set.")
	if warning, ok := lowExtractionWarning(RuleInput{Receipt: receipt, Thresholds: c.cfg}); ok {
		evidence = append(evidence, warning)
	}

	labels := []domain.Label{domain.LabelNoMatch}
	slog.Debug("diagnosis complete", "receipt_vendor", receipt.Vendor, "labels", domain.LabelSummary(labels))
	return domain.Diagnosis{
		Labels:       labels,
		Confidence:   c.cfg.NoMatchConfidence,
		LabelSummary: domain.LabelSummary(labels),
		Evidence:     evidence,
	}
}

func (c *Classifier) runnerUpNote(candidates []domain.MatchCandidate) (string, bool) {
	if len(candidates) < 2 {
		return "", false
	}
	top, second := candidates[0], candidates[1]
	gap := round1(top.OverallConfidence - second.OverallConfidence)
	if gap >= c.cfg.RunnerUpGap {
		return "", false
	}
	return fmt.Sprintf(
		"Note: A second candidate ('%s', %s) scored %.1f%% - only %.1f points below the top match. Manual review recommended.",
		second.Transaction.Merchant, normalize.FormatCents(second.Transaction.Amount), second.OverallConfidence, gap), true
}

func findingsFor(findings []Finding, dim dimension) []string {
	var out []string
	for _, f := range findings {
		if f.dim == dim {
			out = append(out, f.Evidence)
		}
	}
	return out
}

// checkRanked panics when candidates are out of range or out of ranking order.
func checkRanked(candidates []domain.MatchCandidate) {
	for i, c := range candidates {
		if badScore(c.OverallConfidence) {
			domain.Invariantf("candidate %s has overall confidence %v", c.Transaction.TransactionID, c.OverallConfidence)
		}
		if badScore(c.VendorSimilarity) {
			domain.Invariantf("candidate %s has vendor similarity %v", c.Transaction.TransactionID, c.VendorSimilarity)
		}
		if math.IsNaN(c.AmountDeltaPct) || c.AmountDeltaPct < 0 {
			domain.Invariantf("candidate %s has amount delta pct %v", c.Transaction.TransactionID, c.AmountDeltaPct)
		}
		if i > 0 && candidateLess(c, candidates[i-1]) {
			domain.Invariantf("candidate %s is ranked after %s", c.Transaction.TransactionID, candidates[i-1].Transaction.TransactionID)
		}
	}
}

func badScore(v float64) bool { return math.IsNaN(v) || v < 0 || v > 100 }
