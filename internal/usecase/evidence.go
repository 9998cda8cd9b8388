package usecase

import (
	"fmt"
	"time"

	"receipt-diagnoser/internal/config"
	"receipt-diagnoser/internal/domain"
	"receipt-diagnoser/internal/normalize"
)

// dimensionEvidence renders the vendor, amount and date lines for c. Both the
// scorer and the classifier derive them here from the candidate's own fields.
func dimensionEvidence(cfg config.Thresholds, receipt domain.ReceiptRecord, c domain.MatchCandidate) []string {
	tx := c.Transaction
	return []string{
		vendorEvidence(cfg, receipt.NormalizedVendor, tx.NormalizedMerchant, c.VendorSimilarity),
		amountEvidence(receipt.Total, tx.Amount, c.AmountDeltaPct, cfg.ExactAmountTolerancePct, cfg.TipTaxVarianceCeilingPct),
		dateEvidence(cfg, receipt.Date, tx.Date, c.DateDeltaDays),
	}
}

func vendorEvidence(cfg config.Thresholds, receipt, bank domain.NormalizedVendor, score float64) string {
	rv, bv := receipt.String(), bank.String()
	switch {
	case receipt.IsEmpty() && bank.IsEmpty():
		return "Both vendor names are empty - cannot compare"
	case receipt.IsEmpty():
		return fmt.Sprintf("Receipt vendor name is empty (bank: '%s')", bv)
	case bank.IsEmpty():
		return fmt.Sprintf("Bank merchant name is empty (receipt: '%s')", rv)
	case score == 100:
		return fmt.Sprintf("Vendor names match exactly: '%s'", rv)
	case score >= 95:
		return fmt.Sprintf("Vendor names match: '%s' ~ '%s' (score: %.1f)", rv, bv, score)
	case score >= cfg.VendorMismatchBelow:
		return fmt.Sprintf("Vendor names similar: '%s' ~ '%s' (score: %.1f)", rv, bv, score)
	case score >= 60:
		return fmt.Sprintf("Vendor names differ: '%s' vs '%s' (score: %.1f)", rv, bv, score)
	case score >= 40:
		return fmt.Sprintf("Vendor names weakly similar: '%s' vs '%s' (score: %.1f)", rv, bv, score)
	default:
		return fmt.Sprintf("Vendor names unrelated: '%s' vs '%s' (score: %.1f)", rv, bv, score)
	}
}

func amountEvidence(receiptTotal, txAmount int64, pct, exactPct, ceilingPct float64) string {
	r, t := normalize.FormatCents(receiptTotal), normalize.FormatCents(txAmount)
	if receiptTotal == 0 && txAmount != 0 {
		return fmt.Sprintf("Receipt total is $0.00 - cannot compute amount proximity (bank: %s)", t)
	}
	delta := txAmount - receiptTotal
	if delta == 0 {
		return fmt.Sprintf("Exact amount match: %s", r)
	}

	sign := "+"
	if delta < 0 {
		sign = "-"
	}
	diff := fmt.Sprintf("(diff: %s%s, %.1f%%)", sign, normalize.FormatCents(absInt64(delta)), pct)
	switch {
	case pct <= exactPct:
		return fmt.Sprintf("Amount very close: %s vs %s %s", r, t, diff)
	case pct <= 10:
		return fmt.Sprintf("Amount close: %s vs %s %s", r, t, diff)
	case pct <= ceilingPct:
		return fmt.Sprintf("Amount differs: %s vs %s %s", r, t, diff)
	default:
		return fmt.Sprintf("Amount significantly different: %s vs %s %s", r, t, diff)
	}
}

func dateEvidence(cfg config.Thresholds, receiptDate, txDate time.Time, days int) string {
	rd, td := receiptDate.Format(time.DateOnly), txDate.Format(time.DateOnly)
	abs := absInt(days)
	switch {
	case days == 0:
		return fmt.Sprintf("Same date: %s", rd)
	case abs <= cfg.SettlementMax():
		direction := "later"
		if days < 0 {
			direction = "earlier"
		}
		return fmt.Sprintf("Settlement delay: %d day(s) %s (receipt: %s, bank: %s)", abs, direction, rd, td)
	case abs <= 7:
		return fmt.Sprintf("Date gap: %d days apart (receipt: %s, bank: %s) - exceeds typical %d-%d day settlement window",
			abs, rd, td, cfg.SettlementMin(), cfg.SettlementMax())
	default:
		return fmt.Sprintf("Date mismatch: %d days apart (receipt: %s, bank: %s)", abs, rd, td)
	}
}
