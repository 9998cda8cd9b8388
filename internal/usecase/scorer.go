package usecase

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"receipt-diagnoser/internal/config"
	"receipt-diagnoser/internal/domain"
	"receipt-diagnoser/internal/normalize"
)

// Scorer rates every transaction against a receipt on vendor, amount and date,
// then ranks and filters the results. It holds only its thresholds and is safe
// for concurrent use.
type Scorer struct {
	cfg config.Thresholds
}

// NewScorer validates cfg and returns a scorer bound to it.
func NewScorer(cfg config.Thresholds) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Score returns the candidates at or above min_match_confidence, ordered by
// overall confidence desc, then absolute date delta asc, then transaction ID asc.
// Malformed input is rejected whole; no row is skipped.
func (s *Scorer) Score(receipt domain.ReceiptRecord, transactions []domain.TransactionRecord) ([]domain.MatchCandidate, error) {
	if err := receipt.Validate(); err != nil {
		return nil, err
	}
	if !normalize.Vendor(receipt.Vendor).Equal(receipt.NormalizedVendor) {
		return nil, domain.NewValidationError("receipt.normalized_vendor", receipt.NormalizedVendor.String(),
			fmt.Sprintf("is not the normalized form of vendor %q", receipt.Vendor))
	}
	if err := validateTransactions(transactions); err != nil {
		return nil, err
	}

	candidates := make([]domain.MatchCandidate, 0, len(transactions))
	for _, tx := range transactions {
		c := s.scoreOne(receipt, tx)
		if c.OverallConfidence < s.cfg.MinMatchConfidence {
			slog.Debug("candidate below minimum confidence",
				"transaction_id", tx.TransactionID,
				"overall", c.OverallConfidence,
				"min", s.cfg.MinMatchConfidence)
			continue
		}
		candidates = append(candidates, c)
	}

	sortCandidates(candidates)
	if s.cfg.MaxCandidates > 0 && len(candidates) > s.cfg.MaxCandidates {
		candidates = candidates[:s.cfg.MaxCandidates]
	}
	return candidates, nil
}

func validateTransactions(transactions []domain.TransactionRecord) error {
	if len(transactions) == 0 {
		return domain.NewValidationError("transactions", 0, "must not be empty")
	}
	seen := make(map[string]bool, len(transactions))
	for i, tx := range transactions {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
		if !normalize.Vendor(tx.Merchant).Equal(tx.NormalizedMerchant) {
			return domain.NewValidationError("transaction.normalized_merchant", tx.NormalizedMerchant.String(),
				fmt.Sprintf("is not the normalized form of merchant %q (row %s)", tx.Merchant, tx.TransactionID))
		}
		if seen[tx.TransactionID] {
			return domain.NewValidationError("transaction.transaction_id", tx.TransactionID, "is duplicated")
		}
		seen[tx.TransactionID] = true
	}
	return nil
}

func (s *Scorer) scoreOne(receipt domain.ReceiptRecord, tx domain.TransactionRecord) domain.MatchCandidate {
	similarity := VendorSimilarity(receipt.NormalizedVendor, tx.NormalizedMerchant)

	deltaCents := tx.Amount - receipt.Total
	rawPct := float64(absInt64(deltaCents)) * 100 / float64(max(receipt.Total, 1))
	amountScore := round1(math.Max(0, 1-rawPct/s.cfg.AmountTolerancePct) * 100)

	days := domain.DaysBetween(receipt.Date, tx.Date)
	dateScore := round1(math.Max(0, 1-float64(absInt(days))/s.cfg.DateToleranceDays) * 100)

	w := s.cfg.Weights
	overall := round1(similarity*w.Vendor + amountScore*w.Amount + dateScore*w.Date)

	c := domain.MatchCandidate{
		Transaction:       tx,
		VendorSimilarity:  similarity,
		AmountDeltaCents:  deltaCents,
		AmountDeltaPct:    round1(rawPct),
		DateDeltaDays:     days,
		AmountScore:       amountScore,
		DateScore:         dateScore,
		OverallConfidence: overall,
	}
	c.Evidence = dimensionEvidence(s.cfg, receipt, c)
	checkCandidate(c)

	slog.Debug("scored candidate",
		"transaction_id", tx.TransactionID,
		"receipt_vendor", receipt.NormalizedVendor.String(),
		"bank_vendor", tx.NormalizedMerchant.String(),
		"vendor", similarity,
		"amount_delta_pct", c.AmountDeltaPct,
		"date_delta_days", days,
		"overall", overall)
	return c
}

// checkCandidate panics when a freshly scored candidate breaks its ranges.
func checkCandidate(c domain.MatchCandidate) {
	scores := []struct {
		name  string
		value float64
	}{
		{"vendor similarity", c.VendorSimilarity},
		{"amount score", c.AmountScore},
		{"date score", c.DateScore},
		{"overall confidence", c.OverallConfidence},
	}
	for _, s := range scores {
		if badScore(s.value) {
			domain.Invariantf("%s %v out of range for transaction %s", s.name, s.value, c.Transaction.TransactionID)
		}
	}
	if math.IsNaN(c.AmountDeltaPct) || c.AmountDeltaPct < 0 {
		domain.Invariantf("amount delta pct %v is negative for transaction %s", c.AmountDeltaPct, c.Transaction.TransactionID)
	}
}

func sortCandidates(candidates []domain.MatchCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidateLess(candidates[i], candidates[j])
	})
}

// candidateLess is the ranking order: higher confidence, then nearer date,
// then lower transaction ID.
func candidateLess(a, b domain.MatchCandidate) bool {
	if a.OverallConfidence != b.OverallConfidence {
		return a.OverallConfidence > b.OverallConfidence
	}
	if a.AbsDateDeltaDays() != b.AbsDateDeltaDays() {
		return a.AbsDateDeltaDays() < b.AbsDateDeltaDays()
	}
	return a.Transaction.TransactionID < b.Transaction.TransactionID
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
