package normalize

import (
	"fmt"
	"strings"

	"receipt-diagnoser/internal/domain"
)

// ReceiptFields is a receipt as it arrives from the extraction collaborator,
// with money and dates still in their printed form.
type ReceiptFields struct {
	Vendor               string
	Total                string
	Date                 string
	Tax                  string
	Tip                  string
	Subtotal             string
	ExtractionConfidence float64
	ExtractionStatus     string
}

// Receipt builds a validated receipt record. Blank optional amounts stay nil.
// A blank extraction status is read as "ok".
func Receipt(f ReceiptFields) (domain.ReceiptRecord, error) {
	total, err := Amount(f.Total)
	if err != nil {
		return domain.ReceiptRecord{}, fmt.Errorf("receipt total: %w", err)
	}
	date, err := Date(f.Date)
	if err != nil {
		return domain.ReceiptRecord{}, fmt.Errorf("receipt date: %w", err)
	}

	status := domain.ExtractionStatus(strings.ToLower(strings.TrimSpace(f.ExtractionStatus)))
	if status == "" {
		status = domain.ExtractionOK
	}

	r := domain.ReceiptRecord{
		Vendor:               f.Vendor,
		NormalizedVendor:     Vendor(f.Vendor),
		Total:                total,
		Date:                 date,
		ExtractionConfidence: f.ExtractionConfidence,
		ExtractionStatus:     status,
	}
	optional := []struct {
		name string
		raw  string
		dst  **int64
	}{
		{"tax", f.Tax, &r.Tax},
		{"tip", f.Tip, &r.Tip},
		{"subtotal", f.Subtotal, &r.Subtotal},
	}
	for _, o := range optional {
		if strings.TrimSpace(o.raw) == "" {
			continue
		}
		cents, err := Amount(o.raw)
		if err != nil {
			return domain.ReceiptRecord{}, fmt.Errorf("receipt %s: %w", o.name, err)
		}
		*o.dst = &cents
	}

	if err := r.Validate(); err != nil {
		return domain.ReceiptRecord{}, err
	}
	return r, nil
}

// TransactionFields is one statement row before parsing.
type TransactionFields struct {
	TransactionID string
	Merchant      string
	Amount        string
	Date          string
	Description   string
}

// Transaction builds a validated transaction record. Statement exports print
// card debits as negative figures, so the amount is folded to its magnitude.
func Transaction(f TransactionFields) (domain.TransactionRecord, error) {
	amount, err := Amount(f.Amount)
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("transaction %s amount: %w", f.TransactionID, err)
	}
	if amount < 0 {
		amount = -amount
	}
	date, err := Date(f.Date)
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("transaction %s date: %w", f.TransactionID, err)
	}

	t := domain.TransactionRecord{
		TransactionID:      strings.TrimSpace(f.TransactionID),
		Merchant:           f.Merchant,
		NormalizedMerchant: Vendor(f.Merchant),
		Amount:             amount,
		Date:               date,
		Description:        f.Description,
	}
	if err := t.Validate(); err != nil {
		return domain.TransactionRecord{}, err
	}
	return t, nil
}
