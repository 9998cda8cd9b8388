package domain

import (
	"fmt"
	"strings"
	"time"
)

// ExtractionStatus reports how the upstream extractor fared on a receipt.
type ExtractionStatus string

const (
	ExtractionOK            ExtractionStatus = "ok"
	ExtractionLowConfidence ExtractionStatus = "low_confidence"
	ExtractionFailed        ExtractionStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s ExtractionStatus) Valid() bool {
	switch s {
	case ExtractionOK, ExtractionLowConfidence, ExtractionFailed:
		return true
	}
	return false
}

// NormalizedVendor is the canonical token form of a vendor or bank descriptor.
// Two vendor strings are only ever compared through this form.
type NormalizedVendor struct {
	tokens []string
}

// NewNormalizedVendor builds a vendor from already-canonical tokens.
// Empty tokens and repeats are dropped; order of first appearance is kept.
func NewNormalizedVendor(tokens []string) NormalizedVendor {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return NormalizedVendor{tokens: out}
}

// Tokens returns a copy of the ordered token set.
func (v NormalizedVendor) Tokens() []string {
	out := make([]string, len(v.tokens))
	copy(out, v.tokens)
	return out
}

func (v NormalizedVendor) String() string { return strings.Join(v.tokens, " ") }

func (v NormalizedVendor) IsEmpty() bool { return len(v.tokens) == 0 }

// Equal compares token sequences.
func (v NormalizedVendor) Equal(other NormalizedVendor) bool {
	if len(v.tokens) != len(other.tokens) {
		return false
	}
	for i := range v.tokens {
		if v.tokens[i] != other.tokens[i] {
			return false
		}
	}
	return true
}

func (v NormalizedVendor) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *NormalizedVendor) UnmarshalText(b []byte) error {
	*v = NewNormalizedVendor(strings.Fields(string(b)))
	return nil
}

// ReceiptRecord is a structurally validated receipt handed over by the extractor.
// Amounts are integer cents.
type ReceiptRecord struct {
	Vendor               string           `json:"vendor"`
	NormalizedVendor     NormalizedVendor `json:"normalized_vendor"`
	Total                int64            `json:"total"`
	Date                 time.Time        `json:"date"`
	Tax                  *int64           `json:"tax,omitempty"`
	Tip                  *int64           `json:"tip,omitempty"`
	Subtotal             *int64           `json:"subtotal,omitempty"`
	ExtractionConfidence float64          `json:"extraction_confidence"`
	ExtractionStatus     ExtractionStatus `json:"extraction_status"`
}

// HasTip reports whether the receipt carries a non-zero tip.
func (r ReceiptRecord) HasTip() bool { return r.Tip != nil && *r.Tip > 0 }

// HasTax reports whether the receipt carries a non-zero tax line.
func (r ReceiptRecord) HasTax() bool { return r.Tax != nil && *r.Tax > 0 }

// Validate checks the record's structural invariants.
func (r ReceiptRecord) Validate() error {
	switch {
	case strings.TrimSpace(r.Vendor) == "":
		return NewValidationError("receipt.vendor", r.Vendor, "is required")
	case r.Total < 0:
		return NewValidationError("receipt.total", r.Total, "must not be negative")
	case r.Date.IsZero():
		return NewValidationError("receipt.date", r.Date, "is required")
	case r.ExtractionConfidence < 0 || r.ExtractionConfidence > 1:
		return NewValidationError("receipt.extraction_confidence", r.ExtractionConfidence, "must be within 0..1")
	case !r.ExtractionStatus.Valid():
		return NewValidationError("receipt.extraction_status", r.ExtractionStatus, "must be ok, low_confidence or failed")
	}
	optional := []struct {
		name  string
		value *int64
	}{{"tax", r.Tax}, {"tip", r.Tip}, {"subtotal", r.Subtotal}}
	for _, o := range optional {
		if o.value != nil && *o.value < 0 {
			return NewValidationError("receipt."+o.name, *o.value, "must not be negative")
		}
	}
	return nil
}

// TransactionRecord is one bank or card statement row.
type TransactionRecord struct {
	TransactionID      string           `json:"transaction_id"`
	Merchant           string           `json:"merchant"`
	NormalizedMerchant NormalizedVendor `json:"normalized_merchant"`
	Amount             int64            `json:"amount"`
	Date               time.Time        `json:"date"`
	Description        string           `json:"description,omitempty"`
	// Source is the statement file the row was loaded from.
	Source string `json:"source,omitempty"`
}

// Validate checks the row's structural invariants.
func (t TransactionRecord) Validate() error {
	switch {
	case strings.TrimSpace(t.TransactionID) == "":
		return NewValidationError("transaction.transaction_id", t.TransactionID, "is required")
	case t.Amount < 0:
		return NewValidationError("transaction.amount", t.Amount, fmt.Sprintf("must not be negative (row %s)", t.TransactionID))
	case t.Date.IsZero():
		return NewValidationError("transaction.date", t.Date, fmt.Sprintf("is required (row %s)", t.TransactionID))
	}
	return nil
}

// CalendarDate truncates t to midnight UTC of its own calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of whole calendar days from -> to.
func DaysBetween(from, to time.Time) int {
	return int(CalendarDate(to).Sub(CalendarDate(from)).Hours() / 24)
}
