package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"receipt-diagnoser/internal/domain"
	"receipt-diagnoser/internal/normalize"
)

// statement is the shared January 2026 card statement.
var statement = []normalize.TransactionFields{
	{TransactionID: "TXN001", Merchant: "AMAZON.COM*RT4K21", Amount: "-89.97", Date: "2026-01-10"},
	{TransactionID: "TXN002", Merchant: "ELAGAVE*1847 CHATT TN", Amount: "-47.50", Date: "2026-01-12"},
	{TransactionID: "TXN003", Merchant: "STARBUCKS #14892", Amount: "-6.83", Date: "2026-01-14"},
	{TransactionID: "TXN004", Merchant: "THE HOME DEPOT #4821", Amount: "-234.67", Date: "2026-01-17"},
	{TransactionID: "TXN005", Merchant: "FASTENAL CO01 CHATT", Amount: "-182.59", Date: "2026-01-20"},
	{TransactionID: "TXN006", Merchant: "SHELL OIL 57442", Amount: "-61.20", Date: "2026-01-11"},
	{TransactionID: "TXN007", Merchant: "PUBLIX #1123", Amount: "-112.40", Date: "2026-01-13"},
	{TransactionID: "TXN008", Merchant: "SYSCO 4823847", Amount: "-1,245.00", Date: "2026-01-16"},
	{TransactionID: "TXN009", Merchant: "PP*JOHNDEEREFINAN", Amount: "-500.00", Date: "2026-01-19"},
	{TransactionID: "TXN010", Merchant: "AMZN MKTP US*2K4RF", Amount: "-34.99", Date: "2026-01-26"},
}

var receipts = map[string]normalize.ReceiptFields{
	"amazon": {
		Vendor: "Amazon.com", Total: "$89.97", Date: "2026-01-10", Tax: "5.97",
		ExtractionConfidence: 0.98,
	},
	"el_agave": {
		Vendor: "El Agave Mexican Restaurant", Total: "$47.50", Date: "01/12/2026", Tax: "3.50", Tip: "7.00",
		ExtractionConfidence: 0.95,
	},
	"starbucks": {
		Vendor: "Starbucks", Total: "$5.25", Date: "2026-01-14",
		ExtractionConfidence: 0.92,
	},
	"home_depot": {
		Vendor: "Home Depot", Total: "$234.67", Date: "2026-01-15", Tax: "15.35",
		ExtractionConfidence: 0.97,
	},
	"fastenal": {
		Vendor: "Fastenal", Total: "$178.23", Date: "2026-01-18",
		ExtractionConfidence: 0.72, ExtractionStatus: "low_confidence",
	},
	"bobs": {
		Vendor: "Bob's Local Hardware", Total: "$28.47", Date: "2026-01-22",
		ExtractionConfidence: 0.90,
	},
}

func fixtureTransactions(t *testing.T) []domain.TransactionRecord {
	t.Helper()
	out := make([]domain.TransactionRecord, 0, len(statement))
	for _, f := range statement {
		tx, err := normalize.Transaction(f)
		require.NoError(t, err)
		out = append(out, tx)
	}
	return out
}

func fixtureReceipt(t *testing.T, name string) domain.ReceiptRecord {
	t.Helper()
	f, ok := receipts[name]
	require.True(t, ok, "unknown receipt fixture %s", name)
	r, err := normalize.Receipt(f)
	require.NoError(t, err)
	return r
}

// requireInvariant asserts fn panics with *domain.InvariantViolation.
func requireInvariant(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected an invariant violation")
		_, ok := r.(*domain.InvariantViolation)
		require.True(t, ok, "panic value %T is not *domain.InvariantViolation", r)
	}()
	fn()
}
