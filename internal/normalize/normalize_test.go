package normalize_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt-diagnoser/internal/domain"
	"receipt-diagnoser/internal/normalize"
)

func TestVendor(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty string", "", ""},
		{"whitespace only", "   ", ""},
		{"all caps", "STARBUCKS", "starbucks"},
		{"square prefix", "SQ *JOE'S PIZZA GRILL", "joes pizza grill"},
		{"paypal prefix", "PP*JOHNDEEREFINAN", "johndeerefinan"},
		{"toast prefix", "TST*GREENVILLE COFFEE", "greenville coffee"},
		{"amazon descriptor with txn code", "AMZN MKTP US*2K4RF83J0", "amazon"},
		{"descriptor cut at asterisk", "ELAGAVE*1847 CHATT TN", "elagave"},
		{"store number", "Starbucks #14892", "starbucks"},
		{"store number and alias", "THE HOME DEPOT #4821", "home depot"},
		{"space before store number", "TARGET # 2847", "target"},
		{"apostrophe joins letters", "McDonald's", "mcdonalds"},
		{"possessive", "Bob's Local Hardware", "bobs local hardware"},
		{"restaurant suffix", "El Agave Mexican Restaurant", "el agave mexican"},
		{"inc suffix", "Greenville Supply Inc", "greenville supply"},
		{"stacked suffixes", "ABC Services LLC", "abc"},
		{"dotted alias", "Amazon.com", "amazon"},
		{"short alias", "AMZN", "amazon"},
		{"sbux alias", "SBUX", "starbucks"},
		{"wmt alias", "WMT", "walmart"},
		{"hyphenated alias", "Chick-fil-A", "chick fil a"},
		{"alias inside descriptor", "POS DEBIT SBUX 14892", "starbucks"},
		{"alias must be a whole token", "MCDERMOTT PLUMBING", "mcdermott plumbing"},
		{"digits preserved", "SYSCO 4823847", "sysco 4823847"},
		{"co01 is not a suffix", "FASTENAL CO01 CHATT", "fastenal co01 chatt"},
		{"accents folded", "Café Crème", "cafe creme"},
		{"repeated tokens collapse", "Costco Costco Wholesale", "costco"},
		{"only noise", "Company LLC", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize.Vendor(tt.raw).String())
		})
	}
}

func TestVendor_Idempotent(t *testing.T) {
	inputs := []string{
		"El Agave Mexican Restaurant",
		"ELAGAVE*1847 CHATT TN",
		"AMZN MKTP US*2K4RF",
		"THE HOME DEPOT #4821",
		"Chick-fil-A",
		"x co x",
		"SQ *JOE'S PIZZA GRILL",
		"Crêperie du Marché Inc",
		"FASTENAL CO01 CHATT",
	}
	for _, raw := range inputs {
		once := normalize.Vendor(raw)
		twice := normalize.Vendor(once.String())
		assert.True(t, once.Equal(twice), "%q: %q then %q", raw, once, twice)
	}
}

func TestDate(t *testing.T) {
	want := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	valid := []string{
		"2026-01-15",
		"2026/01/15",
		"01/15/2026",
		"1/15/2026",
		"01/15/26",
		"Jan 15, 2026",
		"January 15, 2026",
		"jan 15 2026",
		"15 Jan 2026",
		"15-Jan-2026",
		"01-15-2026",
		"01/15/2026 14:23:05",
		"Jan 15, 2026 2:23 PM",
		"2026-01-15T14:23:05",
		"2026-01-15T14:23:05Z",
		"  2026-01-15  ",
	}
	for _, raw := range valid {
		t.Run(raw, func(t *testing.T) {
			got, err := normalize.Date(raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	invalid := []string{"", "   ", "not a date", "N/A", "2026", "20260115", "01/2026", "January 2026", "13/45/2026"}
	for _, raw := range invalid {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, err := normalize.Date(raw)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "dollar sign", raw: "$89.97", want: 8997},
		{name: "thousands separator", raw: "$1,247.83", want: 124783},
		{name: "euro sign", raw: "€47.50", want: 4750},
		{name: "pound sign", raw: "£234.67", want: 23467},
		{name: "surrounding whitespace", raw: " $89.97 ", want: 8997},
		{name: "plain integer", raw: "89", want: 8900},
		{name: "zero", raw: "0", want: 0},
		{name: "half rounds away from zero", raw: "47.505", want: 4751},
		{name: "long fraction", raw: "47.499999999", want: 4750},
		{name: "negative dollar", raw: "-$5.00", want: -500},
		{name: "accounting negative", raw: "($5.00)", want: -500},
		{name: "bank debit", raw: "-182.59", want: -18259},
		{name: "empty", raw: "", wantErr: true},
		{name: "missing marker", raw: "N/A", wantErr: true},
		{name: "words", raw: "five dollars", wantErr: true},
		{name: "currency only", raw: "$", wantErr: true},
		{name: "largest representable", raw: "92233720368547758.07", want: 9223372036854775807},
		{name: "largest representable debit", raw: "-92233720368547758.07", want: -9223372036854775807},
		{name: "one cent past int64", raw: "92233720368547758.08", wantErr: true},
		{name: "wraps to zero in int64", raw: "184467440737095516.16", wantErr: true},
		{name: "exponent overflow", raw: "1e30", wantErr: true},
		{name: "negative exponent overflow", raw: "-1e30", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalize.Amount(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$47.50", normalize.FormatCents(4750))
	assert.Equal(t, "$0.05", normalize.FormatCents(5))
	assert.Equal(t, "-$4.36", normalize.FormatCents(-436))
}

func TestReceipt(t *testing.T) {
	r, err := normalize.Receipt(normalize.ReceiptFields{
		Vendor:               "El Agave Mexican Restaurant",
		Total:                "$47.50",
		Date:                 "01/12/2026",
		Tax:                  "3.50",
		Tip:                  "7.00",
		ExtractionConfidence: 0.95,
	})
	require.NoError(t, err)
	assert.Equal(t, "el agave mexican", r.NormalizedVendor.String())
	assert.Equal(t, int64(4750), r.Total)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), r.Date)
	require.NotNil(t, r.Tax)
	assert.Equal(t, int64(350), *r.Tax)
	require.NotNil(t, r.Tip)
	assert.Equal(t, int64(700), *r.Tip)
	assert.Nil(t, r.Subtotal)
	assert.Equal(t, domain.ExtractionOK, r.ExtractionStatus)
	assert.True(t, r.HasTip())

	_, err = normalize.Receipt(normalize.ReceiptFields{Vendor: "Fastenal", Total: "-5", Date: "2026-01-18", ExtractionConfidence: 0.7})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = normalize.Receipt(normalize.ReceiptFields{Vendor: "Fastenal", Total: "5", Date: "2026-01-18", ExtractionConfidence: 1.4})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "receipt.extraction_confidence", verr.Field)

	_, err = normalize.Receipt(normalize.ReceiptFields{Vendor: "Fastenal", Total: "5", Date: "2026-01-18", ExtractionStatus: "blurry"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTransaction(t *testing.T) {
	tx, err := normalize.Transaction(normalize.TransactionFields{
		TransactionID: "TXN005",
		Merchant:      "FASTENAL CO01 CHATT",
		Amount:        "-182.59",
		Date:          "2026-01-20",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(18259), tx.Amount)
	assert.Equal(t, "fastenal co01 chatt", tx.NormalizedMerchant.String())

	_, err = normalize.Transaction(normalize.TransactionFields{TransactionID: " ", Merchant: "X", Amount: "1", Date: "2026-01-20"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = normalize.Transaction(normalize.TransactionFields{TransactionID: "TXN1", Merchant: "X", Amount: "1", Date: "someday"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = normalize.Transaction(normalize.TransactionFields{TransactionID: "TXN1", Merchant: "X", Amount: "-1e30", Date: "2026-01-20"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
