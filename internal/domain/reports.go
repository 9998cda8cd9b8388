package domain

import (
	"sort"
	"strings"
)

// Label is one mismatch archetype.
type Label string

const (
	LabelVendorMismatch  Label = "VENDOR_MISMATCH"
	LabelSettlementDelay Label = "SETTLEMENT_DELAY"
	LabelTipTaxVariance  Label = "TIP_TAX_VARIANCE"
	LabelPartialMatch    Label = "PARTIAL_MATCH"
	LabelNoMatch         Label = "NO_MATCH"
)

// canonicalOrder is the rendering order for labels: vendor, settlement,
// tip/tax, partial, no-match.
var canonicalOrder = map[Label]int{
	LabelVendorMismatch:  0,
	LabelSettlementDelay: 1,
	LabelTipTaxVariance:  2,
	LabelPartialMatch:    3,
	LabelNoMatch:         4,
}

var displayNames = map[Label]string{
	LabelVendorMismatch:  "Vendor Descriptor Mismatch",
	LabelSettlementDelay: "Settlement Delay",
	LabelTipTaxVariance:  "Tip/Tax Variance",
	LabelPartialMatch:    "Partial Match",
	LabelNoMatch:         "No Match Found",
}

// DisplayName is the reviewer-facing name of the label.
func (l Label) DisplayName() string {
	if name, ok := displayNames[l]; ok {
		return name
	}
	return string(l)
}

// SortLabels orders labels canonically and drops duplicates.
func SortLabels(labels []Label) []Label {
	seen := make(map[Label]bool, len(labels))
	out := make([]Label, 0, len(labels))
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return canonicalOrder[out[i]] < canonicalOrder[out[j]]
	})
	return out
}

// LabelSummary renders labels as a single line, "Clean Match" when empty.
func LabelSummary(labels []Label) string {
	if len(labels) == 0 {
		return "Clean Match"
	}
	names := make([]string, 0, len(labels))
	for _, l := range SortLabels(labels) {
		names = append(names, l.DisplayName())
	}
	return strings.Join(names, " + ")
}

// MatchCandidate is a transaction scored against one receipt.
type MatchCandidate struct {
	Transaction       TransactionRecord `json:"transaction"`
	VendorSimilarity  float64           `json:"vendor_similarity_score"`
	AmountDeltaCents  int64             `json:"amount_delta_cents"`
	AmountDeltaPct    float64           `json:"amount_delta_pct"`
	DateDeltaDays     int               `json:"date_delta_days"`
	AmountScore       float64           `json:"amount_score"`
	DateScore         float64           `json:"date_score"`
	OverallConfidence float64           `json:"overall_confidence"`
	// Evidence holds one line per dimension: vendor, amount, date.
	Evidence []string `json:"evidence"`
}

// AbsDateDeltaDays is |DateDeltaDays|.
func (c MatchCandidate) AbsDateDeltaDays() int {
	if c.DateDeltaDays < 0 {
		return -c.DateDeltaDays
	}
	return c.DateDeltaDays
}

// Diagnosis is the classifier's verdict for one (receipt, transaction set) pair.
type Diagnosis struct {
	TopCandidate *MatchCandidate `json:"top_candidate"`
	Labels       []Label         `json:"labels"`
	Confidence   float64         `json:"confidence"`
	LabelSummary string          `json:"label_summary"`
	Evidence     []string        `json:"evidence"`
	RunnerUps    int             `json:"runner_ups"`
}

// HasLabel reports whether l was assigned.
func (d Diagnosis) HasLabel(l Label) bool {
	for _, got := range d.Labels {
		if got == l {
			return true
		}
	}
	return false
}

// IsMatch reports whether a candidate was selected.
func (d Diagnosis) IsMatch() bool {
	return d.TopCandidate != nil && !d.HasLabel(LabelNoMatch)
}

// IsCleanMatch reports a selected candidate with no archetype.
func (d Diagnosis) IsCleanMatch() bool {
	return d.TopCandidate != nil && len(d.Labels) == 0
}

// IsCompound reports more than one archetype at once.
func (d Diagnosis) IsCompound() bool { return len(d.Labels) > 1 }

// DiagnosisReport is the per-receipt output handed to formatting and review consumers.
type DiagnosisReport struct {
	ReceiptSource string           `json:"receipt_source"`
	Receipt       ReceiptRecord    `json:"receipt"`
	Diagnosis     Diagnosis        `json:"diagnosis"`
	Candidates    []MatchCandidate `json:"candidates"`
	Fingerprint   string           `json:"fingerprint"`
	Cached        bool             `json:"cached"`
}

// BatchItem is one receipt's outcome inside a batch run.
type BatchItem struct {
	ReceiptSource string           `json:"receipt_source"`
	Report        *DiagnosisReport `json:"report,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// BatchSummary counts outcomes across a batch.
type BatchSummary struct {
	TotalReceipts   int           `json:"total_receipts"`
	Diagnosed       int           `json:"diagnosed"`
	Failed          int           `json:"failed"`
	CleanMatches    int           `json:"clean_matches"`
	CompoundMatches int           `json:"compound_matches"`
	CacheHits       int           `json:"cache_hits"`
	LabelCounts     map[Label]int `json:"label_counts"`
}

// BatchReport is the top-level structure for a batch run's JSON output.
type BatchReport struct {
	RunID   string       `json:"run_id"`
	Summary BatchSummary `json:"summary"`
	Items   []BatchItem  `json:"items"`
}
