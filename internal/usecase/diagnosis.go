package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"receipt-diagnoser/internal/config"
	"receipt-diagnoser/internal/domain"
)

// Engine pairs a Scorer and a Classifier built from one threshold profile.
type Engine struct {
	cfg        config.Thresholds
	scorer     *Scorer
	classifier *Classifier
}

// NewEngine validates cfg once and builds both stages from it.
func NewEngine(cfg config.Thresholds) (*Engine, error) {
	scorer, err := NewScorer(cfg)
	if err != nil {
		return nil, err
	}
	classifier, err := NewClassifier(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, scorer: scorer, classifier: classifier}, nil
}

// Run scores and classifies. The same inputs always produce the same output.
func (e *Engine) Run(receipt domain.ReceiptRecord, transactions []domain.TransactionRecord) (domain.Diagnosis, []domain.MatchCandidate, error) {
	candidates, err := e.scorer.Score(receipt, transactions)
	if err != nil {
		return domain.Diagnosis{}, nil, err
	}
	return e.classifier.Diagnose(receipt, candidates), candidates, nil
}

// Fingerprint identifies a (receipt, transactions, thresholds) input. Neither
// row order nor the file a row was loaded from changes the fingerprint.
func (e *Engine) Fingerprint(receipt domain.ReceiptRecord, transactions []domain.TransactionRecord) string {
	rows := make([]domain.TransactionRecord, len(transactions))
	copy(rows, transactions)
	for i := range rows {
		rows[i].Source = ""
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TransactionID < rows[j].TransactionID })

	payload, err := json.Marshal(struct {
		Receipt      domain.ReceiptRecord       `json:"receipt"`
		Transactions []domain.TransactionRecord `json:"transactions"`
		Thresholds   config.Thresholds          `json:"thresholds"`
	}{receipt, rows, e.cfg})
	if err != nil {
		domain.Invariantf("fingerprint payload does not encode: %v", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// DiagnosisUseCase loads inputs through repositories, runs the engine and
// consults the cache.
type DiagnosisUseCase struct {
	receipts     ReceiptRepository
	transactions TransactionRepository
	cache        DiagnosisCache
	engine       *Engine
}

// NewDiagnosisUseCase creates a new instance of the usecase. cache may be nil.
func NewDiagnosisUseCase(receipts ReceiptRepository, transactions TransactionRepository, cache DiagnosisCache, engine *Engine) *DiagnosisUseCase {
	return &DiagnosisUseCase{
		receipts:     receipts,
		transactions: transactions,
		cache:        cache,
		engine:       engine,
	}
}

// Diagnose explains why one receipt does or does not match the rows of one or
// more statements.
func (uc *DiagnosisUseCase) Diagnose(ctx context.Context, receiptPath string, transactionsPaths []string) (*domain.DiagnosisReport, error) {
	transactions, err := uc.transactions.GetTransactions(ctx, transactionsPaths)
	if err != nil {
		return nil, fmt.Errorf("could not get transactions: %w", err)
	}
	return uc.diagnoseAgainst(ctx, receiptPath, transactions)
}

func (uc *DiagnosisUseCase) diagnoseAgainst(ctx context.Context, receiptPath string, transactions []domain.TransactionRecord) (*domain.DiagnosisReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	receipt, err := uc.receipts.GetReceipt(ctx, receiptPath)
	if err != nil {
		return nil, fmt.Errorf("could not get receipt %s: %w", receiptPath, err)
	}

	fingerprint := uc.engine.Fingerprint(receipt, transactions)
	if report, ok := uc.cached(ctx, fingerprint); ok {
		report.ReceiptSource = receiptPath
		slog.Info("diagnosis served from cache", "receipt", receiptPath, "labels", report.Diagnosis.LabelSummary)
		return report, nil
	}

	diagnosis, candidates, err := uc.engine.Run(receipt, transactions)
	if err != nil {
		return nil, fmt.Errorf("could not diagnose receipt %s: %w", receiptPath, err)
	}
	if candidates == nil {
		candidates = []domain.MatchCandidate{}
	}
	report := &domain.DiagnosisReport{
		ReceiptSource: receiptPath,
		Receipt:       receipt,
		Diagnosis:     diagnosis,
		Candidates:    candidates,
		Fingerprint:   fingerprint,
	}

	if uc.cache != nil {
		if err := uc.cache.Put(ctx, fingerprint, report); err != nil {
			slog.Warn("failed to cache diagnosis", "receipt", receiptPath, "error", err)
		}
	}
	slog.Info("diagnosed receipt",
		"receipt", receiptPath,
		"labels", diagnosis.LabelSummary,
		"confidence", diagnosis.Confidence,
		"candidates", len(candidates))
	return report, nil
}

// cached returns a copy of the stored report. Cache failures are logged and
// treated as a miss.
func (uc *DiagnosisUseCase) cached(ctx context.Context, fingerprint string) (*domain.DiagnosisReport, bool) {
	if uc.cache == nil {
		return nil, false
	}
	report, ok, err := uc.cache.Get(ctx, fingerprint)
	if err != nil {
		slog.Warn("diagnosis cache lookup failed", "fingerprint", fingerprint, "error", err)
		return nil, false
	}
	if !ok || report == nil {
		return nil, false
	}
	out := *report
	out.Cached = true
	return &out, true
}
