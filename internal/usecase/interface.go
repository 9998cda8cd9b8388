package usecase

import (
	"context"

	"receipt-diagnoser/internal/domain"
)

// TransactionRepository loads bank or card statements and merges their rows.
// The usecase layer depends on these interfaces, not on concrete implementations.
//
//go:generate mockgen -destination=mocks/mock_repository.go -source=interface.go
type TransactionRepository interface {
	GetTransactions(ctx context.Context, paths []string) ([]domain.TransactionRecord, error)
}

// ReceiptRepository loads one extracted receipt record.
type ReceiptRepository interface {
	GetReceipt(ctx context.Context, path string) (domain.ReceiptRecord, error)
}

// DiagnosisCache stores finished reports by input fingerprint.
type DiagnosisCache interface {
	Get(ctx context.Context, fingerprint string) (*domain.DiagnosisReport, bool, error)
	Put(ctx context.Context, fingerprint string, report *domain.DiagnosisReport) error
}
