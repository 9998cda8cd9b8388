package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"receipt-diagnoser/internal/domain"
)

// BatchOptions tunes DiagnoseBatch.
type BatchOptions struct {
	// Workers bounds concurrent diagnoses. Values below 1 mean one.
	Workers int
	// Progress, when set, is called once per finished receipt. Calls are serialized.
	Progress func(done, total int)
}

// DiagnoseBatch diagnoses many receipts against the same statement rows in parallel.
// Items keep the order of receiptPaths. A receipt that fails to load or
// validate is reported on its item; only context cancellation aborts the run.
func (uc *DiagnosisUseCase) DiagnoseBatch(ctx context.Context, receiptPaths, transactionsPaths []string, opts BatchOptions) (*domain.BatchReport, error) {
	runID := uuid.NewString()
	transactions, err := uc.transactions.GetTransactions(ctx, transactionsPaths)
	if err != nil {
		return nil, fmt.Errorf("could not get transactions: %w", err)
	}

	workers := max(opts.Workers, 1)
	slog.Info("starting batch", "run_id", runID, "receipts", len(receiptPaths), "workers", workers)

	items := make([]domain.BatchItem, len(receiptPaths))
	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range receiptPaths {
		i, path := i, path
		g.Go(func() error {
			report, err := uc.diagnoseAgainst(gctx, path, transactions)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				slog.Warn("receipt failed", "run_id", runID, "receipt", path, "error", err)
				items[i] = domain.BatchItem{ReceiptSource: path, Error: err.Error()}
			} else {
				items[i] = domain.BatchItem{ReceiptSource: path, Report: report}
			}

			mu.Lock()
			done++
			if opts.Progress != nil {
				opts.Progress(done, len(receiptPaths))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch %s aborted: %w", runID, err)
	}

	report := &domain.BatchReport{
		RunID:   runID,
		Summary: summarize(items),
		Items:   items,
	}
	slog.Info("batch complete",
		"run_id", runID,
		"diagnosed", report.Summary.Diagnosed,
		"failed", report.Summary.Failed,
		"cache_hits", report.Summary.CacheHits)
	return report, nil
}

func summarize(items []domain.BatchItem) domain.BatchSummary {
	s := domain.BatchSummary{
		TotalReceipts: len(items),
		LabelCounts:   make(map[domain.Label]int),
	}
	for _, item := range items {
		if item.Report == nil {
			s.Failed++
			continue
		}
		s.Diagnosed++
		if item.Report.Cached {
			s.CacheHits++
		}
		if item.Report.Diagnosis.IsCleanMatch() {
			s.CleanMatches++
		}
		if item.Report.Diagnosis.IsCompound() {
			s.CompoundMatches++
		}
		for _, l := range item.Report.Diagnosis.Labels {
			s.LabelCounts[l]++
		}
	}
	return s
}
