package gateway

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"receipt-diagnoser/internal/domain"
	"receipt-diagnoser/internal/normalize"
)

// Statement column names. description is optional.
const (
	colTransactionID = "transaction_id"
	colMerchant      = "merchant"
	colAmount        = "amount"
	colDate          = "date"
	colDescription   = "description"
)

var requiredColumns = []string{colTransactionID, colMerchant, colAmount, colDate}

// CSVTransactionRepository implements the TransactionRepository interface for CSV statements.
type CSVTransactionRepository struct{}

// NewCSVTransactionRepository creates a new repository instance.
func NewCSVTransactionRepository() *CSVTransactionRepository {
	return &CSVTransactionRepository{}
}

// GetTransactions reads and normalizes one or more statement CSVs and merges
// their rows in path order. Each row records the file it came from. Columns are
// located by header name, so their order does not matter. Any row that fails to
// parse fails the whole load, as does a transaction ID seen twice.
func (r *CSVTransactionRepository) GetTransactions(ctx context.Context, paths []string) ([]domain.TransactionRecord, error) {
	if len(paths) == 0 {
		return nil, domain.NewValidationError("statement.paths", paths, "at least one statement is required")
	}

	var allTransactions []domain.TransactionRecord
	seen := make(map[string]string)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		transactions, err := r.readStatement(path)
		if err != nil {
			return nil, err
		}
		for _, tx := range transactions {
			if first, dup := seen[tx.TransactionID]; dup {
				return nil, domain.NewValidationError("transaction.transaction_id", tx.TransactionID,
					fmt.Sprintf("appears in both %s and %s", first, tx.Source))
			}
			seen[tx.TransactionID] = tx.Source
		}
		allTransactions = append(allTransactions, transactions...)
	}
	return allTransactions, nil
}

func (r *CSVTransactionRepository) readStatement(path string) ([]domain.TransactionRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statement file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}
	index, err := headerIndex(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	source := filepath.Base(path)
	var transactions []domain.TransactionRecord
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record from %s: %w", path, err)
		}
		line, _ := reader.FieldPos(0)

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}
		tx, err := normalize.Transaction(normalize.TransactionFields{
			TransactionID: field(colTransactionID),
			Merchant:      field(colMerchant),
			Amount:        field(colAmount),
			Date:          field(colDate),
			Description:   field(colDescription),
		})
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		tx.Source = source
		transactions = append(transactions, tx)
	}

	slog.Debug("loaded statement", "path", path, "transactions", len(transactions))
	return transactions, nil
}

// headerIndex maps lowercased column names to their position.
func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := index[name]; dup {
			return nil, domain.NewValidationError("statement.header", name, "column appears more than once")
		}
		index[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, domain.NewValidationError("statement.header", col, "required column is missing")
		}
	}
	return index, nil
}
