package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"receipt-diagnoser/internal/domain"
	"receipt-diagnoser/internal/normalize"
)

// receiptSchema is the structural contract for extracted receipt files.
// Amounts may be printed strings ("$47.50") or bare numbers.
const receiptSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["vendor", "total", "date"],
  "properties": {
    "vendor": {"type": "string", "minLength": 1},
    "total": {"type": ["string", "number"]},
    "date": {"type": "string", "minLength": 1},
    "tax": {"type": ["string", "number", "null"]},
    "tip": {"type": ["string", "number", "null"]},
    "subtotal": {"type": ["string", "number", "null"]},
    "extraction_confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "extraction_status": {"type": "string", "enum": ["ok", "low_confidence", "failed", ""]}
  }
}`

const receiptSchemaURL = "receipt.schema.json"

// receiptFile mirrors the on-disk receipt layout.
type receiptFile struct {
	Vendor               string   `json:"vendor"`
	Total                amount   `json:"total"`
	Date                 string   `json:"date"`
	Tax                  amount   `json:"tax"`
	Tip                  amount   `json:"tip"`
	Subtotal             amount   `json:"subtotal"`
	ExtractionConfidence *float64 `json:"extraction_confidence"`
	ExtractionStatus     string   `json:"extraction_status"`
}

// amount accepts either a JSON string or a JSON number and keeps its text.
type amount string

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amount(s)
		return nil
	}
	*a = amount(b)
	return nil
}

// FileReceiptRepository implements the ReceiptRepository interface for JSON and YAML files.
type FileReceiptRepository struct {
	schema *jsonschema.Schema
}

// NewFileReceiptRepository compiles the receipt schema and returns a repository.
func NewFileReceiptRepository() (*FileReceiptRepository, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(receiptSchemaURL, strings.NewReader(receiptSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(receiptSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &FileReceiptRepository{schema: schema}, nil
}

// GetReceipt reads one receipt file, checks it against the schema and
// normalizes it. A missing extraction_confidence is read as fully confident.
func (r *FileReceiptRepository) GetReceipt(ctx context.Context, path string) (domain.ReceiptRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.ReceiptRecord{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.ReceiptRecord{}, fmt.Errorf("failed to read receipt file %s: %w", path, err)
	}

	data, err := toJSON(path, raw)
	if err != nil {
		return domain.ReceiptRecord{}, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.ReceiptRecord{}, domain.NewValidationError("receipt", path, "is not valid JSON: "+err.Error())
	}
	if err := r.schema.Validate(doc); err != nil {
		return domain.ReceiptRecord{}, domain.NewValidationError("receipt", path, "does not match schema: "+err.Error())
	}

	var f receiptFile
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.ReceiptRecord{}, fmt.Errorf("failed to decode receipt %s: %w", path, err)
	}
	confidence := 1.0
	if f.ExtractionConfidence != nil {
		confidence = *f.ExtractionConfidence
	}

	receipt, err := normalize.Receipt(normalize.ReceiptFields{
		Vendor:               f.Vendor,
		Total:                string(f.Total),
		Date:                 f.Date,
		Tax:                  string(f.Tax),
		Tip:                  string(f.Tip),
		Subtotal:             string(f.Subtotal),
		ExtractionConfidence: confidence,
		ExtractionStatus:     f.ExtractionStatus,
	})
	if err != nil {
		return domain.ReceiptRecord{}, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("loaded receipt", "path", path, "vendor", receipt.NormalizedVendor.String())
	return receipt, nil
}

// toJSON returns raw as JSON bytes, converting YAML by file extension.
func toJSON(path string, raw []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return raw, nil
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, domain.NewValidationError("receipt", path, "is not valid YAML: "+err.Error())
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, domain.NewValidationError("receipt", path, "cannot be represented as JSON: "+err.Error())
		}
		return data, nil
	default:
		return nil, domain.NewValidationError("receipt", path, "unsupported file extension, want .json, .yaml or .yml")
	}
}
