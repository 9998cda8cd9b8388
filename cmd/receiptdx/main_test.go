package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt-diagnoser/internal/config"
	"receipt-diagnoser/internal/domain"
)

const statementCSV = `transaction_id,merchant,amount,date,description
TXN001,AMAZON.COM*RT4K21,-89.97,2026-01-10,
TXN002,ELAGAVE*1847 CHATT TN,-47.50,2026-01-12,
TXN003,STARBUCKS #14892,-6.83,2026-01-14,
TXN004,THE HOME DEPOT #4821,-234.67,2026-01-17,
TXN005,FASTENAL CO01 CHATT,-182.59,2026-01-20,
`

const cardCSV = `transaction_id,merchant,amount,date
CC-1,SHELL OIL 57442,-61.20,2026-01-11
`

const configYAML = `logging:
  level: warn
thresholds:
  min_match_confidence: 30
profiles:
  restaurants:
    tip_tax_variance_ceiling_pct: 35
`

// workspace writes a config, a statement and two receipts into a temp dir.
func workspace(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	files := map[string]string{
		"config.yaml":    configYAML,
		"statement.csv":  statementCSV,
		"card.csv":       cardCSV,
		"shell.json":     `{"vendor": "Shell", "total": "61.20", "date": "2026-01-11"}`,
		"starbucks.json": `{"vendor": "Starbucks", "total": "$5.25", "date": "2026-01-14", "extraction_confidence": 0.92}`,
		"home_depot.yaml": "vendor: Home Depot\ntotal: 234.67\ndate: \"2026-01-15\"\n" +
			"tax: 15.35\nextraction_confidence: 0.97\n",
		"broken.json": `{"vendor": "Nobody"}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDiagnoseCommand(t *testing.T) {
	dir := workspace(t)
	cfg := filepath.Join(dir, "config.yaml")
	statement := filepath.Join(dir, "statement.csv")
	receipt := filepath.Join(dir, "starbucks.json")

	tests := []struct {
		name       string
		args       []string
		wantLabels []domain.Label
	}{
		{
			name:       "default thresholds",
			args:       []string{"diagnose", "--config", cfg, "--receipt", receipt, "--transactions", statement},
			wantLabels: []domain.Label{domain.LabelPartialMatch},
		},
		{
			name:       "restaurant profile",
			args:       []string{"diagnose", "--config", cfg, "--profile", "restaurants", "--receipt", receipt, "--transactions", statement},
			wantLabels: []domain.Label{domain.LabelTipTaxVariance},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)

			var report domain.DiagnosisReport
			require.NoError(t, json.Unmarshal([]byte(out), &report))
			assert.Equal(t, tt.wantLabels, report.Diagnosis.Labels)
			require.NotNil(t, report.Diagnosis.TopCandidate)
			assert.Equal(t, "TXN003", report.Diagnosis.TopCandidate.Transaction.TransactionID)
			assert.Equal(t, 65.0, report.Diagnosis.Confidence)
		})
	}
}

func TestDiagnoseCommand_Errors(t *testing.T) {
	dir := workspace(t)
	cfg := filepath.Join(dir, "config.yaml")
	statement := filepath.Join(dir, "statement.csv")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing flags", []string{"diagnose", "--config", cfg}, "required flag"},
		{"invalid receipt", []string{"diagnose", "--config", cfg, "--receipt", filepath.Join(dir, "broken.json"), "--transactions", statement}, "schema"},
		{"unknown profile", []string{"diagnose", "--config", cfg, "--profile", "nope", "--receipt", "r.json", "--transactions", statement}, "no such profile"},
		{"bad log level", []string{"diagnose", "--config", cfg, "--log-level", "loud", "--receipt", "r.json", "--transactions", statement}, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDiagnoseCommand_SeveralStatements(t *testing.T) {
	dir := workspace(t)
	cfg := filepath.Join(dir, "config.yaml")
	statement := filepath.Join(dir, "statement.csv")
	card := filepath.Join(dir, "card.csv")
	receipt := filepath.Join(dir, "shell.json")

	out, err := execute(t, "diagnose", "--config", cfg, "--receipt", receipt,
		"--transactions", statement, "--transactions", card)
	require.NoError(t, err)

	var report domain.DiagnosisReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.NotNil(t, report.Diagnosis.TopCandidate)
	assert.Equal(t, "CC-1", report.Diagnosis.TopCandidate.Transaction.TransactionID)
	assert.Equal(t, "card.csv", report.Diagnosis.TopCandidate.Transaction.Source)

	out, err = execute(t, "diagnose", "--config", cfg, "--receipt", receipt, "--transactions", statement)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	for _, c := range report.Candidates {
		assert.Equal(t, "statement.csv", c.Transaction.Source)
	}

	_, err = execute(t, "diagnose", "--config", cfg, "--receipt", receipt,
		"--transactions", statement, "--transactions", statement)
	assert.ErrorContains(t, err, "appears in both statement.csv and statement.csv")
}

func TestBatchCommand(t *testing.T) {
	dir := workspace(t)
	out, err := execute(t, "batch",
		"--config", filepath.Join(dir, "config.yaml"),
		"--transactions", filepath.Join(dir, "statement.csv"),
		"--workers", "2",
		"--no-progress",
		"--cache", "--cache-path", filepath.Join(dir, "cache", "diagnoses.db"),
		filepath.Join(dir, "starbucks.json"),
		filepath.Join(dir, "broken.json"),
		filepath.Join(dir, "home_depot.yaml"),
	)
	require.NoError(t, err)

	var report domain.BatchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Summary.TotalReceipts)
	assert.Equal(t, 2, report.Summary.Diagnosed)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, 0, report.Summary.CacheHits)
	assert.NotEmpty(t, report.Items[1].Error)
	assert.Equal(t, []domain.Label{domain.LabelSettlementDelay}, report.Items[2].Report.Diagnosis.Labels)

	out, err = execute(t, "batch",
		"--config", filepath.Join(dir, "config.yaml"),
		"--transactions", filepath.Join(dir, "statement.csv"),
		"--no-progress",
		"--cache", "--cache-path", filepath.Join(dir, "cache", "diagnoses.db"),
		filepath.Join(dir, "starbucks.json"),
		filepath.Join(dir, "home_depot.yaml"),
	)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Summary.CacheHits, "second run is served from the cache")
}

func TestCacheCommands(t *testing.T) {
	dir := workspace(t)
	cfg := filepath.Join(dir, "config.yaml")
	cachePath := filepath.Join(dir, "cache", "diagnoses.db")

	_, err := execute(t, "batch", "--config", cfg, "--no-progress",
		"--transactions", filepath.Join(dir, "statement.csv"),
		"--cache", "--cache-path", cachePath,
		filepath.Join(dir, "starbucks.json"), filepath.Join(dir, "home_depot.yaml"))
	require.NoError(t, err)

	out, err := execute(t, "cache", "stats", "--config", cfg, "--cache-path", cachePath)
	require.NoError(t, err)
	var stats struct {
		Path    string `json:"path"`
		Entries int    `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, cachePath, stats.Path)
	assert.Equal(t, 2, stats.Entries)

	out, err = execute(t, "cache", "purge", "--config", cfg, "--cache-path", cachePath, "--older-than", "24h")
	require.NoError(t, err)
	var purged struct {
		Removed   int64 `json:"removed"`
		Remaining int   `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &purged))
	assert.Equal(t, int64(0), purged.Removed, "fresh entries survive an age-limited purge")
	assert.Equal(t, 2, purged.Remaining)

	out, err = execute(t, "cache", "purge", "--config", cfg, "--cache-path", cachePath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &purged))
	assert.Equal(t, int64(2), purged.Removed)
	assert.Equal(t, 0, purged.Remaining)

	_, err = execute(t, "cache", "purge", "--config", cfg, "--cache-path", cachePath, "--older-than", "-1h")
	assert.ErrorContains(t, err, "invalid --older-than")
}

func TestThresholdsCommand(t *testing.T) {
	dir := workspace(t)
	cfg := filepath.Join(dir, "config.yaml")

	out, err := execute(t, "thresholds", "--config", cfg, "--profile", "restaurants", "--format", "json")
	require.NoError(t, err)

	var got struct {
		Profile    string            `json:"profile"`
		Thresholds config.Thresholds `json:"thresholds"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "restaurants", got.Profile)
	assert.Equal(t, 35.0, got.Thresholds.TipTaxVarianceCeilingPct)
	assert.Equal(t, 80.0, got.Thresholds.VendorMismatchBelow)

	out, err = execute(t, "thresholds", "--config", cfg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# profile: default\n"))
	assert.Contains(t, out, "tip_tax_variance_ceiling_pct: 25")

	_, err = execute(t, "thresholds", "--config", cfg, "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--config", "/does/not/exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, "receiptdx dev\n", out)
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		wantErr bool
	}{
		{"console info", config.LoggingConfig{Level: "info", Format: "console"}, false},
		{"json debug", config.LoggingConfig{Level: "debug", Format: "json"}, false},
		{"bad level", config.LoggingConfig{Level: "trace", Format: "console"}, true},
		{"bad format", config.LoggingConfig{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := setupLogging(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
