package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"receipt-diagnoser/internal/usecase"
)

func (a *app) batchCmd() *cobra.Command {
	var (
		transactionsPaths []string
		noProgress        bool
	)

	cmd := &cobra.Command{
		Use:   "batch RECEIPT...",
		Short: "Diagnose many receipts against one statement",
		Long: `Diagnose every receipt file against the same statement in parallel and print a
JSON batch report. A receipt that cannot be read is reported on its own item
and does not stop the run.`,
		Example: `  receiptdx batch --transactions statements/january.csv receipts/*.json
  receiptdx batch --transactions checking.csv --transactions card.csv --workers 8 --cache r1.json r2.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, cleanup, err := a.newUseCase(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			opts := usecase.BatchOptions{Workers: a.cfg.Batch.Workers}
			if !noProgress {
				bar := newProgressBar(cmd.ErrOrStderr(), len(args))
				opts.Progress = func(_, _ int) {
					if err := bar.Add(1); err != nil {
						slog.Warn("Failed to update progress bar", "error", err)
					}
				}
			}

			report, err := uc.DiagnoseBatch(cmd.Context(), args, transactionsPaths, opts)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.Summary.Failed > 0 {
				slog.Warn("some receipts could not be diagnosed",
					"failed", report.Summary.Failed,
					"total", report.Summary.TotalReceipts)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&transactionsPaths, "transactions", nil, "statement CSV file (repeatable)")
	cmd.Flags().Int("workers", 4, "receipts diagnosed in parallel")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not draw a progress bar on stderr")
	_ = cmd.MarkFlagRequired("transactions")
	_ = a.v.BindPFlag("batch.workers", cmd.Flags().Lookup("workers"))
	return cmd
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Diagnosing receipts..."),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}
