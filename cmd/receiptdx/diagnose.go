package main

import (
	"github.com/spf13/cobra"
)

func (a *app) diagnoseCmd() *cobra.Command {
	var (
		receiptPath       string
		transactionsPaths []string
	)

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Diagnose one receipt against a statement",
		Long: `Score every statement row against the receipt and print a JSON report with
the selected transaction, the mismatch labels, the confidence and the evidence.
Repeat --transactions to search several accounts at once.`,
		Example: `  receiptdx diagnose --receipt receipts/el_agave.json --transactions statements/january.csv
  receiptdx diagnose --receipt r.yaml --transactions checking.csv --transactions card.csv --profile restaurants`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc, cleanup, err := a.newUseCase(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := uc.Diagnose(cmd.Context(), receiptPath, transactionsPaths)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&receiptPath, "receipt", "", "extracted receipt file (.json, .yaml, .yml)")
	cmd.Flags().StringArrayVar(&transactionsPaths, "transactions", nil, "statement CSV file (repeatable)")
	_ = cmd.MarkFlagRequired("receipt")
	_ = cmd.MarkFlagRequired("transactions")
	return cmd
}
