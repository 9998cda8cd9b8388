package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"receipt-diagnoser/internal/gateway"
)

func (a *app) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or prune the diagnosis cache",
		Long: `Operate on the SQLite cache at cache.path (or --cache-path). These commands
work whether or not caching is enabled for diagnose and batch.`,
	}
	cmd.AddCommand(a.cacheStatsCmd())
	cmd.AddCommand(a.cachePurgeCmd())
	return cmd
}

func (a *app) cacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print how many diagnoses are cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := gateway.NewSQLiteDiagnosisCache(cmd.Context(), a.cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer closeCache(cache)

			n, err := cache.Len(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"path":    a.cfg.Cache.Path,
				"entries": n,
			})
		},
	}
}

func (a *app) cachePurgeCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:     "purge",
		Short:   "Delete cached diagnoses older than a given age",
		Example: `  receiptdx cache purge --older-than 720h`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan < 0 {
				return fmt.Errorf("invalid --older-than: %s (must not be negative)", olderThan)
			}
			cache, err := gateway.NewSQLiteDiagnosisCache(cmd.Context(), a.cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer closeCache(cache)

			cutoff := time.Now().Add(-olderThan)
			removed, err := cache.Purge(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			remaining, err := cache.Len(cmd.Context())
			if err != nil {
				return err
			}
			slog.Info("purged diagnosis cache", "path", a.cfg.Cache.Path, "cutoff", cutoff.UTC(), "removed", removed)
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"removed":   removed,
				"remaining": remaining,
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "only purge entries older than this (0 purges everything)")
	return cmd
}

func closeCache(c *gateway.SQLiteDiagnosisCache) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close diagnosis cache", "error", err)
	}
}
