package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"receipt-diagnoser/internal/config"
	"receipt-diagnoser/internal/gateway"
	"receipt-diagnoser/internal/usecase"
)

var version = "dev"

// app holds state shared by every subcommand of one root command.
type app struct {
	v       *viper.Viper
	cfgFile string
	profile string
	cfg     config.AppConfig
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:   "receiptdx",
		Short: "Explain why a receipt does or does not match a bank transaction",
		Long: `receiptdx scores every statement row against an extracted receipt, picks the
best candidate and labels the mismatch: vendor descriptor mismatch, settlement
delay, tip/tax variance, partial match or no match. Each label comes with the
evidence that produced it so a reviewer can confirm or reject it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/receiptdx/config.yaml)")
	flags.StringVar(&a.profile, "profile", "", "threshold profile from profiles.<name> in the config file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.Bool("cache", false, "reuse diagnoses from the fingerprint cache")
	flags.String("cache-path", "", "cache database path (default: ~/.cache/receiptdx/diagnoses.db)")

	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = a.v.BindPFlag("cache.enabled", flags.Lookup("cache"))
	_ = a.v.BindPFlag("cache.path", flags.Lookup("cache-path"))

	root.AddCommand(a.diagnoseCmd())
	root.AddCommand(a.batchCmd())
	root.AddCommand(a.thresholdsCmd())
	root.AddCommand(a.cacheCmd())
	root.AddCommand(versionCmd())
	return root
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	config.Configure(a.v)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(fmt.Sprintf("%s/.config/receiptdx", home))
		}
		a.v.AddConfigPath(".")
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := config.Load(a.v, a.profile)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.Logging); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.cfg = cfg
	slog.Debug("configuration loaded", "file", a.v.ConfigFileUsed(), "profile", cfg.Profile, "cache", cfg.Cache.Enabled)
	return nil
}

func setupLogging(c config.LoggingConfig) error {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", c.Level)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	switch c.Format {
	case "console":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// newUseCase wires the gateways and the engine. The returned func releases
// the cache, if one was opened.
func (a *app) newUseCase(ctx context.Context) (*usecase.DiagnosisUseCase, func(), error) {
	engine, err := usecase.NewEngine(a.cfg.Thresholds)
	if err != nil {
		return nil, nil, err
	}
	receipts, err := gateway.NewFileReceiptRepository()
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var cache usecase.DiagnosisCache
	if a.cfg.Cache.Enabled {
		c, err := gateway.NewSQLiteDiagnosisCache(ctx, a.cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		cache = c
		cleanup = func() { closeCache(c) }
	}

	uc := usecase.NewDiagnosisUseCase(receipts, gateway.NewCSVTransactionRepository(), cache, engine)
	return uc, cleanup, nil
}

func writeJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate JSON report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// The version must print even with a broken config file.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "receiptdx %s\n", version)
		},
	}
}
