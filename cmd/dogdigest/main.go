package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"DogDigest/internal/app"
	"DogDigest/internal/config"
	"DogDigest/internal/logging"
)

type cliFlags struct {
	configPath string
	dryRun     bool
	style      string
	timeout    time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:          "dogdigest",
		Short:        "E-mail a digest of newly listed adoptable dogs",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (or set DOG_DIGEST_CONFIG)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, filter, rank and deliver one digest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDigest(cmd, flags)
		},
	}
	runCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the digest instead of e-mailing it")
	runCmd.Flags().StringVar(&flags.style, "style", "auto", "Terminal style for --dry-run (auto, dark, light, notty)")
	runCmd.Flags().DurationVar(&flags.timeout, "timeout", 10*time.Minute, "Upper bound for the whole run")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and print the search plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return checkConfig(cmd, flags)
		},
	}
	checkCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Skip delivery settings during validation")

	rootCmd.AddCommand(runCmd, checkCmd)
	return rootCmd
}

func runDigest(cmd *cobra.Command, flags *cliFlags) error {
	cfg := config.Load(flags.configPath)
	if err := cfg.Validate(flags.dryRun); err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level)

	ctx := cmd.Context()
	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	application, err := app.New(ctx, cfg, logger, app.Options{
		DryRun: flags.dryRun,
		Style:  flags.style,
		Out:    cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	result, err := application.Run(ctx)
	if err != nil {
		logger.Error("run failed", "run_id", result.RunID, "status", result.Status, "error", err)
		return err
	}
	logger.Info("run finished",
		"run_id", result.RunID,
		"status", result.Status,
		"listings", len(result.Digest.Listings),
		"top_picks", len(result.Digest.TopPicks))
	return nil
}

func checkConfig(cmd *cobra.Command, flags *cliFlags) error {
	cfg := config.Load(flags.configPath)
	if err := cfg.Validate(flags.dryRun); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	provider := cfg.Ranking.Provider
	if provider == config.ProviderNone {
		provider = "none"
	}
	fmt.Fprintf(out, "zip codes:       %s\n", strings.Join(cfg.Search.ZipCodes, ", "))
	fmt.Fprintf(out, "distance:        %d miles\n", cfg.Search.DistanceMiles)
	fmt.Fprintf(out, "ages:            %s\n", strings.Join(cfg.Search.Ages, ", "))
	fmt.Fprintf(out, "window:          %s\n", cfg.Search.MaxAge)
	fmt.Fprintf(out, "excluded breeds: %s\n", strings.Join(cfg.Preferences.ExcludedBreeds, ", "))
	fmt.Fprintf(out, "ranking:         %s (max %d picks)\n", provider, cfg.Ranking.MaxPicks)
	fmt.Fprintf(out, "recipients:      %d\n", len(cfg.SMTP.Recipients))
	if cfg.Archive.Driver != "" {
		fmt.Fprintf(out, "archive:         %s\n", cfg.Archive.Driver)
	}
	return nil
}
