package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"rankbacktest/cmd"
	"rankbacktest/internal/app"
	"rankbacktest/internal/logger"
	"rankbacktest/internal/util"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "rankbacktest",
		Short:        "Factor-ranked long/short backtests",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCommand(), newValidateCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var (
		configPath string
		outDir     string
		dataDir    string
		persist    bool
	)
	c := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest from a YAML config",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := util.LoadRunConfig(configPath)
			if err != nil {
				return err
			}
			if dataDir == "" {
				dataDir = filepath.Dir(configPath)
			}

			handler, err := cmd.InitializeDependencies()
			if err != nil {
				return err
			}
			defer cmd.CloseDependencies(handler)
			ctx := logger.NewContext(context.Background(), handler.Logger)

			result, err := handler.BacktestApp.Run(ctx, app.RunBacktestInput{
				Config:  *cfg,
				DataDir: dataDir,
				OutDir:  outDir,
				Persist: persist,
			})
			if err != nil {
				return err
			}

			out := c.OutOrStdout()
			if result.RunID != nil {
				fmt.Fprintf(out, "run %s\n", result.RunID.String())
			}
			for _, b := range result.Result.Buckets {
				if b.Metrics == nil {
					fmt.Fprintf(out, "%-6s final cash %s\n", b.Bucket.Name, b.FinalCash.StringFixed(2))
					continue
				}
				fmt.Fprintf(
					out,
					"%-6s total %7.2f%%  annualized %7.2f%%  sharpe %6.2f  max drawdown %6.2f%%\n",
					b.Bucket.Name,
					100*b.Metrics.TotalReturn,
					100*b.Metrics.AnnualizedReturn,
					b.Metrics.SharpeRatio,
					100*b.Metrics.MaxDrawdown,
				)
			}
			return nil
		},
	}
	c.Flags().StringVar(&configPath, "config", "", "path to the run config YAML")
	c.Flags().StringVar(&outDir, "out", "", "directory for CSV results")
	c.Flags().StringVar(&dataDir, "data-dir", "", "base directory for data paths (defaults to the config's directory)")
	c.Flags().BoolVar(&persist, "persist", false, "store the run in the database")
	_ = c.MarkFlagRequired("config")
	return c
}

func newValidateCommand() *cobra.Command {
	var configPath string
	c := &cobra.Command{
		Use:   "validate",
		Short: "Check a run config without running it",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := util.LoadRunConfig(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "%s: %s mode, %d periods per year\n", cfg.Name, cfg.Mode, cfg.PeriodsPerYear)
			return nil
		},
	}
	c.Flags().StringVar(&configPath, "config", "", "path to the run config YAML")
	_ = c.MarkFlagRequired("config")
	return c
}
