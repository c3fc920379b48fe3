// =============================================================================
// Invoice COGS Extractor - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command
// carries the global flags and the helpers every subcommand uses to load the
// configuration and assemble the conversion pipeline.
//
// COBRA CLI STRUCTURE:
//   rootCmd (cogs)
//   ├── convertCmd (cogs convert)
//   ├── serveCmd   (cogs serve)
//   └── versionCmd (cogs version)
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/classify"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/config"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/ledger"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/pdftext"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/scanner"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/totals"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cogs",
	Short: "Invoice COGS Extractor - Turn vendor invoice PDFs into a COGS workbook",
	Long: `Invoice COGS Extractor reads vendor invoice PDFs, reconstructs their line
items from the extracted text, reconciles the summed costs against the total
printed on each invoice, and writes a workbook with three sheets:

  COGS           one row per reconstructed line item
  InvoiceTotals  per-file reconciliation (OK / CHECK)
  Log            per-file processing status

Example Usage:
  cogs convert                      # Convert every PDF in the input directory
  cogs convert a.pdf b.pdf          # Convert the given files
  cogs convert --format csv         # Write three CSV files instead
  cogs serve --addr :8080           # Start the upload web server`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. An interrupt cancels the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig loads the configuration named by --config.
func loadConfig() (*config.MainConfig, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// free for the run summary.
func newLogger(cfg *config.MainConfig) ledger.Logger {
	return ledger.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
}

// newPipeline wires text extraction, scanning and totals extraction into one
// Assembler.
func newPipeline(cfg *config.MainConfig, logger ledger.Logger) (*ledger.Assembler, *classify.Rules, error) {
	source, err := pdftext.NewReader(cfg.TextMode)
	if err != nil {
		return nil, nil, err
	}

	rules, err := classify.NewRules(cfg.Parser)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid parser settings: %w", err)
	}

	tot, err := totals.New(cfg.TotalsMode)
	if err != nil {
		return nil, nil, err
	}

	return ledger.New(source, scanner.New(rules), tot, logger), rules, nil
}
