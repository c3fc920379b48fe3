// =============================================================================
// Invoice COGS Extractor - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, which runs one batch conversion
// from the command line.
//
// COMMAND USAGE:
//   cogs convert [files...] [flags]
//
// FLAGS:
//   --output       : Output directory (overrides output_dir)
//   --format       : xlsx or csv (overrides output_format)
//   --totals-mode  : full_text or streaming (overrides totals_mode)
//   --dry-run      : Validate and list the inputs without converting
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Collect input files (arguments, or every PDF in input_dir)
//   3. Validate the inputs
//   4. Convert every file in order
//   5. Write the workbook (or CSV files)
//   6. Print and save the run summary
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/config"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/csvexport"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/ledger"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/validation"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/xlsxwriter"
	"github.com/ginjaninja78/invoice-cogs-extractor/pkg/utils"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	outputDir  string
	format     string
	totalsMode string
	dryRun     bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert invoice PDFs into a COGS workbook",
	Long: `The convert command reads the given PDF files, or every PDF in the input
directory when no file is given, and writes one workbook to the output
directory.

A file that cannot be read is recorded with status ERROR in the Log sheet and
does not stop the batch. The command fails only when no line item and no
invoice total could be extracted from any file.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (overrides output_dir)")
	convertCmd.Flags().StringVar(&format, "format", "", "Output format: xlsx or csv (overrides output_format)")
	convertCmd.Flags().StringVar(&totalsMode, "totals-mode", "", "Totals extraction: full_text or streaming (overrides totals_mode)")
	convertCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and list the inputs without converting")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runConvert(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	out := cmd.OutOrStdout()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyConvertFlags(cfg); err != nil {
		return err
	}
	logger := newLogger(cfg)

	// =========================================================================
	// STEP 2: COLLECT INPUT FILES
	// =========================================================================

	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.UploadDir)

	inputs := args
	if len(inputs) == 0 {
		inputs, err = files.DiscoverInputFiles("")
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}
	if len(inputs) == 0 {
		return validation.ErrNoInputFiles
	}
	logger.Info("Found %d file(s) to process", len(inputs))

	// =========================================================================
	// STEP 3: VALIDATE
	// =========================================================================

	check := validation.ValidateInputs(inputs, validation.DefaultOptions())
	if len(check.Errors) > 0 {
		fmt.Fprint(out, validation.FormatErrors(check.Errors))
	}
	if err := check.Err(); err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintln(out, "Dry run, nothing converted. Inputs:")
		for _, p := range inputs {
			if n, ok := check.Pages[p]; ok {
				fmt.Fprintf(out, "  %s (%d pages)\n", p, n)
			} else {
				fmt.Fprintf(out, "  %s\n", p)
			}
		}
		return nil
	}

	// =========================================================================
	// STEP 4: CONVERT
	// =========================================================================

	asm, rules, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}

	l, err := asm.Run(cmd.Context(), inputs)
	if errors.Is(err, ledger.ErrEmptyLedger) {
		return fmt.Errorf("no line items or invoice totals found in %d file(s): %w", len(inputs), err)
	}
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 5: WRITE OUTPUT
	// =========================================================================

	if err := files.EnsureDirectories(); err != nil {
		return err
	}

	var outputs []string
	switch cfg.OutputFormat {
	case config.FormatCSV:
		name := utils.GenerateOutputFileName(cfg.OutputNameFormat, ".csv")
		outputs, err = csvexport.WriteFiles(l, cfg.OutputDir, name)
		if err != nil {
			return err
		}
	default:
		path := filepath.Join(cfg.OutputDir, utils.GenerateOutputFileName(cfg.OutputNameFormat, ".xlsx"))
		opts := xlsxwriter.Options{Formulas: cfg.Formulas(), Tolerance: rules.Tolerance()}
		if err := xlsxwriter.WriteFile(l, path, opts); err != nil {
			return err
		}
		outputs = []string{path}
	}

	// =========================================================================
	// STEP 6: SUMMARY
	// =========================================================================

	summary := utils.NewProcessingSummary(l, startTime, time.Now(), outputs)
	fmt.Fprintln(out, "=== Processing Summary ===")
	fmt.Fprint(out, summary.Format())

	summaryPath, err := utils.WriteSummaryLog(summary, cfg.OutputDir)
	if err != nil {
		logger.Warn("Failed to write summary log: %v", err)
	} else {
		logger.Debug("Summary written to %s", summaryPath)
	}

	return nil
}

// applyConvertFlags copies explicitly set flags over the loaded configuration.
func applyConvertFlags(cfg *config.MainConfig) error {
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if format != "" {
		if format != config.FormatXLSX && format != config.FormatCSV {
			return fmt.Errorf("--format must be %s or %s, got %q", config.FormatXLSX, config.FormatCSV, format)
		}
		cfg.OutputFormat = format
	}
	if totalsMode != "" {
		cfg.TotalsMode = totalsMode
	}
	return nil
}
