// =============================================================================
// Invoice COGS Extractor - Ledger Assembler
// =============================================================================
//
// This module orchestrates the extraction pipeline for a batch of PDFs and
// assembles the three output tables (line items, invoice totals, log).
//
// PER-FILE PIPELINE:
//   1. Extract page texts from the PDF
//   2. Tokenize the pages into one flat stream
//   3. Scan the stream for line items
//   4. Extract the printed invoice total
//
// After every file has been processed, each file's line-item costs are summed
// and reconciled against its printed total.
//
// FAULT ISOLATION:
//   Any error or panic inside the per-file pipeline is caught at the file
//   boundary. The file is logged as ERROR and the batch continues.
//
// CONCURRENCY:
//   Files are processed sequentially in input order. Tables are append-only
//   and preserve that order.
//
// =============================================================================

package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/pdftext"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/scanner"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/tokenizer"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/totals"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/types"
	"github.com/shopspring/decimal"
)

// ErrEmptyLedger is returned when a batch produced no line items and no
// extracted totals. The ledger is still returned alongside it.
var ErrEmptyLedger = errors.New("no line items or totals extracted")

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// FileResult represents the outcome of processing a single file.
type FileResult struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// FileName is the name recorded in every output table.
	FileName string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Rows holds the line items scanned from the file.
	Rows []types.LineItem

	// Total is the printed invoice total, if one was found.
	Total decimal.NullDecimal

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing of one file.
type ProcessingStats struct {
	// Pages is the number of pages read from the PDF.
	Pages int

	// Tokens is the number of tokens before totals truncation.
	Tokens int

	// Anchors is the number of row-start anchors found.
	Anchors int

	// Rejected is the number of anchors that did not yield a line item.
	Rejected int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// ASSEMBLER STRUCTURE
// =============================================================================

// Assembler runs the per-file pipeline over a batch of PDFs.
type Assembler struct {
	// Source extracts page texts.
	Source pdftext.Source

	// Scanner reconstructs line items from token streams.
	Scanner *scanner.Scanner

	// Totals finds the printed invoice total.
	Totals totals.Extractor

	// Logger receives progress messages. Nil discards them.
	Logger Logger
}

// New creates an Assembler from its collaborators.
//
// PARAMETERS:
//   - source: The page text source, usually a *pdftext.Reader.
//   - scan: The row scanner.
//   - tot: The totals strategy.
//   - logger: The logger; nil discards messages.
func New(source pdftext.Source, scan *scanner.Scanner, tot totals.Extractor, logger Logger) *Assembler {
	if logger == nil {
		logger = NopLogger()
	}
	return &Assembler{
		Source:  source,
		Scanner: scan,
		Totals:  tot,
		Logger:  logger,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// Run processes every path in order and assembles the ledger.
//
// RETURNS:
//   - The assembled ledger. It is returned even when err is non-nil.
//   - ErrEmptyLedger when nothing was extracted, or the context error when
//     the run was cancelled between files.
func (a *Assembler) Run(ctx context.Context, paths []string) (*types.Ledger, error) {
	results := make([]FileResult, 0, len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return Assemble(results, a.tolerance()), fmt.Errorf("conversion cancelled: %w", err)
		}

		res := a.ProcessFile(path)
		if res.Success {
			a.logger().Info("Processed %s: %d tokens, %d rows in %v",
				res.FileName, res.Stats.Tokens, len(res.Rows), res.Stats.ProcessingTime)
		} else {
			a.logger().Error("Failed to process %s: %v", res.FileName, res.Error)
		}
		results = append(results, res)
	}

	ledger := Assemble(results, a.tolerance())
	if ledger.Empty() {
		return ledger, ErrEmptyLedger
	}
	return ledger, nil
}

// ProcessFile runs the extraction pipeline for one file. It never panics;
// a fault anywhere in the pipeline is reported through the result.
func (a *Assembler) ProcessFile(path string) (result FileResult) {
	startTime := time.Now()
	result = FileResult{
		FilePath: path,
		FileName: filepath.Base(path),
	}

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Rows = nil
			result.Total = decimal.NullDecimal{}
			result.Error = fmt.Errorf("panic while processing file: %v", r)
		}
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	// =========================================================================
	// STEP 1: EXTRACT PAGE TEXTS
	// =========================================================================

	a.logger().Debug("Processing file: %s", path)

	pages, err := a.Source.Pages(path)
	if err != nil {
		result.Error = fmt.Errorf("failed to extract text: %w", err)
		return result
	}
	result.Stats.Pages = len(pages)

	// =========================================================================
	// STEP 2: TOKENIZE
	// =========================================================================

	stream := tokenizer.Tokenize(pages)

	// =========================================================================
	// STEP 3: SCAN ROWS
	// =========================================================================

	scan := a.Scanner.Scan(result.FileName, stream)
	result.Rows = scan.Rows
	result.Stats.Tokens = scan.Tokens
	result.Stats.Anchors = scan.Anchors
	result.Stats.Rejected = scan.Rejected

	a.logger().Debug("Scanned %s: %d anchors, %d rejected", result.FileName, scan.Anchors, scan.Rejected)

	// =========================================================================
	// STEP 4: EXTRACT TOTAL
	// =========================================================================

	result.Total = a.Totals.Extract(pages)
	if !result.Total.Valid {
		a.logger().Warn("No invoice total found in %s", result.FileName)
	}

	result.Success = true
	return result
}

// =============================================================================
// ASSEMBLY AND RECONCILIATION
// =============================================================================

// Assemble builds the three tables from per-file results, in result order.
func Assemble(results []FileResult, tolerance decimal.Decimal) *types.Ledger {
	ledger := &types.Ledger{
		LineItems: []types.LineItem{},
		Totals:    make([]types.InvoiceTotal, 0, len(results)),
		Log:       make([]types.LogEntry, 0, len(results)),
	}

	for _, res := range results {
		if !res.Success {
			msg := "unknown error"
			if res.Error != nil {
				msg = res.Error.Error()
			}
			ledger.Log = append(ledger.Log, types.LogEntry{
				File:   res.FileName,
				Status: types.StatusError,
				Error:  msg,
			})
			ledger.Totals = append(ledger.Totals, types.InvoiceTotal{FileName: res.FileName})
			continue
		}

		ledger.LineItems = append(ledger.LineItems, res.Rows...)
		ledger.Log = append(ledger.Log, types.LogEntry{
			File:   res.FileName,
			Tokens: res.Stats.Tokens,
			Rows:   len(res.Rows),
			Status: types.StatusOK,
		})
		ledger.Totals = append(ledger.Totals, Reconcile(res.FileName, res.Rows, res.Total, tolerance))
	}

	return ledger
}

// Reconcile sums the costs of rows and compares the sum with total.
// Diff and Match are only set when total is valid.
func Reconcile(fileName string, rows []types.LineItem, total decimal.NullDecimal, tolerance decimal.Decimal) types.InvoiceTotal {
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Cost)
	}

	out := types.InvoiceTotal{
		FileName: fileName,
		TotalUSD: total,
		COGSSum:  decimal.NewNullDecimal(sum),
	}
	if !total.Valid {
		return out
	}

	diff := sum.Sub(total.Decimal)
	out.Diff = decimal.NewNullDecimal(diff)
	if diff.Abs().LessThan(tolerance) {
		out.Match = types.MatchOK
	} else {
		out.Match = types.MatchCheck
	}
	return out
}

func (a *Assembler) tolerance() decimal.Decimal {
	return a.Scanner.Rules().Tolerance()
}

func (a *Assembler) logger() Logger {
	if a.Logger == nil {
		return NopLogger()
	}
	return a.Logger
}
