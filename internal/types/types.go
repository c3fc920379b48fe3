// =============================================================================
// Invoice COGS Extractor - Shared Types
// =============================================================================
//
// This package contains the data contract shared by the scanner, the ledger
// assembler and the output writers. Types defined here are used by:
//   - scanner     (produces LineItem)
//   - ledger      (produces InvoiceTotal, LogEntry, Ledger)
//   - xlsxwriter  (consumes Ledger)
//   - csvexport   (consumes Ledger)
//
// All values are derived once per conversion run and never mutated after
// they are appended to a Ledger.
//
// =============================================================================

package types

import "github.com/shopspring/decimal"

// =============================================================================
// STATUS VALUES
// =============================================================================

const (
	// StatusOK marks a file that was tokenized and scanned without fault.
	StatusOK = "OK"

	// StatusError marks a file whose pipeline failed at the file boundary.
	StatusError = "ERROR"

	// MatchOK is written when the summed costs agree with the extracted total.
	MatchOK = "OK"

	// MatchCheck is written when they disagree by at least the tolerance.
	MatchCheck = "CHECK"
)

// =============================================================================
// LINE ITEMS
// =============================================================================

// LineItem is one reconstructed invoice row.
// It is only emitted when OrderNumber, DateSerial and Cost are all resolved.
type LineItem struct {
	// FileName is the base name of the source PDF.
	FileName string

	// DateSerial is the row date as a day count from 1899-12-30.
	DateSerial int

	// OrderNumber is the 4-digit transaction number following the order id.
	OrderNumber int

	// Qty is the nearest bare quantity before the country marker.
	// Nil when no quantity was found.
	Qty *int

	// Cost is the last price candidate after the country marker.
	Cost decimal.Decimal

	// CostNL is Cost rendered with a decimal comma, e.g. "123,45".
	CostNL string
}

// =============================================================================
// TOTALS
// =============================================================================

// InvoiceTotal is the per-file reconciliation record.
// One is emitted for every input file, including failed ones.
type InvoiceTotal struct {
	FileName string

	// TotalUSD is the total printed on the invoice, if one was found.
	TotalUSD decimal.NullDecimal

	// COGSSum is the sum of the file's LineItem costs.
	// Invalid when the file failed.
	COGSSum decimal.NullDecimal

	// Diff is COGSSum - TotalUSD. Invalid unless both are valid.
	Diff decimal.NullDecimal

	// Match is MatchOK, MatchCheck, or empty when no total was extracted.
	Match string
}

// =============================================================================
// PROCESSING LOG
// =============================================================================

// LogEntry records the outcome of one file.
type LogEntry struct {
	File string

	// Tokens is the number of tokens extracted from the file.
	// Only meaningful when Status is StatusOK.
	Tokens int

	// Rows is the number of LineItems emitted for the file.
	// Only meaningful when Status is StatusOK.
	Rows int

	// Status is StatusOK or StatusError.
	Status string

	// Error holds the fault description when Status is StatusError.
	Error string
}

// Failed reports whether the entry describes a failed file.
func (e LogEntry) Failed() bool {
	return e.Status == StatusError
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is the three-table bundle handed to the output writers.
// Tables preserve input file order.
type Ledger struct {
	LineItems []LineItem
	Totals    []InvoiceTotal
	Log       []LogEntry
}

// Empty reports whether the run produced no line items and no extracted totals.
func (l *Ledger) Empty() bool {
	if l == nil {
		return true
	}
	if len(l.LineItems) > 0 {
		return false
	}
	for _, t := range l.Totals {
		if t.TotalUSD.Valid {
			return false
		}
	}
	return true
}

// Failures returns the number of files whose status is StatusError.
func (l *Ledger) Failures() int {
	n := 0
	for _, e := range l.Log {
		if e.Failed() {
			n++
		}
	}
	return n
}
