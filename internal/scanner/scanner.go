// =============================================================================
// Invoice COGS Extractor - Row Scanner
// =============================================================================
//
// The row scanner walks the flat token stream of one PDF and reconstructs
// logical invoice line items using positional heuristics.
//
// STATES:
//   seeking    - between rows, advancing one token at a time
//   rowOpen    - an anchor was found, the window is being bounded and searched
//   rowClosed  - fields resolved or the row discarded; resume at the row end
//
// ROW LAYOUT (empirical column order of the source invoices):
//
//   <order id> <txn #> <date> ... <qty> <country> ... <unit price> ... <total>
//   '------- anchor -------'         ^      ^                            ^
//                               nearest   pivot                        last
//                               before                                 after
//
// The parser is layout-tolerant (no fixed column positions) but depends on
// this field order.
//
// =============================================================================

package scanner

import (
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/classify"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/config"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/tokenizer"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/types"
	"github.com/shopspring/decimal"
)

// ExcelEpoch is day zero of the spreadsheet serial date system.
var ExcelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 24 * 60 * 60

type state int

const (
	stateSeeking state = iota
	stateRowOpen
	stateRowClosed
)

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Window is the half-open token range [Start, End) of one row.
type Window struct {
	Start int
	End   int
}

// Result is the outcome of scanning one file.
type Result struct {
	// Tokens is the length of the stream before totals truncation.
	Tokens int

	// Rows holds the emitted line items in stream order.
	Rows []types.LineItem

	// Anchors is the number of row-start anchors found.
	Anchors int

	// Rejected is the number of anchors that produced no line item.
	Rejected int
}

// row collects the fields of the row currently open.
type row struct {
	window Window

	order    int
	hasOrder bool

	date    time.Time
	hasDate bool

	qty *int

	cost    decimal.Decimal
	hasCost bool
}

// =============================================================================
// SCANNER
// =============================================================================

// Scanner extracts line items from token streams.
// It holds no per-file state and may be reused across files.
type Scanner struct {
	rules *classify.Rules
}

// New creates a Scanner using the given rules.
func New(rules *classify.Rules) *Scanner {
	if rules == nil {
		rules = classify.DefaultRules()
	}
	return &Scanner{rules: rules}
}

// Rules returns the classifier rules the scanner uses.
func (s *Scanner) Rules() *classify.Rules {
	return s.rules
}

// Scan reconstructs the line items of one file's token stream.
func (s *Scanner) Scan(fileName string, stream tokenizer.Stream) Result {
	result := Result{Tokens: stream.Len()}

	settings := s.rules.Settings()
	if settings.Truncates() {
		stream = s.StopAtTotals(stream)
	}
	splitPages := settings.PageBreaks == config.PageBreaksSplit

	tokens := stream.Tokens
	n := len(tokens)
	st := stateSeeking

	var cur row
	i := 0
	for i < n {
		switch st {
		case stateSeeking:
			if !s.rules.IsRowStart(tokens, i) {
				i++
				continue
			}
			result.Anchors++
			cur = s.openRow(tokens, i)
			st = stateRowOpen

		case stateRowOpen:
			limit := n
			if splitPages {
				limit = stream.PageEnd(i)
			}
			cur.window = Window{Start: i, End: s.rowEnd(tokens, i, limit)}
			s.resolve(tokens, &cur)
			st = stateRowClosed

		case stateRowClosed:
			if item, ok := cur.lineItem(fileName); ok {
				result.Rows = append(result.Rows, item)
			} else {
				result.Rejected++
			}
			i = cur.window.End
			st = stateSeeking
		}
	}

	return result
}

// StopAtTotals cuts the stream at the first token that opens the totals
// section, so the totals line is not read as row data.
func (s *Scanner) StopAtTotals(stream tokenizer.Stream) tokenizer.Stream {
	for i, tok := range stream.Tokens {
		if s.rules.IsTotalsMarker(tok) {
			return stream.Truncate(i)
		}
	}
	return stream
}

// openRow parses the transaction number and date of the anchor at i.
// A date that fails to parse leaves the row without a date; it is dropped
// when the row closes.
func (s *Scanner) openRow(tokens []string, i int) row {
	var r row

	txn := tokenizer.Clean(tokens[i+1])
	if s.rules.IsTransactionNumber(txn) {
		if v, err := strconv.Atoi(txn); err == nil {
			r.order, r.hasOrder = v, true
		}
	}

	if d, err := classify.ParseDate(tokens[i+2]); err == nil {
		r.date, r.hasDate = d, true
	}

	return r
}

// rowEnd returns the exclusive end of the row anchored at i: the next anchor,
// or the window cap, or limit, whichever comes first.
func (s *Scanner) rowEnd(tokens []string, i, limit int) int {
	end := i + s.rules.Settings().MaxRowSpan
	if end > limit {
		end = limit
	}
	for j := i + 3; j < end; j++ {
		if s.rules.IsRowStart(tokens, j) {
			return j
		}
	}
	if end < i+3 {
		// The anchor itself always belongs to its row.
		end = i + 3
	}
	return end
}

// resolve finds the country marker inside the window and derives quantity
// and cost around it.
func (s *Scanner) resolve(tokens []string, r *row) {
	start, end := r.window.Start, r.window.End

	cpos, cend := -1, -1
	for k := start + 3; k < end; k++ {
		if last, ok := s.rules.CountryAt(tokens[:end], k); ok {
			cpos, cend = k, last
			break
		}
	}
	if cpos == -1 {
		return
	}

	// Nearest quantity before the country, never the anchor's first token.
	for j := cpos - 1; j > start; j-- {
		if q, ok := s.rules.ParseQuantity(tokens[j]); ok {
			r.qty = &q
			break
		}
	}

	// Last price after the country wins: invoices print the unit price before
	// the line total.
	for j := cend + 1; j < end; j++ {
		if v, ok := s.rules.ParsePrice(tokens[j]); ok {
			r.cost, r.hasCost = v, true
		}
	}
}

// lineItem converts a closed row into a LineItem when its required fields
// are resolved.
func (r row) lineItem(fileName string) (types.LineItem, bool) {
	if !r.hasOrder || !r.hasDate || !r.hasCost {
		return types.LineItem{}, false
	}
	return types.LineItem{
		FileName:    fileName,
		DateSerial:  ExcelSerial(r.date),
		OrderNumber: r.order,
		Qty:         r.qty,
		Cost:        r.cost,
		CostNL:      DutchText(r.cost),
	}, true
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// ExcelSerial returns the number of days between ExcelEpoch and t.
// Whole days are counted from Unix seconds; a time.Duration would overflow
// for dates more than 292 years from the epoch.
func ExcelSerial(t time.Time) int {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Unix()/secondsPerDay - ExcelEpoch.Unix()/secondsPerDay)
}

// DutchText renders d with two fraction digits and a decimal comma.
func DutchText(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}
