// =============================================================================
// Invoice COGS Extractor - XLSX Workbook Writer
// =============================================================================
//
// This module writes a ledger as a workbook with three sheets:
//
//   | Sheet         | Columns                                                 |
//   |---------------|---------------------------------------------------------|
//   | COGS          | File Name, DateSerial, Order #, Qty, Cost, Cost_NL      |
//   | InvoiceTotals | File Name, Total_USD_Extracted, COGS_Sum, Diff, Match   |
//   | Log           | File, Tokens, Rows, Status, Error                       |
//
// InvoiceTotals either carries live formulas referencing the COGS sheet, so a
// reviewer can edit line items and see the reconciliation update, or the
// precomputed values from the ledger.
//
// =============================================================================

package xlsxwriter

import (
	"fmt"
	"io"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/types"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	SheetCOGS   = "COGS"
	SheetTotals = "InvoiceTotals"
	SheetLog    = "Log"
)

// Header rows of each sheet.
var (
	COGSHeaders   = []string{"File Name", "DateSerial", "Order #", "Qty", "Cost", "Cost_NL"}
	TotalsHeaders = []string{"File Name", "Total_USD_Extracted", "COGS_Sum", "Diff", "Match"}
	LogHeaders    = []string{"File", "Tokens", "Rows", "Status", "Error"}
)

// Built-in number format ids.
const (
	numFmtInteger = 1  // 0
	numFmtMoney   = 4  // #,##0.00
	numFmtText    = 49 // @
)

// maxColumnWidth caps autosized columns.
const maxColumnWidth = 60

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls how the workbook is written.
type Options struct {
	// Formulas writes SUMIF/IF formulas into InvoiceTotals instead of values.
	Formulas bool

	// Tolerance is the largest |Diff| formatted as OK by the Match formula.
	// Zero means 0.01.
	Tolerance decimal.Decimal
}

func (o Options) tolerance() decimal.Decimal {
	if o.Tolerance.IsZero() {
		return decimal.RequireFromString("0.01")
	}
	return o.Tolerance
}

// =============================================================================
// WRITER FUNCTIONS
// =============================================================================

// WriteFile writes the workbook for l to path.
func WriteFile(l *types.Ledger, path string, opts Options) error {
	f, err := Build(l, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// Write streams the workbook for l to w.
func Write(l *types.Ledger, w io.Writer, opts Options) error {
	f, err := Build(l, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Build lays out the three sheets in memory. The caller closes the file.
func Build(l *types.Ledger, opts Options) (*excelize.File, error) {
	if l == nil {
		l = &types.Ledger{}
	}

	f := excelize.NewFile()
	b := &builder{f: f, widths: make(map[string][]int)}

	if err := b.init(); err != nil {
		f.Close()
		return nil, err
	}
	if err := b.writeCOGS(l.LineItems); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write %s sheet: %w", SheetCOGS, err)
	}
	if err := b.writeTotals(l.Totals, opts); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write %s sheet: %w", SheetTotals, err)
	}
	if err := b.writeLog(l.Log); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write %s sheet: %w", SheetLog, err)
	}
	if err := b.autosize(); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// =============================================================================
// SHEET BUILDER
// =============================================================================

type builder struct {
	f *excelize.File

	integer int
	money   int
	text    int

	// widths tracks the longest rendered value per column, per sheet.
	widths map[string][]int
}

func (b *builder) init() error {
	if err := b.f.SetSheetName(b.f.GetSheetName(0), SheetCOGS); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	for _, name := range []string{SheetTotals, SheetLog} {
		if _, err := b.f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	var err error
	if b.integer, err = b.f.NewStyle(&excelize.Style{NumFmt: numFmtInteger}); err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if b.money, err = b.f.NewStyle(&excelize.Style{NumFmt: numFmtMoney}); err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if b.text, err = b.f.NewStyle(&excelize.Style{NumFmt: numFmtText}); err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	return nil
}

func (b *builder) writeCOGS(items []types.LineItem) error {
	if err := b.header(SheetCOGS, COGSHeaders); err != nil {
		return err
	}
	for i, item := range items {
		r := i + 2
		cells := []cell{
			{value: item.FileName},
			{value: item.DateSerial, style: b.integer},
			{value: item.OrderNumber, style: b.integer},
			{style: b.integer},
			{value: item.Cost.InexactFloat64(), style: b.money, render: item.Cost.String()},
			{value: item.CostNL, style: b.text},
		}
		if item.Qty != nil {
			cells[3].value = *item.Qty
		}
		if err := b.row(SheetCOGS, r, cells); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) writeTotals(totals []types.InvoiceTotal, opts Options) error {
	if err := b.header(SheetTotals, TotalsHeaders); err != nil {
		return err
	}
	tol := opts.tolerance().String()

	for i, t := range totals {
		r := i + 2
		cells := []cell{
			{value: t.FileName},
			nullable(t.TotalUSD, b.money),
			nullable(t.COGSSum, b.money),
			nullable(t.Diff, b.money),
			{style: b.text},
		}
		if t.Match != "" {
			cells[4].value = t.Match
		}

		if opts.Formulas && t.COGSSum.Valid {
			cells[2] = cell{style: b.money, formula: fmt.Sprintf("SUMIF(%s!$A:$A,A%d,%s!$E:$E)", SheetCOGS, r, SheetCOGS)}
			if t.TotalUSD.Valid {
				cells[3] = cell{style: b.money, formula: fmt.Sprintf("C%d-B%d", r, r)}
				cells[4] = cell{style: b.text, formula: fmt.Sprintf(`IF(ABS(D%d)<%s,"%s","%s")`, r, tol, types.MatchOK, types.MatchCheck)}
			}
		}

		if err := b.row(SheetTotals, r, cells); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) writeLog(entries []types.LogEntry) error {
	if err := b.header(SheetLog, LogHeaders); err != nil {
		return err
	}
	for i, e := range entries {
		cells := []cell{{value: e.File}, {}, {}, {value: e.Status}, {value: e.Error}}
		if !e.Failed() {
			cells[1].value = e.Tokens
			cells[2].value = e.Rows
		}
		if err := b.row(SheetLog, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// CELL HELPERS
// =============================================================================

// cell is one value to write. A nil value with no formula leaves the cell
// blank but still applies the style.
type cell struct {
	value   interface{}
	formula string
	style   int

	// render overrides the text used for column width.
	render string
}

func nullable(d decimal.NullDecimal, style int) cell {
	if !d.Valid {
		return cell{style: style}
	}
	return cell{value: d.Decimal.InexactFloat64(), style: style, render: d.Decimal.String()}
}

func (b *builder) header(sheet string, headers []string) error {
	cells := make([]cell, len(headers))
	for i, h := range headers {
		cells[i] = cell{value: h}
	}
	return b.row(sheet, 1, cells)
}

func (b *builder) row(sheet string, r int, cells []cell) error {
	for c, cl := range cells {
		name, err := excelize.CoordinatesToCellName(c+1, r)
		if err != nil {
			return err
		}

		text := cl.render
		switch {
		case cl.formula != "":
			if err := b.f.SetCellFormula(sheet, name, cl.formula); err != nil {
				return err
			}
			text = "=" + cl.formula
		case cl.value != nil:
			if err := b.f.SetCellValue(sheet, name, cl.value); err != nil {
				return err
			}
			if text == "" {
				text = fmt.Sprint(cl.value)
			}
		}

		if cl.style != 0 {
			if err := b.f.SetCellStyle(sheet, name, name, cl.style); err != nil {
				return err
			}
		}
		b.track(sheet, c, len([]rune(text)))
	}
	return nil
}

func (b *builder) track(sheet string, col, n int) {
	w := b.widths[sheet]
	for len(w) <= col {
		w = append(w, 0)
	}
	if n > w[col] {
		w[col] = n
	}
	b.widths[sheet] = w
}

// autosize sets each column to its longest value plus two, capped.
func (b *builder) autosize() error {
	for _, sheet := range []string{SheetCOGS, SheetTotals, SheetLog} {
		for c, n := range b.widths[sheet] {
			col, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				return err
			}
			width := n + 2
			if width > maxColumnWidth {
				width = maxColumnWidth
			}
			if err := b.f.SetColWidth(sheet, col, col, float64(width)); err != nil {
				return fmt.Errorf("failed to size column %s!%s: %w", sheet, col, err)
			}
		}
	}
	return nil
}
