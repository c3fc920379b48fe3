// Package csvexport writes a ledger as three CSV files, one per table.
//
// Column headers match the workbook sheets. Costs and totals are plain
// decimals with a dot; Cost_NL keeps its decimal comma. Absent values are
// written as empty fields.
package csvexport

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/types"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// LineItemRecord is one row of the COGS table.
type LineItemRecord struct {
	FileName    string `csv:"File Name"`
	DateSerial  int    `csv:"DateSerial"`
	OrderNumber int    `csv:"Order #"`
	Qty         string `csv:"Qty"`
	Cost        string `csv:"Cost"`
	CostNL      string `csv:"Cost_NL"`
}

// TotalRecord is one row of the InvoiceTotals table.
type TotalRecord struct {
	FileName string `csv:"File Name"`
	TotalUSD string `csv:"Total_USD_Extracted"`
	COGSSum  string `csv:"COGS_Sum"`
	Diff     string `csv:"Diff"`
	Match    string `csv:"Match"`
}

// LogRecord is one row of the Log table.
type LogRecord struct {
	File   string `csv:"File"`
	Tokens string `csv:"Tokens"`
	Rows   string `csv:"Rows"`
	Status string `csv:"Status"`
	Error  string `csv:"Error"`
}

// Table suffixes appended to the base name of each file.
const (
	SuffixCOGS   = "_COGS.csv"
	SuffixTotals = "_InvoiceTotals.csv"
	SuffixLog    = "_Log.csv"
)

// WriteFiles writes the three tables next to each other in dir, named
// base+suffix. It returns the written paths in table order.
func WriteFiles(l *types.Ledger, dir, base string) ([]string, error) {
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if l == nil {
		l = &types.Ledger{}
	}

	tables := []struct {
		suffix string
		write  func(io.Writer) error
	}{
		{SuffixCOGS, func(w io.Writer) error { return WriteLineItems(w, l.LineItems) }},
		{SuffixTotals, func(w io.Writer) error { return WriteTotals(w, l.Totals) }},
		{SuffixLog, func(w io.Writer) error { return WriteLog(w, l.Log) }},
	}

	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		path := filepath.Join(dir, base+t.suffix)
		if err := writeFile(path, t.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteLineItems writes the COGS table to w.
func WriteLineItems(w io.Writer, items []types.LineItem) error {
	records := make([]*LineItemRecord, 0, len(items))
	for _, it := range items {
		rec := &LineItemRecord{
			FileName:    it.FileName,
			DateSerial:  it.DateSerial,
			OrderNumber: it.OrderNumber,
			Cost:        it.Cost.StringFixed(2),
			CostNL:      it.CostNL,
		}
		if it.Qty != nil {
			rec.Qty = strconv.Itoa(*it.Qty)
		}
		records = append(records, rec)
	}
	return marshal(records, w)
}

// WriteTotals writes the InvoiceTotals table to w.
func WriteTotals(w io.Writer, totals []types.InvoiceTotal) error {
	records := make([]*TotalRecord, 0, len(totals))
	for _, t := range totals {
		records = append(records, &TotalRecord{
			FileName: t.FileName,
			TotalUSD: money(t.TotalUSD),
			COGSSum:  money(t.COGSSum),
			Diff:     money(t.Diff),
			Match:    t.Match,
		})
	}
	return marshal(records, w)
}

// WriteLog writes the Log table to w. Counts are blank for failed files.
func WriteLog(w io.Writer, entries []types.LogEntry) error {
	records := make([]*LogRecord, 0, len(entries))
	for _, e := range entries {
		rec := &LogRecord{File: e.File, Status: e.Status, Error: e.Error}
		if !e.Failed() {
			rec.Tokens = strconv.Itoa(e.Tokens)
			rec.Rows = strconv.Itoa(e.Rows)
		}
		records = append(records, rec)
	}
	return marshal(records, w)
}

// marshal writes records with a header line. gocsv emits the header even
// for an empty slice.
func marshal(records interface{}, w io.Writer) error {
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("failed to encode CSV: %w", err)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func money(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}
