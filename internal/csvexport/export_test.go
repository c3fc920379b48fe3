package csvexport_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/csvexport"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLineItems(t *testing.T) {
	qty := 5
	items := []types.LineItem{
		{FileName: "a.pdf", DateSerial: 45718, OrderNumber: 4821, Qty: &qty, Cost: decimal.RequireFromString("62.5"), CostNL: "62,50"},
		{FileName: "a.pdf", DateSerial: 45718, OrderNumber: 42, Cost: decimal.RequireFromString("40"), CostNL: "40,00"},
	}

	var buf bytes.Buffer
	require.NoError(t, csvexport.WriteLineItems(&buf, items))

	want := "File Name,DateSerial,Order #,Qty,Cost,Cost_NL\n" +
		"a.pdf,45718,4821,5,62.50,\"62,50\"\n" +
		"a.pdf,45718,42,,40.00,\"40,00\"\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTotals(t *testing.T) {
	totals := []types.InvoiceTotal{
		{
			FileName: "a.pdf",
			TotalUSD: decimal.NewNullDecimal(decimal.RequireFromString("10.02")),
			COGSSum:  decimal.NewNullDecimal(decimal.RequireFromString("10")),
			Diff:     decimal.NewNullDecimal(decimal.RequireFromString("-0.02")),
			Match:    types.MatchCheck,
		},
		{FileName: "broken.pdf"},
	}

	var buf bytes.Buffer
	require.NoError(t, csvexport.WriteTotals(&buf, totals))

	want := "File Name,Total_USD_Extracted,COGS_Sum,Diff,Match\n" +
		"a.pdf,10.02,10.00,-0.02,CHECK\n" +
		"broken.pdf,,,,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteLog(t *testing.T) {
	entries := []types.LogEntry{
		{File: "a.pdf", Tokens: 18, Rows: 2, Status: types.StatusOK},
		{File: "b.pdf", Tokens: 99, Status: types.StatusError, Error: "boom"},
	}

	var buf bytes.Buffer
	require.NoError(t, csvexport.WriteLog(&buf, entries))

	want := "File,Tokens,Rows,Status,Error\n" +
		"a.pdf,18,2,OK,\n" +
		"b.pdf,,,ERROR,boom\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()

	paths, err := csvexport.WriteFiles(&types.Ledger{}, dir, "COGS_20250101_120000.xlsx")
	require.NoError(t, err)
	require.Len(t, paths, 3)

	assert.Equal(t, filepath.Join(dir, "COGS_20250101_120000_COGS.csv"), paths[0])
	assert.Equal(t, filepath.Join(dir, "COGS_20250101_120000_InvoiceTotals.csv"), paths[1])
	assert.Equal(t, filepath.Join(dir, "COGS_20250101_120000_Log.csv"), paths[2])

	data, err := os.ReadFile(paths[2])
	require.NoError(t, err)
	assert.Equal(t, "File,Tokens,Rows,Status,Error\n", string(data))
}
