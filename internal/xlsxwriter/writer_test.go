package xlsxwriter_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/types"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/xlsxwriter"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleLedger() *types.Ledger {
	qty := 5
	d := decimal.RequireFromString
	return &types.Ledger{
		LineItems: []types.LineItem{
			{FileName: "a.pdf", DateSerial: 45718, OrderNumber: 4821, Qty: &qty, Cost: d("62.5"), CostNL: "62,50"},
			{FileName: "a.pdf", DateSerial: 45718, OrderNumber: 4822, Cost: d("40"), CostNL: "40,00"},
		},
		Totals: []types.InvoiceTotal{
			{
				FileName: "a.pdf",
				TotalUSD: decimal.NewNullDecimal(d("102.5")),
				COGSSum:  decimal.NewNullDecimal(d("102.5")),
				Diff:     decimal.NewNullDecimal(d("0")),
				Match:    types.MatchOK,
			},
			{FileName: "broken.pdf"},
		},
		Log: []types.LogEntry{
			{File: "a.pdf", Tokens: 18, Rows: 2, Status: types.StatusOK},
			{File: "broken.pdf", Status: types.StatusError, Error: "failed to extract text: unexpected EOF"},
		},
	}
}

func open(t *testing.T, l *types.Ledger, opts xlsxwriter.Options) *excelize.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "COGS.xlsx")
	require.NoError(t, xlsxwriter.WriteFile(l, path, opts))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func rows(t *testing.T, f *excelize.File, sheet string) [][]string {
	t.Helper()
	r, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return r
}

func TestWriteFile_Sheets(t *testing.T) {
	f := open(t, sampleLedger(), xlsxwriter.Options{})

	assert.Equal(t, []string{xlsxwriter.SheetCOGS, xlsxwriter.SheetTotals, xlsxwriter.SheetLog}, f.GetSheetList())
}

func TestWriteFile_COGS(t *testing.T) {
	f := open(t, sampleLedger(), xlsxwriter.Options{})
	r := rows(t, f, xlsxwriter.SheetCOGS)

	require.Len(t, r, 3)
	assert.Equal(t, xlsxwriter.COGSHeaders, r[0])
	assert.Equal(t, []string{"a.pdf", "45718", "4821", "5", "62.5", "62,50"}, r[1])
	assert.Equal(t, "", r[2][3], "missing quantity stays blank")
	assert.Equal(t, "40,00", r[2][5])
}

func TestWriteFile_TotalsValues(t *testing.T) {
	f := open(t, sampleLedger(), xlsxwriter.Options{})
	r := rows(t, f, xlsxwriter.SheetTotals)

	require.Len(t, r, 3)
	assert.Equal(t, xlsxwriter.TotalsHeaders, r[0])
	assert.Equal(t, []string{"a.pdf", "102.5", "102.5", "0", "OK"}, r[1])
	assert.Equal(t, []string{"broken.pdf"}, r[2], "failed file has no numeric fields")

	formula, err := f.GetCellFormula(xlsxwriter.SheetTotals, "C2")
	require.NoError(t, err)
	assert.Empty(t, formula)
}

func TestWriteFile_TotalsFormulas(t *testing.T) {
	f := open(t, sampleLedger(), xlsxwriter.Options{Formulas: true})

	formulas := map[string]string{
		"C2": "SUMIF(COGS!$A:$A,A2,COGS!$E:$E)",
		"D2": "C2-B2",
		"E2": `IF(ABS(D2)<0.01,"OK","CHECK")`,
		"C3": "",
	}
	for cell, want := range formulas {
		got, err := f.GetCellFormula(xlsxwriter.SheetTotals, cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}
}

func TestWriteFile_FormulaTolerance(t *testing.T) {
	opts := xlsxwriter.Options{Formulas: true, Tolerance: decimal.RequireFromString("0.05")}
	f := open(t, sampleLedger(), opts)

	got, err := f.GetCellFormula(xlsxwriter.SheetTotals, "E2")
	require.NoError(t, err)
	assert.Equal(t, `IF(ABS(D2)<0.05,"OK","CHECK")`, got)
}

func TestWriteFile_Log(t *testing.T) {
	f := open(t, sampleLedger(), xlsxwriter.Options{})
	r := rows(t, f, xlsxwriter.SheetLog)

	require.Len(t, r, 3)
	assert.Equal(t, xlsxwriter.LogHeaders, r[0])
	assert.Equal(t, []string{"a.pdf", "18", "2", "OK"}, r[1])
	assert.Equal(t, []string{"broken.pdf", "", "", "ERROR", "failed to extract text: unexpected EOF"}, r[2])
}

func TestWriteFile_Formats(t *testing.T) {
	f := open(t, sampleLedger(), xlsxwriter.Options{})

	formats := map[string]int{"B2": 1, "C2": 1, "D2": 1, "E2": 4, "F2": 49, "D3": 1}
	for cell, want := range formats {
		id, err := f.GetCellStyle(xlsxwriter.SheetCOGS, cell)
		require.NoError(t, err)
		style, err := f.GetStyle(id)
		require.NoError(t, err)
		assert.Equal(t, want, style.NumFmt, cell)
	}
}

func TestWriteFile_ColumnWidths(t *testing.T) {
	l := sampleLedger()
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	l.Log[1].Error = string(long)

	f := open(t, l, xlsxwriter.Options{})

	w, err := f.GetColWidth(xlsxwriter.SheetCOGS, "A")
	require.NoError(t, err)
	assert.Equal(t, float64(len("File Name")+2), w)

	w, err = f.GetColWidth(xlsxwriter.SheetLog, "E")
	require.NoError(t, err)
	assert.Equal(t, float64(60), w)
}

func TestWrite_EmptyLedger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xlsxwriter.Write(&types.Ledger{}, &buf, xlsxwriter.Options{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	r, err := f.GetRows(xlsxwriter.SheetCOGS)
	require.NoError(t, err)
	require.Len(t, r, 1)
	assert.Equal(t, xlsxwriter.COGSHeaders, r[0])
}
