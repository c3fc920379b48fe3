package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadMainConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "./uploads", cfg.UploadDir)
	assert.Equal(t, FormatXLSX, cfg.OutputFormat)
	assert.Equal(t, TotalsFullText, cfg.TotalsMode)
	assert.Equal(t, TextRows, cfg.TextMode)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(64), cfg.Server.MaxUploadMB)
	assert.True(t, cfg.Formulas())

	p := cfg.Parser
	assert.Equal(t, DefaultCountries, p.Countries)
	assert.Equal(t, 10, p.OrderIDMinDigits)
	assert.Equal(t, 4, p.TransactionDigits)
	assert.Equal(t, 100000.0, p.PriceCeiling)
	assert.Equal(t, 10, p.SmallIntegerFloor)
	assert.Equal(t, 320, p.MaxRowSpan)
	assert.Equal(t, 1, p.QtyMin)
	assert.Equal(t, 999, p.QtyMax)
	assert.Equal(t, 0.01, p.ReconcileTolerance)
	assert.Equal(t, "total(usd", p.TotalsMarker)
	assert.Equal(t, PageBreaksIgnore, p.PageBreaks)
	assert.True(t, p.Truncates())
}

func TestLoadMainConfig_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
output_dir: /data/out
output_format: csv
totals_mode: streaming
write_formulas: false
parser:
  countries: [canada, new zealand]
  max_row_span: 200
  stop_at_totals: false
  page_breaks: split
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/out", cfg.OutputDir)
	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, FormatCSV, cfg.OutputFormat)
	assert.Equal(t, TotalsStreaming, cfg.TotalsMode)
	assert.False(t, cfg.Formulas())
	assert.Equal(t, []string{"canada", "new zealand"}, cfg.Parser.Countries)
	assert.Equal(t, 200, cfg.Parser.MaxRowSpan)
	assert.Equal(t, 4, cfg.Parser.TransactionDigits)
	assert.False(t, cfg.Parser.Truncates())
	assert.Equal(t, PageBreaksSplit, cfg.Parser.PageBreaks)
}

func TestLoadMainConfig_ExplicitZeroThresholds(t *testing.T) {
	path := writeConfig(t, `
parser:
  qty_min: 0
  small_integer_floor: 0
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Parser.QtyMin)
	assert.Equal(t, 0, cfg.Parser.SmallIntegerFloor)
	assert.Equal(t, 999, cfg.Parser.QtyMax, "keys not in the file keep their defaults")
	assert.Equal(t, 320, cfg.Parser.MaxRowSpan)

	_, err = LoadMainConfig(writeConfig(t, "parser:\n  max_row_span: 0\n"))
	assert.ErrorContains(t, err, "max_row_span")
}

func TestLoadMainConfig_EnvOverrides(t *testing.T) {
	t.Setenv("COGS_OUTPUT_DIR", "/env/out")
	t.Setenv("COGS_ADDR", ":9090")
	t.Setenv("COGS_MAX_UPLOAD_MB", "8")
	path := writeConfig(t, "output_dir: /file/out\n")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/env/out", cfg.OutputDir)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, int64(8), cfg.Server.MaxUploadMB)
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "output_dir: [", "failed to parse config file"},
		{"totals mode", "totals_mode: sideways\n", "totals_mode"},
		{"output format", "output_format: ods\n", "output_format"},
		{"log format", "log_format: xml\n", "log_format"},
		{"page breaks", "parser:\n  page_breaks: merge\n", "parser.page_breaks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMainConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateParser(t *testing.T) {
	require.NoError(t, ValidateParser(DefaultParserSettings()))

	p := DefaultParserSettings()
	p.OrderIDMinDigits = 4
	assert.ErrorContains(t, ValidateParser(p), "order_id_min_digits")

	p = DefaultParserSettings()
	p.MaxRowSpan = 3
	assert.ErrorContains(t, ValidateParser(p), "max_row_span")

	p = DefaultParserSettings()
	p.QtyMin, p.QtyMax = 10, 5
	assert.ErrorContains(t, ValidateParser(p), "qty_min")

	p = DefaultParserSettings()
	p.TransactionDigits = 0
	assert.ErrorContains(t, ValidateParser(p), "transaction_digits")

	p = DefaultParserSettings()
	p.SmallIntegerFloor = -1
	assert.ErrorContains(t, ValidateParser(p), "small_integer_floor")

	p = DefaultParserSettings()
	p.ReconcileTolerance = -1
	assert.ErrorContains(t, ValidateParser(p), "positive")
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.OutputDir = filepath.Join(root, "out")
	cfg.UploadDir = filepath.Join(root, "up", "nested")

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.OutputDir)
	assert.DirExists(t, cfg.UploadDir)
}
