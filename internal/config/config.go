// =============================================================================
// Invoice COGS Extractor - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the application
// configuration. It handles the main settings (directories, output format,
// logging, web server) and the parser settings that tune the row scanner to
// one invoice vendor's layout.
//
// CONFIGURATION SOURCES (later sources win):
//   1. Built-in defaults
//   2. config.yaml (optional - a missing file means "defaults only")
//   3. .env file and COGS_* environment variables
//   4. Command line flags (applied by the cmd package)
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

const (
	// TotalsFullText scans the joined text of all pages.
	TotalsFullText = "full_text"

	// TotalsStreaming scans page by page and stops at the first hit.
	TotalsStreaming = "streaming"

	// TextPlain extracts page text with the decoder's plain-text renderer.
	TextPlain = "plain"

	// TextRows extracts page text row by row, joining words with spaces.
	TextRows = "rows"

	// FormatXLSX writes a single workbook with three sheets.
	FormatXLSX = "xlsx"

	// FormatCSV writes one CSV file per table.
	FormatCSV = "csv"

	// PageBreaksIgnore lets a row window run across a page boundary.
	PageBreaksIgnore = "ignore"

	// PageBreaksSplit cuts a row window at the next page boundary.
	PageBreaksSplit = "split"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for *.pdf files when convert is run without arguments.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is where generated workbooks are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// UploadDir is where the web server stages uploaded PDFs.
	// Staged files are removed once the conversion finishes.
	// Default: "./uploads"
	UploadDir string `yaml:"upload_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the log handler: "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the output file name.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	// Default: "COGS_{timestamp}.xlsx"
	OutputNameFormat string `yaml:"output_name_format"`

	// OutputFormat is "xlsx" or "csv".
	// Default: "xlsx"
	OutputFormat string `yaml:"output_format"`

	// WriteFormulas writes SUMIF/IF formulas into the InvoiceTotals sheet
	// instead of precomputed values.
	// Default: true
	WriteFormulas *bool `yaml:"write_formulas"`

	// =========================================================================
	// EXTRACTION SETTINGS
	// =========================================================================

	// TotalsMode is "full_text" or "streaming".
	// Default: "full_text"
	TotalsMode string `yaml:"totals_mode"`

	// TextMode is "rows" or "plain".
	// "plain" only breaks at text-object boundaries, so table cells placed
	// inside one text object can fuse ("5Canada"). "rows" keeps them apart.
	// Default: "rows"
	TextMode string `yaml:"text_mode"`

	// Parser holds the scanner thresholds.
	Parser ParserSettings `yaml:"parser"`

	// =========================================================================
	// SERVER SETTINGS
	// =========================================================================

	// Server configures the upload web server.
	Server ServerSettings `yaml:"server"`
}

// Formulas reports whether InvoiceTotals should carry formulas.
func (c *MainConfig) Formulas() bool {
	return c.WriteFormulas == nil || *c.WriteFormulas
}

// =============================================================================
// PARSER SETTINGS STRUCTURE
// =============================================================================

// ParserSettings holds the empirically tuned values the row scanner depends on.
// They encode one vendor's invoice layout and are the values most likely to
// change for a new invoice source.
type ParserSettings struct {
	// Countries is the set of recognized destination countries.
	// Multi-word entries (e.g. "united states") match consecutive tokens.
	// Matching is case-insensitive.
	Countries []string `yaml:"countries"`

	// OrderIDMinDigits is the minimum digit count of a long order id.
	// Default: 10
	OrderIDMinDigits int `yaml:"order_id_min_digits"`

	// TransactionDigits is the exact digit count of a transaction number.
	// Default: 4
	TransactionDigits int `yaml:"transaction_digits"`

	// PriceCeiling is the largest value accepted as a price.
	// Default: 100000
	PriceCeiling float64 `yaml:"price_ceiling"`

	// SmallIntegerFloor rejects integer-only price tokens below this value.
	// 0 accepts every positive integer.
	// Default: 10
	SmallIntegerFloor int `yaml:"small_integer_floor"`

	// MaxRowSpan caps the token length of a row window.
	// Default: 320
	MaxRowSpan int `yaml:"max_row_span"`

	// QtyMin and QtyMax bound a bare quantity. QtyMin may be 0.
	// Default: 1 and 999
	QtyMin int `yaml:"qty_min"`
	QtyMax int `yaml:"qty_max"`

	// ReconcileTolerance is the largest |Diff| still reported as OK.
	// Default: 0.01
	ReconcileTolerance float64 `yaml:"reconcile_tolerance"`

	// TotalsMarker is the cleaned, lowercased token prefix where the totals
	// section begins.
	// Default: "total(usd"
	TotalsMarker string `yaml:"totals_marker"`

	// StopAtTotals truncates the token stream at the totals marker.
	// Default: true
	StopAtTotals *bool `yaml:"stop_at_totals"`

	// PageBreaks is "ignore" or "split".
	// Default: "ignore"
	PageBreaks string `yaml:"page_breaks"`
}

// DefaultCountries is the destination country set of the supported vendor layout.
var DefaultCountries = []string{
	"canada", "australia", "mexico", "china", "france", "germany", "italy",
	"spain", "japan", "singapore", "uae", "pakistan", "uk", "united states",
}

// DefaultParserSettings returns a ParserSettings with every default applied.
func DefaultParserSettings() ParserSettings {
	var p ParserSettings
	applyParserDefaults(&p)
	return p
}

// Truncates reports whether scanning stops at the totals marker.
func (p ParserSettings) Truncates() bool {
	return p.StopAtTotals == nil || *p.StopAtTotals
}

// =============================================================================
// SERVER SETTINGS STRUCTURE
// =============================================================================

// ServerSettings configures the upload web server.
type ServerSettings struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string `yaml:"addr"`

	// MaxUploadMB caps the size of one multipart request.
	// Default: 64
	MaxUploadMB int64 `yaml:"max_upload_mb"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	cfg := &MainConfig{Parser: DefaultParserSettings()}
	applyMainConfigDefaults(cfg)
	return cfg
}

// LoadMainConfig loads the main configuration from a YAML file.
// A missing file is not an error; defaults are used instead.
//
// Parser thresholds are seeded with their defaults before the file is decoded,
// so an explicit zero in the file (qty_min: 0) is kept rather than replaced.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	cfg := MainConfig{Parser: DefaultParserSettings()}

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// .env is optional as well.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnvOverrides(&cfg)

	applyMainConfigDefaults(&cfg)

	if err := validateMainConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides copies COGS_* environment variables over file values.
func applyEnvOverrides(cfg *MainConfig) {
	cfg.InputDir = getEnv("COGS_INPUT_DIR", cfg.InputDir)
	cfg.OutputDir = getEnv("COGS_OUTPUT_DIR", cfg.OutputDir)
	cfg.UploadDir = getEnv("COGS_UPLOAD_DIR", cfg.UploadDir)
	cfg.LogLevel = getEnv("COGS_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("COGS_LOG_FORMAT", cfg.LogFormat)
	cfg.TotalsMode = getEnv("COGS_TOTALS_MODE", cfg.TotalsMode)
	cfg.Server.Addr = getEnv("COGS_ADDR", cfg.Server.Addr)
	cfg.Server.MaxUploadMB = int64(getEnvAsInt("COGS_MAX_UPLOAD_MB", int(cfg.Server.MaxUploadMB)))
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(cfg *MainConfig) {
	if cfg.InputDir == "" {
		cfg.InputDir = "./input"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "./uploads"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.OutputNameFormat == "" {
		cfg.OutputNameFormat = "COGS_{timestamp}.xlsx"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = FormatXLSX
	}
	if cfg.TotalsMode == "" {
		cfg.TotalsMode = TotalsFullText
	}
	if cfg.TextMode == "" {
		cfg.TextMode = TextRows
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 64
	}
	applyParserTextDefaults(&cfg.Parser)
}

// applyParserDefaults sets the scanner thresholds of the supported vendor layout.
// Only a zero ParserSettings should be passed; every zero threshold is replaced.
func applyParserDefaults(p *ParserSettings) {
	applyParserTextDefaults(p)
	if p.OrderIDMinDigits == 0 {
		p.OrderIDMinDigits = 10
	}
	if p.TransactionDigits == 0 {
		p.TransactionDigits = 4
	}
	if p.PriceCeiling == 0 {
		p.PriceCeiling = 100000
	}
	if p.SmallIntegerFloor == 0 {
		p.SmallIntegerFloor = 10
	}
	if p.MaxRowSpan == 0 {
		p.MaxRowSpan = 320
	}
	if p.QtyMin == 0 {
		p.QtyMin = 1
	}
	if p.QtyMax == 0 {
		p.QtyMax = 999
	}
	if p.ReconcileTolerance == 0 {
		p.ReconcileTolerance = 0.01
	}
}

// applyParserTextDefaults fills the parser settings for which an empty value
// is never meaningful.
func applyParserTextDefaults(p *ParserSettings) {
	if len(p.Countries) == 0 {
		p.Countries = append([]string(nil), DefaultCountries...)
	}
	if p.TotalsMarker == "" {
		p.TotalsMarker = "total(usd"
	}
	if p.PageBreaks == "" {
		p.PageBreaks = PageBreaksIgnore
	}
}

// validateMainConfig rejects values the pipeline cannot act on.
func validateMainConfig(cfg *MainConfig) error {
	if err := oneOf("totals_mode", cfg.TotalsMode, TotalsFullText, TotalsStreaming); err != nil {
		return err
	}
	if err := oneOf("text_mode", cfg.TextMode, TextPlain, TextRows); err != nil {
		return err
	}
	if err := oneOf("output_format", cfg.OutputFormat, FormatXLSX, FormatCSV); err != nil {
		return err
	}
	if err := oneOf("log_format", cfg.LogFormat, "text", "json"); err != nil {
		return err
	}
	if err := oneOf("log_level", strings.ToLower(cfg.LogLevel), "debug", "info", "warn", "error"); err != nil {
		return err
	}
	return ValidateParser(cfg.Parser)
}

// ValidateParser checks that the parser thresholds are internally consistent.
func ValidateParser(p ParserSettings) error {
	if err := oneOf("parser.page_breaks", p.PageBreaks, PageBreaksIgnore, PageBreaksSplit); err != nil {
		return err
	}
	if p.TransactionDigits < 1 {
		return fmt.Errorf("parser.transaction_digits must be at least 1, got %d", p.TransactionDigits)
	}
	if p.SmallIntegerFloor < 0 {
		return fmt.Errorf("parser.small_integer_floor must not be negative, got %d", p.SmallIntegerFloor)
	}
	if p.OrderIDMinDigits <= p.TransactionDigits {
		// An order id must never look like a transaction number.
		return fmt.Errorf("parser.order_id_min_digits (%d) must exceed parser.transaction_digits (%d)",
			p.OrderIDMinDigits, p.TransactionDigits)
	}
	if p.MaxRowSpan < 4 {
		return fmt.Errorf("parser.max_row_span must be at least 4, got %d", p.MaxRowSpan)
	}
	if p.QtyMin < 0 || p.QtyMax < p.QtyMin {
		return fmt.Errorf("parser.qty_min/qty_max out of order: %d..%d", p.QtyMin, p.QtyMax)
	}
	if p.PriceCeiling <= 0 || p.ReconcileTolerance <= 0 {
		return fmt.Errorf("parser.price_ceiling and parser.reconcile_tolerance must be positive")
	}
	return nil
}

// EnsureDirectories creates the output and upload directories.
func (c *MainConfig) EnsureDirectories() error {
	for _, dir := range []string{c.OutputDir, c.UploadDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", name, strings.Join(allowed, ", "), value)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
