// Package totals finds the invoice total printed on a PDF.
//
// Two line shapes are recognized, in order of preference:
//
//	Total(USD): $1,234.56
//	TOTAL AMOUNT 1,234.56
//
// The extracted amount is only used to cross-check the summed line costs.
package totals

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/config"
	"github.com/shopspring/decimal"
)

var (
	totalUSDRe    = regexp.MustCompile(`(?i)Total\s*\(\s*USD\s*\)\s*:\s*([$]?\s*[\d,]+(?:\.\d+)?)`)
	totalAmountRe = regexp.MustCompile(`(?i)TOTAL\s+AMOUNT\s*[$]?\s*([\d,]+(?:\.\d+)?)`)
)

// Extractor finds the printed total in the page texts of one PDF.
// An invalid result means no total was found.
type Extractor interface {
	Extract(pages []string) decimal.NullDecimal
}

// New returns the extractor for a config.TotalsMode value.
func New(mode string) (Extractor, error) {
	switch mode {
	case config.TotalsFullText, "":
		return FullText{}, nil
	case config.TotalsStreaming:
		return Streaming{}, nil
	default:
		return nil, fmt.Errorf("unknown totals mode %q", mode)
	}
}

// FullText searches the joined text of every page. The USD line anywhere in
// the document beats an AMOUNT line on an earlier page.
type FullText struct{}

// Extract implements Extractor.
func (FullText) Extract(pages []string) decimal.NullDecimal {
	return find(strings.Join(pages, "\n"))
}

// Streaming searches page by page and stops at the first page that yields a
// parsable amount. Pages after the hit are never scanned.
type Streaming struct {
	// Scanned, when set, is called with the index of every page searched.
	Scanned func(page int)
}

// Extract implements Extractor.
func (s Streaming) Extract(pages []string) decimal.NullDecimal {
	for i, page := range pages {
		if s.Scanned != nil {
			s.Scanned(i)
		}
		if v := match(totalUSDRe, page); v.Valid {
			return v
		}
		if v := match(totalAmountRe, page); v.Valid {
			return v
		}
	}
	return decimal.NullDecimal{}
}

// find applies the USD pattern to text, falling back to the AMOUNT pattern
// only when the USD pattern does not match at all.
func find(text string) decimal.NullDecimal {
	m := totalUSDRe.FindStringSubmatch(text)
	if m == nil {
		m = totalAmountRe.FindStringSubmatch(text)
	}
	if m == nil {
		return decimal.NullDecimal{}
	}
	return ParseAmount(m[1])
}

func match(re *regexp.Regexp, text string) decimal.NullDecimal {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return decimal.NullDecimal{}
	}
	return ParseAmount(m[1])
}

// ParseAmount strips currency symbols, spaces and thousands separators from
// raw and parses what is left. Anything unparsable is absent.
func ParseAmount(raw string) decimal.NullDecimal {
	s := strings.NewReplacer("$", "", " ", "", ",", "").Replace(raw)
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
