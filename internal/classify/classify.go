// =============================================================================
// Invoice COGS Extractor - Token Classifiers
// =============================================================================
//
// Pure predicates that decide what a single cleaned token is. The source PDFs
// carry no delimiters, so field identity is inferred from token shape alone:
//
//   | Shape              | Example        | Classifier            |
//   |--------------------|----------------|-----------------------|
//   | long order id      | 7315111772497_2| IsOrderID             |
//   | transaction number | 4821           | IsTransactionNumber   |
//   | date               | 2025/3/2       | IsDate / ParseDate    |
//   | country            | Canada         | CountryAt             |
//   | price              | 12.50          | IsPriceCandidate      |
//   | quantity           | 5              | IsBareQuantity        |
//
// The same literal digit string can be structurally ambiguous ("4821" is a
// transaction number, "5" is a quantity, neither is a price), so the price
// classifier is an ordered chain of guards rather than a single pattern.
//
// =============================================================================

package classify

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/config"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/tokenizer"
	"github.com/shopspring/decimal"
)

// numericRe is an unsigned decimal with at most two fraction digits.
var numericRe = regexp.MustCompile(`^[0-9]+(?:\.[0-9]{1,2})?$`)

// dateRe is YYYY/M/D with one or two digit month and day.
var dateRe = regexp.MustCompile(`^[0-9]{4}/[0-9]{1,2}/[0-9]{1,2}$`)

// Calendar years accepted by ParseDate.
const (
	MinYear = 1
	MaxYear = 9999
)

// =============================================================================
// RULES
// =============================================================================

// Rules is the compiled form of config.ParserSettings.
type Rules struct {
	settings config.ParserSettings

	orderIDRe     *regexp.Regexp
	transactionRe *regexp.Regexp

	// countries maps the first word of each country name to the remaining
	// words, longest names first.
	countries map[string][][]string

	priceCeiling decimal.Decimal
	smallFloor   decimal.Decimal
	tolerance    decimal.Decimal
	marker       string
}

// NewRules compiles parser settings into a Rules value.
func NewRules(settings config.ParserSettings) (*Rules, error) {
	if err := config.ValidateParser(settings); err != nil {
		return nil, err
	}

	r := &Rules{
		settings:      settings,
		orderIDRe:     regexp.MustCompile(fmt.Sprintf(`^[0-9]{%d,}(?:_[0-9]+)?$`, settings.OrderIDMinDigits)),
		transactionRe: regexp.MustCompile(fmt.Sprintf(`^[0-9]{%d}$`, settings.TransactionDigits)),
		countries:     make(map[string][][]string),
		priceCeiling:  decimal.NewFromFloat(settings.PriceCeiling),
		smallFloor:    decimal.NewFromInt(int64(settings.SmallIntegerFloor)),
		tolerance:     decimal.NewFromFloat(settings.ReconcileTolerance),
		marker:        strings.ToLower(settings.TotalsMarker),
	}

	for _, name := range settings.Countries {
		words := strings.Fields(strings.ToLower(name))
		if len(words) == 0 {
			continue
		}
		r.countries[words[0]] = append(r.countries[words[0]], words[1:])
	}
	for first := range r.countries {
		tails := r.countries[first]
		sort.SliceStable(tails, func(a, b int) bool { return len(tails[a]) > len(tails[b]) })
	}

	return r, nil
}

// DefaultRules returns the rules compiled from the default parser settings.
func DefaultRules() *Rules {
	r, err := NewRules(config.DefaultParserSettings())
	if err != nil {
		panic(err)
	}
	return r
}

// Settings returns the settings the rules were compiled from.
func (r *Rules) Settings() config.ParserSettings {
	return r.settings
}

// Tolerance returns the reconciliation tolerance.
func (r *Rules) Tolerance() decimal.Decimal {
	return r.tolerance
}

// =============================================================================
// IDENTIFIERS AND DATES
// =============================================================================

// IsTransactionNumber reports whether tok is exactly a transaction-length run
// of ASCII digits.
func (r *Rules) IsTransactionNumber(tok string) bool {
	return r.transactionRe.MatchString(tokenizer.Clean(tok))
}

// IsOrderID reports whether tok is a long order id, optionally suffixed
// with _N.
func (r *Rules) IsOrderID(tok string) bool {
	return r.orderIDRe.MatchString(tokenizer.Clean(tok))
}

// IsDate reports whether tok has the YYYY/M/D shape.
// The shape check does not validate the calendar; see ParseDate.
func IsDate(tok string) bool {
	return dateRe.MatchString(tokenizer.Clean(tok))
}

// ParseDate splits a YYYY/M/D token into a calendar date.
// Components outside the calendar (year 0, month 13, February 30) are an error.
func ParseDate(tok string) (time.Time, error) {
	t := tokenizer.Clean(tok)
	if !dateRe.MatchString(t) {
		return time.Time{}, fmt.Errorf("not a Y/M/D date: %q", t)
	}

	parts := strings.Split(t, "/")
	y, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	d, _ := strconv.Atoi(parts[2])

	if y < MinYear || y > MaxYear {
		return time.Time{}, fmt.Errorf("year out of range: %q", t)
	}

	date := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow; a round trip exposes it.
	if date.Year() != y || int(date.Month()) != m || date.Day() != d {
		return time.Time{}, fmt.Errorf("date out of range: %q", t)
	}
	return date, nil
}

// IsRowStart reports whether tokens[i:i+3] is an order id, a transaction
// number and a date.
func (r *Rules) IsRowStart(tokens []string, i int) bool {
	if i < 0 || i+2 >= len(tokens) {
		return false
	}
	return r.IsOrderID(tokens[i]) &&
		r.IsTransactionNumber(tokens[i+1]) &&
		IsDate(tokens[i+2])
}

// =============================================================================
// COUNTRY MARKER
// =============================================================================

// CountryAt reports whether a recognized country name starts at tokens[i].
// It returns the index of the last token the name consumes.
func (r *Rules) CountryAt(tokens []string, i int) (int, bool) {
	if i < 0 || i >= len(tokens) {
		return -1, false
	}

	tails, ok := r.countries[strings.ToLower(tokenizer.Clean(tokens[i]))]
	if !ok {
		return -1, false
	}

	for _, tail := range tails {
		if i+len(tail) >= len(tokens) {
			continue
		}
		matched := true
		for k, word := range tail {
			if strings.ToLower(tokenizer.Clean(tokens[i+1+k])) != word {
				matched = false
				break
			}
		}
		if matched {
			return i + len(tail), true
		}
	}
	return -1, false
}

// =============================================================================
// PRICES AND QUANTITIES
// =============================================================================

// IsPriceCandidate reports whether tok can be a line price.
func (r *Rules) IsPriceCandidate(tok string) bool {
	_, ok := r.ParsePrice(tok)
	return ok
}

// ParsePrice applies the price guards in order and returns the value of an
// accepted token:
//  1. transaction-number shape is never a price
//  2. order-id shape is never a price
//  3. the token must be an unsigned decimal with at most two fraction digits
//  4. integer-only values below the small-integer floor are noise
//  5. the value must be positive and not above the price ceiling
func (r *Rules) ParsePrice(tok string) (decimal.Decimal, bool) {
	t := tokenizer.Clean(tok)

	if r.transactionRe.MatchString(t) {
		return decimal.Zero, false
	}
	if r.orderIDRe.MatchString(t) {
		return decimal.Zero, false
	}
	if !numericRe.MatchString(t) {
		return decimal.Zero, false
	}

	v, err := decimal.NewFromString(t)
	if err != nil {
		return decimal.Zero, false
	}

	if !strings.Contains(t, ".") && v.LessThan(r.smallFloor) {
		return decimal.Zero, false
	}
	if !v.IsPositive() || v.GreaterThan(r.priceCeiling) {
		return decimal.Zero, false
	}

	return v, true
}

// IsBareQuantity reports whether tok is an all-digit quantity within range.
func (r *Rules) IsBareQuantity(tok string) bool {
	_, ok := r.ParseQuantity(tok)
	return ok
}

// ParseQuantity returns the integer value of a bare quantity token.
func (r *Rules) ParseQuantity(tok string) (int, bool) {
	t := tokenizer.Clean(tok)
	if t == "" || strings.TrimLeft(t, "0123456789") != "" {
		return 0, false
	}

	v, err := strconv.Atoi(t)
	if err != nil {
		return 0, false
	}
	if v < r.settings.QtyMin || v > r.settings.QtyMax {
		return 0, false
	}
	return v, true
}

// IsTotalsMarker reports whether tok opens the totals section.
func (r *Rules) IsTotalsMarker(tok string) bool {
	return r.marker != "" && strings.HasPrefix(strings.ToLower(tokenizer.Clean(tok)), r.marker)
}
