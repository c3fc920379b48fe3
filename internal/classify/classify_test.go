package classify_test

import (
	"testing"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/classify"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/config"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/tokenizer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifiers(t *testing.T) {
	r := classify.DefaultRules()

	assert.True(t, r.IsTransactionNumber("4821"))
	assert.True(t, r.IsTransactionNumber("(0042)"))
	assert.False(t, r.IsTransactionNumber("482"))
	assert.False(t, r.IsTransactionNumber("48210"))
	assert.False(t, r.IsTransactionNumber("48a1"))

	assert.True(t, r.IsOrderID("7315111772497_2"))
	assert.True(t, r.IsOrderID("1234567890"))
	assert.False(t, r.IsOrderID("123456789"))
	assert.False(t, r.IsOrderID("1234567890_"))
	assert.False(t, r.IsOrderID("1234567890-2"))
}

func TestDates(t *testing.T) {
	assert.True(t, classify.IsDate("2025/3/2"))
	assert.True(t, classify.IsDate("2025/12/31"))
	assert.False(t, classify.IsDate("2025-03-02"))
	assert.False(t, classify.IsDate("25/3/2"))

	d, err := classify.ParseDate("2025/3/2")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, 3, int(d.Month()))
	assert.Equal(t, 2, d.Day())

	_, err = classify.ParseDate("2025/2/30")
	assert.Error(t, err, "calendar overflow is rejected")

	_, err = classify.ParseDate("2025/13/1")
	assert.Error(t, err)

	_, err = classify.ParseDate("0000/1/1")
	assert.Error(t, err, "year 0 is outside the calendar")

	d, err = classify.ParseDate("9999/12/31")
	require.NoError(t, err)
	assert.Equal(t, classify.MaxYear, d.Year())

	_, err = classify.ParseDate("Canada")
	assert.Error(t, err)
}

func TestIsRowStart(t *testing.T) {
	r := classify.DefaultRules()
	tokens := []string{"Order", "7315111772497_2", "4821", "2025/3/2", "Widget"}

	assert.False(t, r.IsRowStart(tokens, 0))
	assert.True(t, r.IsRowStart(tokens, 1))
	assert.False(t, r.IsRowStart(tokens, 2))
	assert.False(t, r.IsRowStart(tokens, 3), "needs three tokens")
	assert.False(t, r.IsRowStart(tokens, -1))
}

func TestCountryAt(t *testing.T) {
	r := classify.DefaultRules()

	tests := []struct {
		name     string
		tokens   []string
		want     int
		wantFind bool
	}{
		{"single word", []string{"Canada"}, 0, true},
		{"case and noise", []string{"CANADA,"}, 0, true},
		{"two words", []string{"United", "States", "12.50"}, 1, true},
		{"two words upper", []string{"UNITED", "STATES"}, 1, true},
		{"first word only", []string{"United"}, -1, false},
		{"other second word", []string{"united", "kingdom"}, -1, false},
		{"abbreviation", []string{"UK"}, 0, true},
		{"not a country", []string{"Widget"}, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last, ok := r.CountryAt(tt.tokens, 0)
			assert.Equal(t, tt.wantFind, ok)
			assert.Equal(t, tt.want, last)
		})
	}
}

func TestCountryAt_CustomList(t *testing.T) {
	settings := config.DefaultParserSettings()
	settings.Countries = []string{"new zealand", "new caledonia", "netherlands"}
	r, err := classify.NewRules(settings)
	require.NoError(t, err)

	last, ok := r.CountryAt([]string{"New", "Caledonia"}, 0)
	assert.True(t, ok)
	assert.Equal(t, 1, last)

	_, ok = r.CountryAt([]string{"Canada"}, 0)
	assert.False(t, ok, "default list replaced")
}

func TestParsePrice(t *testing.T) {
	r := classify.DefaultRules()

	tests := []struct {
		tok  string
		want string
		ok   bool
	}{
		{"12.50", "12.5", true},
		{"12.5", "12.5", true},
		{"(62.50)", "62.5", true},
		{"7.50", "7.5", true},
		{"10", "10", true},
		{"100000", "100000", true},
		{"100000.01", "", false},
		{"4821", "", false},       // transaction shape
		{"1234567890", "", false}, // order id shape
		{"12.505", "", false},
		{"$12.50", "", false},
		{"1,234.56", "", false},
		{"9", "", false}, // small integer
		{"5", "", false},
		{"0.00", "", false},
		{"-5.00", "", false},
		{"Canada", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.tok, func(t *testing.T) {
			v, ok := r.ParsePrice(tt.tok)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(v), "got %s", v)
			}
			assert.Equal(t, ok, r.IsPriceCandidate(tt.tok))
		})
	}
}

func TestClassifiersIgnoreNoise(t *testing.T) {
	r := classify.DefaultRules()

	for _, tok := range []string{"(12.50)", "[4821]", "{5};", "Canada,", "(2025/3/2)", "7315111772497_2,"} {
		clean := tokenizer.Clean(tok)
		assert.Equal(t, r.IsPriceCandidate(clean), r.IsPriceCandidate(tok), tok)
		assert.Equal(t, r.IsBareQuantity(clean), r.IsBareQuantity(tok), tok)
		assert.Equal(t, r.IsTransactionNumber(clean), r.IsTransactionNumber(tok), tok)
		assert.Equal(t, r.IsOrderID(clean), r.IsOrderID(tok), tok)
		assert.Equal(t, classify.IsDate(clean), classify.IsDate(tok), tok)
	}
}

func TestPriceCandidateIsStable(t *testing.T) {
	rules := classify.DefaultRules()
	tokens := []string{
		"12.50", "(12.50),", "[99.9]", "{10};", "10", "9", "9.00", "4821",
		"1234567890", "1234567890_2", "0.00", "100000", "100000.01",
		"12.505", "$12.50", "-5.00", "Canada", "", "();",
	}

	for _, tok := range tokens {
		firstOK := rules.IsPriceCandidate(tok)
		firstVal, firstParsed := rules.ParsePrice(tok)

		for i := 0; i < 3; i++ {
			assert.Equal(t, firstOK, rules.IsPriceCandidate(tok), tok)
			v, ok := rules.ParsePrice(tok)
			assert.Equal(t, firstParsed, ok, tok)
			assert.True(t, firstVal.Equal(v), tok)
		}
		assert.Equal(t, firstOK, firstParsed, tok)
	}

	assert.True(t, rules.IsPriceCandidate("(12.50),"))
	assert.False(t, rules.IsPriceCandidate("4821"))
}

func TestParseQuantity(t *testing.T) {
	r := classify.DefaultRules()

	q, ok := r.ParseQuantity("5")
	assert.True(t, ok)
	assert.Equal(t, 5, q)

	q, ok = r.ParseQuantity("(3)")
	assert.True(t, ok)
	assert.Equal(t, 3, q)

	q, ok = r.ParseQuantity("999")
	assert.True(t, ok)
	assert.Equal(t, 999, q)

	for _, tok := range []string{"0", "1000", "5.0", "-1", "", "x5"} {
		_, ok := r.ParseQuantity(tok)
		assert.False(t, ok, tok)
	}
}

func TestIsTotalsMarker(t *testing.T) {
	r := classify.DefaultRules()

	assert.True(t, r.IsTotalsMarker("Total(USD):"))
	assert.True(t, r.IsTotalsMarker("TOTAL(USD)"))
	assert.False(t, r.IsTotalsMarker("Total"))
	assert.False(t, r.IsTotalsMarker("Subtotal(USD):"))

	settings := config.DefaultParserSettings()
	settings.TotalsMarker = "GRAND"
	custom, err := classify.NewRules(settings)
	require.NoError(t, err)
	assert.True(t, custom.IsTotalsMarker("grand-total"))
}

func TestNewRules_Invalid(t *testing.T) {
	settings := config.DefaultParserSettings()
	settings.OrderIDMinDigits = 4

	_, err := classify.NewRules(settings)
	assert.Error(t, err)
}
