package currency

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletcore/internal/apperr"
)

// DefaultCodes lists the currencies enabled when no explicit list is configured.
var DefaultCodes = []string{"XOF", "XAF", "NGN", "USD", "EUR", "GBP"}

// Currency describes a supported currency and the precision of its minor unit.
type Currency struct {
	Code          string
	Symbol        string
	DecimalPlaces int
}

// Registry is a static, read-only table of supported currencies.
type Registry struct {
	currencies map[string]Currency
	formatters map[string]*money.Formatter
}

// NewRegistry builds a registry for the given ISO codes using the go-money
// currency table for symbols and precision.
func NewRegistry(codes ...string) (*Registry, error) {
	r := &Registry{
		currencies: make(map[string]Currency, len(codes)),
		formatters: make(map[string]*money.Formatter, len(codes)),
	}
	for _, raw := range codes {
		code := normalize(raw)
		c := money.GetCurrency(code)
		if c == nil {
			return nil, fmt.Errorf("currency %q is not an ISO 4217 code", raw)
		}
		r.currencies[code] = Currency{Code: c.Code, Symbol: c.Grapheme, DecimalPlaces: c.Fraction}
		r.formatters[code] = c.Formatter()
	}
	return r, nil
}

// Default returns a registry populated with DefaultCodes.
func Default() *Registry {
	r, err := NewRegistry(DefaultCodes...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the currency for code or an UnsupportedCurrency error.
func (r *Registry) Get(code string) (Currency, error) {
	c, ok := r.currencies[normalize(code)]
	if !ok {
		return Currency{}, apperr.Errorf(apperr.KindUnsupportedCurrency, "currency.get", "%q", code)
	}
	return c, nil
}

// Supported reports whether code is in the table.
func (r *Registry) Supported(code string) bool {
	_, ok := r.currencies[normalize(code)]
	return ok
}

// Codes returns the supported codes in lexical order.
func (r *Registry) Codes() []string {
	out := make([]string, 0, len(r.currencies))
	for code := range r.currencies {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// ToMinor converts a major-unit amount to minor units. Amounts with more
// fractional digits than the currency allows are rejected rather than rounded.
func (r *Registry) ToMinor(code string, major decimal.Decimal) (int64, error) {
	c, err := r.Get(code)
	if err != nil {
		return 0, err
	}
	shifted := major.Shift(int32(c.DecimalPlaces))
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, apperr.Errorf(apperr.KindInvalidAmount, "currency.to_minor",
			"%s has more than %d decimal places for %s", major, c.DecimalPlaces, c.Code)
	}
	if shifted.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || shifted.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, apperr.Errorf(apperr.KindInvalidAmount, "currency.to_minor",
			"%s %s does not fit in minor units", major, c.Code)
	}
	return shifted.IntPart(), nil
}

// FromMinor converts minor units back to a major-unit decimal.
func (r *Registry) FromMinor(code string, minor int64) (decimal.Decimal, error) {
	c, err := r.Get(code)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(minor, -int32(c.DecimalPlaces)), nil
}

// Format renders minor units with the currency's symbol and separators.
func (r *Registry) Format(code string, minor int64) string {
	f, ok := r.formatters[normalize(code)]
	if !ok {
		return fmt.Sprintf("%d %s", minor, code)
	}
	return f.Format(minor)
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
