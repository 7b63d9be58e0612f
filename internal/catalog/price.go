package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"Storefront/internal/apperr"
)

var (
	hundred    = decimal.NewFromInt(100)
	canonPrice = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// ParsePrice turns a catalog price string into an exact amount. Grouping
// separators (comma, space, no-break space) are dropped and '.' is the only
// accepted decimal separator; anything else is rejected.
func ParsePrice(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\u202f", "").Replace(strings.TrimSpace(s))
	if !canonPrice.MatchString(clean) {
		return decimal.Zero, apperr.Wrap(ErrInvalidPrice, fmt.Errorf("price %q", s))
	}
	return decimal.NewFromString(clean)
}

// FormatPrice renders an amount with two decimals and comma grouping.
func FormatPrice(d decimal.Decimal) string {
	s := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// Percent returns amount * pct / 100.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// LinePrice prices count units of p after the product's own discount.
// It returns the line total and the discount granted on the line.
func LinePrice(p Product, count int) (total, discount decimal.Decimal, err error) {
	unit, err := ParsePrice(p.Price)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("product %s: %w", p.ID, err)
	}

	n := decimal.NewFromInt(int64(count))
	if p.Discount != nil && p.Discount.IsPositive() {
		off := Percent(unit, *p.Discount)
		unit = unit.Sub(off)
		discount = off.Mul(n)
	}
	return unit.Mul(n), discount, nil
}
