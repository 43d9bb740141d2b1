package domain

import "github.com/shopspring/decimal"

// SignificantDigits is the precision of every quotient in the graph and the
// engine. Equal-value routes must produce equal distances, so quotients are
// rounded to a fixed number of significant digits rather than decimal
// places.
const SignificantDigits = 28

// Quo returns a/b rounded half to even to SignificantDigits significant
// digits. b must not be zero.
func Quo(a, b decimal.Decimal) decimal.Decimal {
	if a.IsZero() {
		return decimal.Zero
	}
	neg := a.Sign() != b.Sign()
	a, b = a.Abs(), b.Abs()

	// The leading digit of a/b sits at adj(a)-adj(b) or one below it. Cut
	// at the lower bound first, then at the real position.
	lead := adjusted(a) - adjusted(b) - 1
	q, _ := a.QuoRem(b, SignificantDigits-1-lead)
	places := SignificantDigits - 1 - adjusted(q)
	q, r := a.QuoRem(b, places)

	ulp := decimal.New(1, -places)
	switch r.Mul(decimal.NewFromInt(2)).Cmp(b.Mul(ulp)) {
	case 1:
		q = q.Add(ulp)
	case 0:
		if q.Shift(places).BigInt().Bit(0) == 1 {
			q = q.Add(ulp)
		}
	}

	if neg {
		return q.Neg()
	}
	return q
}

// adjusted is the power of ten of d's leading digit.
func adjusted(d decimal.Decimal) int32 {
	return int32(d.NumDigits()) + d.Exponent() - 1
}
