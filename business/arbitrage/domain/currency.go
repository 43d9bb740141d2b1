// Package domain contains the currency graph, the best-path search over it
// and the trade signal derived from a path.
package domain

import (
	"strings"

	"github.com/fd1az/graph-arbitrage/internal/apperror"
)

// Currency is an opaque currency symbol such as "USD" or "BTC".
type Currency string

// Side distinguishes the two nodes each currency contributes to the graph.
type Side uint8

const (
	SideBid Side = iota
	SideAsk
)

func (s Side) String() string {
	if s == SideBid {
		return "bid"
	}
	return "ask"
}

// Node is one (currency, side) vertex of the graph.
type Node struct {
	Currency Currency
	Side     Side
}

// Bid returns the bid-side node of c.
func Bid(c Currency) Node { return Node{Currency: c, Side: SideBid} }

// Ask returns the ask-side node of c.
func Ask(c Currency) Node { return Node{Currency: c, Side: SideAsk} }

func (n Node) String() string {
	return string(n.Currency) + "_" + n.Side.String()
}

// CurrencyPair is a tradable product. Prices are quoted in Quote per Base.
type CurrencyPair struct {
	Base  Currency
	Quote Currency
}

// String returns the product id, "BASE-QUOTE".
func (p CurrencyPair) String() string {
	return string(p.Base) + "-" + string(p.Quote)
}

// IsZero reports whether p is the empty pair.
func (p CurrencyPair) IsZero() bool {
	return p.Base == "" && p.Quote == ""
}

// Contains reports whether both a and b are legs of p.
func (p CurrencyPair) Contains(a, b Currency) bool {
	return (p.Base == a || p.Base == b) && (p.Quote == a || p.Quote == b)
}

// ParseProduct parses a "BASE-QUOTE" product id.
func ParseProduct(product string) (CurrencyPair, error) {
	base, quote, ok := strings.Cut(product, "-")
	if !ok || base == "" || quote == "" || strings.Contains(quote, "-") {
		return CurrencyPair{}, apperror.New(apperror.CodeInvalidProduct, apperror.WithContext(product))
	}
	return CurrencyPair{Base: Currency(base), Quote: Currency(quote)}, nil
}

// MustParseProducts parses ids known to be valid, such as validated config.
func MustParseProducts(products ...string) []CurrencyPair {
	pairs := make([]CurrencyPair, 0, len(products))
	for _, p := range products {
		pair, err := ParseProduct(p)
		if err != nil {
			panic(err)
		}
		pairs = append(pairs, pair)
	}
	return pairs
}
