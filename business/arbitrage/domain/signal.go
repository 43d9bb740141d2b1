package domain

// TradeSignal is the action on the first leg of a path.
type TradeSignal uint8

const (
	SignalNone TradeSignal = iota
	SignalBuy
	SignalSell
)

func (s TradeSignal) String() string {
	switch s {
	case SignalBuy:
		return "buy"
	case SignalSell:
		return "sell"
	}
	return "none"
}

// Signal turns a path into the trade to make next. It takes the first bid
// node that has a successor, finds the added pair covering both currencies
// and buys when the bid node's currency is that pair's quote or sells when
// it is the base. Any other shape gives SignalNone.
func (g *CurrencyGraph) Signal(path Path) (TradeSignal, CurrencyPair) {
	for i := 0; i < len(path)-1; i++ {
		current := path[i]
		if current.Side != SideBid {
			continue
		}

		pair, ok := g.PairFor(current.Currency, path[i+1].Currency)
		if !ok {
			return SignalNone, CurrencyPair{}
		}

		switch current.Currency {
		case pair.Quote:
			return SignalBuy, pair
		case pair.Base:
			return SignalSell, pair
		}
		return SignalNone, CurrencyPair{}
	}
	return SignalNone, CurrencyPair{}
}
