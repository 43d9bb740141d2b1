package domain

import "github.com/shopspring/decimal"

// Edge is a directed conversion to Next. Walking it divides the running
// distance by Weight.
type Edge struct {
	Next   Node
	Weight decimal.Decimal
}

// CurrencyGraph is the conversion graph built from one cycle's quotes.
//
// Nodes are ordered by when they first gained an outgoing edge, and each
// node's edges by when they were first added. The search breaks ties by that
// order, so it is part of the observable behavior.
type CurrencyGraph struct {
	nodes []Node
	edges map[Node][]Edge
	pairs []CurrencyPair
}

// NewCurrencyGraph returns an empty graph.
func NewCurrencyGraph() *CurrencyGraph {
	return &CurrencyGraph{edges: make(map[Node][]Edge)}
}

// AddPair adds the four edges for one product quote:
//
//	Bid(quote) -> Ask(base)  weight bid
//	Bid(base)  -> Ask(quote) weight 1/ask
//	Ask(quote) -> Bid(quote) weight 1
//	Ask(base)  -> Bid(base)  weight 1
//
// Re-adding a pair overwrites its edges in place. Callers validate prices;
// a non-positive bid or ask leaves the graph untouched.
func (g *CurrencyGraph) AddPair(base, quote Currency, bid, ask decimal.Decimal) {
	if !bid.IsPositive() || !ask.IsPositive() {
		return
	}

	one := decimal.NewFromInt(1)
	g.setEdge(Bid(quote), Ask(base), bid)
	g.setEdge(Bid(base), Ask(quote), Quo(one, ask))
	g.setEdge(Ask(quote), Bid(quote), one)
	g.setEdge(Ask(base), Bid(base), one)

	pair := CurrencyPair{Base: base, Quote: quote}
	for _, p := range g.pairs {
		if p == pair {
			return
		}
	}
	g.pairs = append(g.pairs, pair)
}

func (g *CurrencyGraph) setEdge(from, to Node, w decimal.Decimal) {
	g.addNode(from)

	edges := g.edges[from]
	for i := range edges {
		if edges[i].Next == to {
			edges[i].Weight = w
			return
		}
	}
	g.edges[from] = append(edges, Edge{Next: to, Weight: w})
}

func (g *CurrencyGraph) addNode(n Node) {
	if _, ok := g.edges[n]; ok {
		return
	}
	g.edges[n] = nil
	g.nodes = append(g.nodes, n)
}

// Nodes returns the nodes in insertion order.
func (g *CurrencyGraph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// NodeCount is twice the number of distinct currencies.
func (g *CurrencyGraph) NodeCount() int {
	return len(g.nodes)
}

// HasNode reports whether n is in the graph.
func (g *CurrencyGraph) HasNode(n Node) bool {
	_, ok := g.edges[n]
	return ok
}

// Edges returns the outgoing edges of n in insertion order.
func (g *CurrencyGraph) Edges(n Node) []Edge {
	out := make([]Edge, len(g.edges[n]))
	copy(out, g.edges[n])
	return out
}

// Weight returns the weight of the edge from -> to.
func (g *CurrencyGraph) Weight(from, to Node) (decimal.Decimal, bool) {
	for _, e := range g.edges[from] {
		if e.Next == to {
			return e.Weight, true
		}
	}
	return decimal.Zero, false
}

// Pairs returns the added pairs in insertion order.
func (g *CurrencyGraph) Pairs() []CurrencyPair {
	out := make([]CurrencyPair, len(g.pairs))
	copy(out, g.pairs)
	return out
}

// PairFor returns the first added pair whose legs are exactly a and b.
func (g *CurrencyGraph) PairFor(a, b Currency) (CurrencyPair, bool) {
	for _, p := range g.pairs {
		if p.Contains(a, b) {
			return p, true
		}
	}
	return CurrencyPair{}, false
}
