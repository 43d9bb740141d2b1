package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxPathLength bounds path reconstruction. A longer walk means the parent
// map is corrupt.
const MaxPathLength = 16

// Path is a walk through the graph from a start node to a target node.
type Path []Node

// StartsAt reports whether the reconstruction reached start. An unreachable
// target or a truncated walk does not.
func (p Path) StartsAt(start Node) bool {
	return len(p) > 0 && p[0] == start
}

// Contains reports whether n is on the path.
func (p Path) Contains(n Node) bool {
	for _, node := range p {
		if node == n {
			return true
		}
	}
	return false
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = n.String()
	}
	return strings.Join(parts, " -> ")
}

// FindBestPath searches for the path from start to target that maximizes the
// product of conversions, where walking an edge divides the distance by its
// weight. It returns the reconstructed path and the distance of target.
//
// The search repeatedly visits the unvisited node with the largest positive
// distance, scanning nodes in insertion order so the first of equal
// candidates wins. An edge is relaxed only when it strictly improves the
// target's distance and the target is not already on the current path from
// start to the visited node.
//
// An unknown start yields an empty path and zero distance. An unreachable
// target yields zero distance and a path that does not start at start.
func (g *CurrencyGraph) FindBestPath(start, target Node) (Path, decimal.Decimal) {
	if !g.HasNode(start) {
		return nil, decimal.Zero
	}

	distance := make(map[Node]decimal.Decimal, len(g.nodes))
	parents := make(map[Node]Node, len(g.nodes))
	visited := make(map[Node]bool, len(g.nodes))

	distance[start] = decimal.NewFromInt(1)
	node := start

	for !visited[node] {
		visited[node] = true

		live := reconstruct(parents, start, node)
		for _, e := range g.edges[node] {
			if live.Contains(e.Next) {
				continue
			}
			candidate := Quo(distance[node], e.Weight)
			if candidate.GreaterThan(distance[e.Next]) {
				distance[e.Next] = candidate
				parents[e.Next] = node
			}
		}

		node = start
		best := decimal.Zero
		for _, n := range g.nodes {
			if !visited[n] && distance[n].GreaterThan(best) {
				best = distance[n]
				node = n
			}
		}
	}

	return reconstruct(parents, start, target), distance[target]
}

// reconstruct walks parents back from target until it reaches start, runs
// out of parents or takes MaxPathLength hops.
func reconstruct(parents map[Node]Node, start, target Node) Path {
	rev := Path{target}
	p := target
	for hops := 0; p != start && hops < MaxPathLength; hops++ {
		parent, ok := parents[p]
		if !ok {
			break
		}
		rev = append(rev, parent)
		p = parent
	}

	path := make(Path, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}
