// Package centrality computes normalised degree centrality over the
// interbank loan graph, feeding the Centrality feature into riskpredictor.
// Kept separate from riskpredictor itself so the formula stays free of
// graph-construction state.
package centrality

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Edge is one directed interbank loan: From lent to To.
type Edge struct {
	From, To int
}

// Degree computes, for every node present in edges, its degree centrality:
// (in-degree + out-degree) normalised by (n-1) where n is the node count.
// A network with a single node returns 0 for that node (no peers to be
// central relative to).
func Degree(nodeIDs []int, edges []Edge) map[int]float64 {
	g := simple.NewDirectedGraph()
	for _, id := range nodeIDs {
		g.AddNode(simple.Node(id))
	}
	for _, e := range edges {
		if !g.HasEdgeBetween(int64(e.From), int64(e.To)) {
			g.SetEdge(simple.Edge{F: simple.Node(e.From), T: simple.Node(e.To)})
		}
	}

	n := len(nodeIDs)
	out := make(map[int]float64, n)
	if n <= 1 {
		for _, id := range nodeIDs {
			out[id] = 0
		}
		return out
	}

	for _, id := range nodeIDs {
		deg := nodeDegree(g, int64(id))
		out[id] = float64(deg) / float64(n-1)
	}
	return out
}

func nodeDegree(g *simple.DirectedGraph, id int64) int {
	from := iterLen(g.From(id))
	to := iterLen(g.To(id))
	return from + to
}

func iterLen(it graph.Nodes) int {
	count := 0
	for it.Next() {
		count++
	}
	return count
}
