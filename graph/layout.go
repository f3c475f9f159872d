// ABOUTME: Pure layout computation for the decorative idle-screen node graph.
// ABOUTME: Takes a node count and returns deterministic positions and edges; no UI dependencies.
package graph

import "math"

// Position is a node coordinate in the unit square [-1, 1] x [-1, 1].
type Position struct {
	X float64
	Y float64
}

// Edge connects two nodes by index into the layout's node slice.
type Edge struct {
	From int
	To   int
}

// Layout is a computed node-graph arrangement.
type Layout struct {
	Nodes []Position
	Edges []Edge
}

// Compute arranges n nodes as a hub with a surrounding ring: node 0 sits at
// the origin, the rest on a circle, each ring node connected to the hub and
// to its ring neighbor. The result is deterministic for a given n.
func Compute(n int) Layout {
	if n <= 0 {
		return Layout{}
	}

	nodes := make([]Position, n)
	if n == 1 {
		return Layout{Nodes: nodes}
	}

	const radius = 0.8
	ring := n - 1
	// Phase offset puts the first ring node at twelve o'clock.
	for i := 0; i < ring; i++ {
		angle := 2*math.Pi*float64(i)/float64(ring) - math.Pi/2
		nodes[i+1] = Position{
			X: radius * math.Cos(angle),
			Y: radius * math.Sin(angle),
		}
	}

	edges := make([]Edge, 0, 2*ring)
	for i := 1; i < n; i++ {
		edges = append(edges, Edge{From: 0, To: i})
	}
	// Ring edges need at least three ring nodes to be distinct from spokes.
	if ring >= 3 {
		for i := 1; i < n; i++ {
			next := i + 1
			if next == n {
				next = 1
			}
			edges = append(edges, Edge{From: i, To: next})
		}
	}

	return Layout{Nodes: nodes, Edges: edges}
}
