// Package callgraph lowers a decoded pseudo-probe inline forest into a
// lattice call graph.
package callgraph

import (
	"github.com/zboralski/lattice"

	"probescope/internal/probe"
)

// Build constructs a lattice.Graph from the decoder's inline forest.
// Each function body becomes a node; each inlining event becomes a
// caller→callee edge. Names resolve through the descriptor table, with
// numeric GUIDs as fallback.
func Build(d *probe.Decoder) *lattice.Graph {
	g := &lattice.Graph{}
	var walk func(n *probe.DecodedNode)
	walk = func(n *probe.DecodedNode) {
		for _, c := range n.Children() {
			g.Nodes = append(g.Nodes, d.FuncName(c.GUID))
			if !n.IsRoot() {
				g.Edges = append(g.Edges, lattice.Edge{
					Caller: d.FuncName(n.GUID),
					Callee: d.FuncName(c.GUID),
				})
			}
			walk(c)
		}
	}
	walk(d.Root())
	g.Dedup()
	return g
}
