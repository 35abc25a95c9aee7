package probe

import "sort"

// InlineSite identifies the edge from a caller node to an inlined
// callee: the callee's GUID plus the index of the caller probe at the
// call site. Unique among a node's siblings.
type InlineSite struct {
	GUID  uint64
	Index uint64
}

// less orders sites lexicographically on (GUID, Index). Child emission
// and printing use this order so that encoded bytes never depend on
// insertion order.
func (s InlineSite) less(o InlineSite) bool {
	if s.GUID != o.GUID {
		return s.GUID < o.GUID
	}
	return s.Index < o.Index
}

// InlineFrame is one entry of an inline stack handed to AddProbe: the
// function inlined at that level and the caller probe index of the call
// site it was inlined at.
type InlineFrame struct {
	GUID  uint64
	Index uint64
}

// TreeNode is the encode-side inline tree. The root is synthetic: GUID
// 0, no parent, never carries probes. The tree is built incrementally
// during compilation and consumed once at emission.
type TreeNode struct {
	GUID   uint64
	Site   InlineSite
	Parent *TreeNode
	Probes []*Probe

	children map[InlineSite]*TreeNode
}

// NewTree returns a fresh synthetic root.
func NewTree() *TreeNode {
	return &TreeNode{}
}

// IsRoot reports whether the node is the synthetic root.
func (n *TreeNode) IsRoot() bool { return n.Parent == nil && n.GUID == 0 }

// GetOrAddNode returns the child at site, creating and linking it if
// absent.
func (n *TreeNode) GetOrAddNode(site InlineSite) *TreeNode {
	if c, ok := n.children[site]; ok {
		return c
	}
	if n.children == nil {
		n.children = make(map[InlineSite]*TreeNode)
	}
	c := &TreeNode{GUID: site.GUID, Site: site, Parent: n}
	n.children[site] = c
	return c
}

// AddProbe inserts a probe under the tree path described by its inline
// stack. Must be called on the root.
//
// A probe originating from C with stack [(A,88),(B,66)] means A inlined
// B at probe 88 and B inlined C at probe 66; the tree path walked is
// (A,0) -> (B,88) -> (C,66). An empty stack means the probe's function
// is itself top level, reached via (guid, 0) from the root.
func (n *TreeNode) AddProbe(guid uint64, p *Probe, stack []InlineFrame) {
	top := InlineSite{GUID: guid, Index: 0}
	if len(stack) > 0 {
		top = InlineSite{GUID: stack[0].GUID, Index: 0}
	}
	cur := n.GetOrAddNode(top)

	if len(stack) > 0 {
		idx := stack[0].Index
		for _, f := range stack[1:] {
			cur = cur.GetOrAddNode(InlineSite{GUID: f.GUID, Index: idx})
			idx = f.Index
		}
		cur = cur.GetOrAddNode(InlineSite{GUID: guid, Index: idx})
	}
	cur.Probes = append(cur.Probes, p)
}

// sortedChildren derives the deterministic child order at emission
// time; primary child storage stays an unordered map for O(1) lookup
// during construction.
func (n *TreeNode) sortedChildren() []*TreeNode {
	out := make([]*TreeNode, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Site.less(out[j].Site) })
	return out
}

// DecodedNode is the decode-side inline tree node. Built in one
// streaming pass over the section, read-only afterwards.
type DecodedNode struct {
	GUID   uint64
	Site   InlineSite
	Parent *DecodedNode

	// Probes originating directly in this body; the entries are owned
	// by the decoder's address index.
	Probes []*Decoded

	children map[InlineSite]*DecodedNode
}

// IsRoot reports whether the node is the synthetic root.
func (n *DecodedNode) IsRoot() bool { return n.Parent == nil && n.GUID == 0 }

// HasInlineSite reports whether the node was reached through a real
// inline edge, i.e. its function was inlined into a caller. Direct
// children of the root are top-level functions and have none.
func (n *DecodedNode) HasInlineSite() bool {
	return n.Parent != nil && !n.Parent.IsRoot()
}

// GetOrAddNode returns the child at site, creating and linking it if
// absent.
func (n *DecodedNode) GetOrAddNode(site InlineSite) *DecodedNode {
	if c, ok := n.children[site]; ok {
		return c
	}
	if n.children == nil {
		n.children = make(map[InlineSite]*DecodedNode)
	}
	c := &DecodedNode{GUID: site.GUID, Site: site, Parent: n}
	n.children[site] = c
	return c
}

// Children returns the node's children sorted by inline site.
func (n *DecodedNode) Children() []*DecodedNode {
	out := make([]*DecodedNode, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Site.less(out[j].Site) })
	return out
}

// NumChildren returns the child count.
func (n *DecodedNode) NumChildren() int { return len(n.children) }
