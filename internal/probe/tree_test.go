package probe

import "testing"

func TestGetOrAddNode(t *testing.T) {
	root := NewTree()
	if !root.IsRoot() {
		t.Fatal("fresh tree is not root")
	}

	site := InlineSite{GUID: 42, Index: 7}
	a := root.GetOrAddNode(site)
	b := root.GetOrAddNode(site)
	if a != b {
		t.Fatal("same site produced two nodes")
	}
	if a.Parent != root {
		t.Fatal("child not linked to parent")
	}
	if a.GUID != 42 || a.Site != site {
		t.Fatalf("child = guid %d site %+v", a.GUID, a.Site)
	}
	if a.IsRoot() {
		t.Fatal("child reports root")
	}
}

func TestAddProbeInlineStack(t *testing.T) {
	// A inlines B at probe 88, B inlines C at probe 66; the probe
	// originates in C. Expected path: (A,0) -> (B,88) -> (C,66).
	const guidA, guidB, guidC = 100, 200, 300
	root := NewTree()
	p := &Probe{Index: 5, Type: Block, Label: &Symbol{Addr: 0x10, Resolved: true}}
	root.AddProbe(guidC, p, []InlineFrame{{GUID: guidA, Index: 88}, {GUID: guidB, Index: 66}})

	a := root.children[InlineSite{GUID: guidA, Index: 0}]
	if a == nil {
		t.Fatal("missing (A,0) node")
	}
	b := a.children[InlineSite{GUID: guidB, Index: 88}]
	if b == nil {
		t.Fatal("missing (B,88) node")
	}
	c := b.children[InlineSite{GUID: guidC, Index: 66}]
	if c == nil {
		t.Fatal("missing (C,66) node")
	}
	if len(c.Probes) != 1 || c.Probes[0] != p {
		t.Fatalf("probe not attached to leaf node: %+v", c.Probes)
	}
	if len(a.Probes) != 0 || len(b.Probes) != 0 {
		t.Fatal("interior nodes must not receive the probe")
	}
}

func TestAddProbeTopLevel(t *testing.T) {
	root := NewTree()
	p := &Probe{Index: 1, Type: Block, Label: &Symbol{Addr: 0x10, Resolved: true}}
	root.AddProbe(77, p, nil)

	n := root.children[InlineSite{GUID: 77, Index: 0}]
	if n == nil {
		t.Fatal("missing (77,0) node")
	}
	if len(n.Probes) != 1 {
		t.Fatalf("probes = %d, want 1", len(n.Probes))
	}
}

func TestSortedChildrenOrder(t *testing.T) {
	root := NewTree()
	n := root.GetOrAddNode(InlineSite{GUID: 1, Index: 0})
	// Insert out of order on both key components.
	n.GetOrAddNode(InlineSite{GUID: 9, Index: 2})
	n.GetOrAddNode(InlineSite{GUID: 3, Index: 5})
	n.GetOrAddNode(InlineSite{GUID: 3, Index: 1})
	n.GetOrAddNode(InlineSite{GUID: 9, Index: 0})

	want := []InlineSite{{3, 1}, {3, 5}, {9, 0}, {9, 2}}
	got := n.sortedChildren()
	if len(got) != len(want) {
		t.Fatalf("children = %d, want %d", len(got), len(want))
	}
	for i, c := range got {
		if c.Site != want[i] {
			t.Errorf("child %d = %+v, want %+v", i, c.Site, want[i])
		}
	}
}

func TestDecodedNodeHasInlineSite(t *testing.T) {
	root := &DecodedNode{}
	top := root.GetOrAddNode(InlineSite{GUID: 10, Index: 0})
	inlined := top.GetOrAddNode(InlineSite{GUID: 20, Index: 3})

	if root.HasInlineSite() {
		t.Error("root has inline site")
	}
	if top.HasInlineSite() {
		t.Error("top-level function has inline site")
	}
	if !inlined.HasInlineSite() {
		t.Error("inlined function lacks inline site")
	}
}
