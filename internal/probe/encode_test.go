package probe

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]*SectionBuffer

func (m mapResolver) Section(division string) (Emitter, bool) {
	sb, ok := m[division]
	return sb, ok
}

func emitOne(t *testing.T, table *Table, division string) []byte {
	t.Helper()
	sb := NewSectionBuffer()
	require.NoError(t, table.Emit(mapResolver{division: sb}))
	out, err := sb.Bytes()
	require.NoError(t, err)
	return out
}

func sym(addr uint64) *Symbol {
	return &Symbol{Addr: addr, Resolved: true}
}

func TestEmitGoldenBytes(t *testing.T) {
	const guidM = 0x0102030405060708
	const guidU = 0x1111111111111111

	table := NewTable()
	root := table.Division("d")
	root.AddProbe(guidM, &Probe{Index: 1, Type: Block, Label: sym(0x1000)}, nil)
	root.AddProbe(guidM, &Probe{Index: 2, Type: DirectCall, Label: sym(0x1010)}, nil)
	root.AddProbe(guidU, &Probe{Index: 1, Type: Block, Attributes: AttrTailCall, Label: sym(0x1020)},
		[]InlineFrame{{GUID: guidM, Index: 2}})

	want := []byte{
		// M: guid, 2 probes, 1 child
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0x02, 0x01,
		// probe 1: index, flag (Block, absolute), 8-byte address
		0x01, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		// probe 2: index, flag (DirectCall, delta), sleb(0x10)
		0x02, 0x82, 0x10,
		// inline site 2, then U: guid, 1 probe, 0 children
		0x02,
		0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11,
		0x01, 0x00,
		// probe 1: index, flag (Block, TailCall, delta), sleb(0x10)
		0x01, 0x90, 0x10,
	}
	got := emitOne(t, table, "d")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("encoded bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitDeterministicAcrossInsertionOrder(t *testing.T) {
	const guidM, guidU, guidV = 500, 900, 700

	build := func(reversed bool) *Table {
		table := NewTable()
		root := table.Division("d")
		root.AddProbe(guidM, &Probe{Index: 1, Type: Block, Label: sym(0x100)}, nil)
		frames := [][]InlineFrame{
			{{GUID: guidM, Index: 1}},
			{{GUID: guidM, Index: 2}},
		}
		inlinees := []uint64{guidU, guidV}
		order := []int{0, 1}
		if reversed {
			order = []int{1, 0}
		}
		for _, i := range order {
			root.AddProbe(inlinees[i], &Probe{Index: 1, Type: Block, Label: sym(0x200 + uint64(i)*0x10)}, frames[i])
		}
		return table
	}

	a := emitOne(t, build(false), "d")
	b := emitOne(t, build(true), "d")
	require.Equal(t, a, b, "insertion order leaked into encoded bytes")
}

func TestEmitSkipsUnresolvedDivision(t *testing.T) {
	table := NewTable()
	root := table.Division("gone")
	root.AddProbe(7, &Probe{Index: 1, Type: Block, Label: sym(0x10)}, nil)

	// Resolver knows nothing; the division is skipped, not an error,
	// and no section is created as a side effect.
	require.NoError(t, table.Emit(mapResolver{}))
}

func TestEmitRejectsOverflowingFields(t *testing.T) {
	table := NewTable()
	root := table.Division("d")
	root.AddProbe(7, &Probe{Index: 1, Type: Block, Attributes: 0x08, Label: sym(0x10)}, nil)
	err := table.Emit(mapResolver{"d": NewSectionBuffer()})
	require.Error(t, err)
	require.Contains(t, err.Error(), "attributes")
}

func TestEmitRejectsProbesOnRoot(t *testing.T) {
	table := NewTable()
	root := table.Division("d")
	root.Probes = append(root.Probes, &Probe{Index: 1, Type: Block, Label: sym(0x10)})
	require.Error(t, table.Emit(mapResolver{"d": NewSectionBuffer()}))
}

func TestSectionBufferDeferredFragments(t *testing.T) {
	const guidM = 0x0102030405060708

	pending := &Symbol{Name: "lbl2"} // unresolved at emit time
	table := NewTable()
	root := table.Division("d")
	root.AddProbe(guidM, &Probe{Index: 1, Type: Block, Label: sym(0x1000)}, nil)
	root.AddProbe(guidM, &Probe{Index: 2, Type: Block, Label: pending}, nil)

	sb := NewSectionBuffer()
	require.NoError(t, table.Emit(mapResolver{"d": sb}))

	// Unresolvable: the delta fragment cannot be evaluated yet.
	_, err := sb.Bytes()
	require.Error(t, err)

	// Late resolution, as if by a linker relaxation pass.
	pending.Addr = 0x1010
	pending.Resolved = true
	out, err := sb.Bytes()
	require.NoError(t, err)

	want := []byte{
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0x02, 0x00,
		0x01, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x02, 0x80, 0x10,
	}
	require.Equal(t, want, out)
}

func TestSectionBufferPatchesUnresolvedSymbolValue(t *testing.T) {
	first := &Symbol{Name: "lbl1"} // absolute address not known yet
	table := NewTable()
	root := table.Division("d")
	root.AddProbe(9, &Probe{Index: 1, Type: Block, Label: first}, nil)

	sb := NewSectionBuffer()
	require.NoError(t, table.Emit(mapResolver{"d": sb}))
	_, err := sb.Bytes()
	require.Error(t, err)

	first.Addr = 0xdeadbeef
	first.Resolved = true
	out, err := sb.Bytes()
	require.NoError(t, err)

	want := []byte{
		9, 0, 0, 0, 0, 0, 0, 0, // guid
		0x01, 0x00, // 1 probe, 0 children
		0x01, 0x00, // index, flag
		0xef, 0xbe, 0xad, 0xde, 0x00, 0x00, 0x00, 0x00, // patched address
	}
	require.Equal(t, want, out)
}

func TestAppendFuncDesc(t *testing.T) {
	got := AppendFuncDesc(nil, FuncDesc{GUID: 100, Hash: 7, Name: "f"})
	want := []byte{
		100, 0, 0, 0, 0, 0, 0, 0,
		7, 0, 0, 0, 0, 0, 0, 0,
		1, 'f',
	}
	require.Equal(t, want, got)
}
