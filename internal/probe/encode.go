package probe

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// Emitter is the object-emission backend boundary. The encoder reduces
// every probe field to one of these calls; symbol resolution,
// relocations, and section bookkeeping live behind it.
type Emitter interface {
	EmitUint8(v uint8)
	EmitUint64(v uint64) // little-endian
	EmitULEB128(v uint64)
	EmitSLEB128(v int64)

	// EmitSymbolValue emits a symbol's address as 8 little-endian
	// bytes, via relocation if the symbol is unresolved.
	EmitSymbolValue(s *Symbol)

	// EmitAddrDelta emits a-b as SLEB128 when the difference could not
	// be evaluated at encode time; the backend fills it in during a
	// later relaxation stage.
	EmitAddrDelta(a, b *Symbol)
}

// SectionResolver maps a division identifier to the emitter for its
// output section. A failed lookup skips the division; no section may be
// created as a side effect of the lookup.
type SectionResolver interface {
	Section(division string) (Emitter, bool)
}

// Table holds the per-division inline trees built during compilation,
// one independent tree per linked section or comdat group.
type Table struct {
	divisions map[string]*TreeNode
}

// NewTable returns an empty probe table.
func NewTable() *Table {
	return &Table{divisions: make(map[string]*TreeNode)}
}

// Division returns the inline-tree root for the named division,
// creating it if absent.
func (t *Table) Division(name string) *TreeNode {
	root, ok := t.divisions[name]
	if !ok {
		root = NewTree()
		t.divisions[name] = root
	}
	return root
}

// Empty reports whether the table holds no divisions.
func (t *Table) Empty() bool { return len(t.divisions) == 0 }

// Emit serializes every division through the resolver, divisions in
// sorted name order. The running previous-probe state used for address
// deltas resets per division and threads across node and subtree
// boundaries within one.
func (t *Table) Emit(r SectionResolver) error {
	names := make([]string, 0, len(t.divisions))
	for name := range t.divisions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		e, ok := r.Section(name)
		if !ok {
			continue
		}
		var last *Probe
		if err := emitNode(e, t.divisions[name], &last); err != nil {
			return fmt.Errorf("division %s: %w", name, err)
		}
	}
	return nil
}

// emitNode writes one tree node: GUID, probe count, child count, the
// probes in insertion order, then each child in sorted inline-site
// order preceded by its site index. The root emits no header and its
// children carry no explicit index (the decoder synthesizes one).
func emitNode(e Emitter, n *TreeNode, last **Probe) error {
	if n.GUID != 0 {
		e.EmitUint64(n.GUID)
		e.EmitULEB128(uint64(len(n.Probes)))
		e.EmitULEB128(uint64(len(n.children)))
		for _, p := range n.Probes {
			if err := emitProbe(e, p, *last); err != nil {
				return err
			}
			*last = p
		}
	} else if len(n.Probes) != 0 {
		return fmt.Errorf("root node carries %d probes", len(n.Probes))
	}

	for _, c := range n.sortedChildren() {
		if n.GUID != 0 {
			e.EmitULEB128(c.Site.Index)
		}
		if err := emitNode(e, c, last); err != nil {
			return err
		}
	}
	return nil
}

// emitProbe writes one probe record. The first probe of a division
// emits its absolute address; every later probe emits a delta from the
// previous probe in whole-stream order, deferred to the backend when
// the difference cannot be evaluated here.
func emitProbe(e Emitter, p, last *Probe) error {
	if err := p.validate(); err != nil {
		return err
	}
	e.EmitULEB128(p.Index)

	flag := packFlag(p.Type, p.Attributes)
	if last != nil {
		flag |= flagAddrDelta
	}
	e.EmitUint8(flag)

	if last == nil {
		e.EmitSymbolValue(p.Label)
		return nil
	}
	if delta, ok := evalDelta(p.Label, last.Label); ok {
		e.EmitSLEB128(delta)
	} else {
		e.EmitAddrDelta(p.Label, last.Label)
	}
	return nil
}

// evalDelta evaluates a-b when both labels are resolved.
func evalDelta(a, b *Symbol) (int64, bool) {
	if a == nil || b == nil || !a.Resolved || !b.Resolved {
		return 0, false
	}
	return int64(a.Addr - b.Addr), true
}

// SectionBuffer is the in-memory Emitter used by tests and the CLI
// self test. Deferred fragments (unresolved symbol values and address
// deltas) are recorded at their buffer offsets and spliced in by Bytes
// once the symbols have been resolved.
type SectionBuffer struct {
	buf   bytes.Buffer
	frags []fragment
}

type fragment struct {
	at   int // offset in buf the fragment sits at
	a, b *Symbol
}

// NewSectionBuffer returns an empty in-memory section.
func NewSectionBuffer() *SectionBuffer {
	return &SectionBuffer{}
}

func (sb *SectionBuffer) EmitUint8(v uint8) {
	sb.buf.WriteByte(v)
}

func (sb *SectionBuffer) EmitUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	sb.buf.Write(b[:])
}

func (sb *SectionBuffer) EmitULEB128(v uint64) {
	sb.buf.Write(binary.AppendUvarint(nil, v))
}

func (sb *SectionBuffer) EmitSLEB128(v int64) {
	sb.buf.Write(appendSLEB128(nil, v))
}

func (sb *SectionBuffer) EmitSymbolValue(s *Symbol) {
	if s.Resolved {
		sb.EmitUint64(s.Addr)
		return
	}
	sb.frags = append(sb.frags, fragment{at: sb.buf.Len(), a: s})
	sb.EmitUint64(0) // relocation placeholder
}

func (sb *SectionBuffer) EmitAddrDelta(a, b *Symbol) {
	sb.frags = append(sb.frags, fragment{at: sb.buf.Len(), a: a, b: b})
}

// Len returns the number of fixed bytes emitted so far, excluding
// pending variable-length fragments.
func (sb *SectionBuffer) Len() int { return sb.buf.Len() }

// Bytes assembles the section, resolving deferred fragments against the
// symbols' current addresses. It fails if any fragment is still
// unresolvable.
func (sb *SectionBuffer) Bytes() ([]byte, error) {
	raw := sb.buf.Bytes()
	if len(sb.frags) == 0 {
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	}

	var out []byte
	prev := 0
	for _, f := range sb.frags {
		out = append(out, raw[prev:f.at]...)
		if f.b == nil {
			// Symbol-value placeholder: patch the 8 bytes in place.
			if !f.a.Resolved {
				return nil, fmt.Errorf("unresolved symbol %q", f.a.Name)
			}
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], f.a.Addr)
			out = append(out, b[:]...)
			prev = f.at + 8
			continue
		}
		delta, ok := evalDelta(f.a, f.b)
		if !ok {
			return nil, fmt.Errorf("unresolved address delta %q - %q", f.a.Name, f.b.Name)
		}
		out = append(out, appendSLEB128(nil, delta)...)
		prev = f.at
	}
	out = append(out, raw[prev:]...)
	return out, nil
}

// AppendFuncDesc appends one .pseudo_probe_desc record: GUID (u64 LE),
// content hash (u64 LE), name length (ULEB128), name bytes.
func AppendFuncDesc(dst []byte, fd FuncDesc) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, fd.GUID)
	dst = binary.LittleEndian.AppendUint64(dst, fd.Hash)
	dst = binary.AppendUvarint(dst, uint64(len(fd.Name)))
	return append(dst, fd.Name...)
}

// appendSLEB128 appends the SLEB128 encoding of v.
func appendSLEB128(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}
