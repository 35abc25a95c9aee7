// Package probe implements the pseudo-probe inline forest, its binary
// encoding and decoding, and the address-indexed query layer.
//
// Pseudo probes are zero-cost instrumentation markers a compiler attaches
// to code addresses. The .pseudo_probe section stores, per function, a
// tree of inlining events: each node is a function body identified by a
// 64-bit GUID, holding the probes that originate in that body and one
// child per callee inlined into it.
package probe

import (
	"fmt"
	"strings"
)

// Type is the probe kind, bits 0-3 of the flag byte.
type Type uint8

const (
	Block        Type = 0
	IndirectCall Type = 1
	DirectCall   Type = 2
)

func (t Type) String() string {
	switch t {
	case Block:
		return "Block"
	case IndirectCall:
		return "IndirectCall"
	case DirectCall:
		return "DirectCall"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// IsCall reports whether the probe marks a call site.
func (t Type) IsCall() bool {
	return t == IndirectCall || t == DirectCall
}

// Attributes is the probe attribute bitset, bits 4-6 of the flag byte.
type Attributes uint8

const (
	AttrTailCall Attributes = 1 << 0
	AttrDangling Attributes = 1 << 1
)

func (a Attributes) String() string {
	if a == 0 {
		return ""
	}
	var parts []string
	if a&AttrTailCall != 0 {
		parts = append(parts, "tail_call")
	}
	if a&AttrDangling != 0 {
		parts = append(parts, "dangling")
	}
	if rest := a &^ (AttrTailCall | AttrDangling); rest != 0 {
		parts = append(parts, fmt.Sprintf("attr(%d)", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// Flag byte layout: bits 0-3 type, bits 4-6 attributes, bit 7 address
// mode (0 = absolute 8-byte address, 1 = SLEB128 delta from the
// previous probe in stream order).
const (
	flagTypeMask  = 0x0f
	flagAttrShift = 4
	flagAttrMask  = 0x70
	flagAddrDelta = 0x80

	maxType       = 0x0f
	maxAttributes = 0x07
)

func packFlag(t Type, a Attributes) uint8 {
	return uint8(t)&flagTypeMask | uint8(a)<<flagAttrShift&flagAttrMask
}

func unpackFlag(b uint8) (t Type, a Attributes, delta bool) {
	return Type(b & flagTypeMask), Attributes(b & flagAttrMask >> flagAttrShift), b&flagAddrDelta != 0
}

// Symbol is the encode-side address label of a probe. An unresolved
// symbol stands for an address the assembler has not fixed yet; deltas
// against it are deferred to the emission backend as fragments.
type Symbol struct {
	Name     string
	Addr     uint64
	Resolved bool
}

// Probe is one encode-side pseudo probe.
type Probe struct {
	Index      uint64
	Type       Type
	Attributes Attributes
	Label      *Symbol
}

// validate rejects field values the flag byte cannot carry. The wire
// format has 4 bits for the type and 3 for attributes; overflow here is
// an API misuse caught before any bytes are emitted.
func (p *Probe) validate() error {
	if p.Type > maxType {
		return fmt.Errorf("probe %d: type %d exceeds %d", p.Index, p.Type, maxType)
	}
	if p.Attributes > maxAttributes {
		return fmt.Errorf("probe %d: attributes %#x exceed %#x", p.Index, p.Attributes, maxAttributes)
	}
	if p.Label == nil {
		return fmt.Errorf("probe %d: no address label", p.Index)
	}
	return nil
}

// Decoded is one probe reconstructed from a .pseudo_probe section.
// Decoded probes are owned by the decoder's address index; tree nodes
// hold non-owning references. Immutable once constructed.
type Decoded struct {
	Address    uint64
	GUID       uint64
	Index      uint64
	Type       Type
	Attributes Attributes

	// Node is the inline-tree node the probe originates from.
	Node *DecodedNode
}

// IsCall reports whether the probe marks a call site.
func (d *Decoded) IsCall() bool { return d.Type.IsCall() }
