package probe

import (
	"fmt"
	"sort"
	"strings"
)

// FrameLocation is one frame of an inlining call chain: the function
// name and the probe index of the call site within it (or, for the leaf
// frame, the probe's own index).
type FrameLocation struct {
	FuncName string
	Index    uint64
}

// ProbesAt returns the probes decoded at the given address, nil if the
// address carries none.
func (d *Decoder) ProbesAt(addr uint64) []*Decoded {
	return d.addr2probes[addr]
}

// CallProbeAt returns the call-type probe at the address, or nil. At
// most one call probe per address is a format-level invariant the
// decoder does not enforce; if violated the first one wins.
func (d *Decoder) CallProbeAt(addr uint64) *Decoded {
	for _, p := range d.addr2probes[addr] {
		if p.IsCall() {
			return p
		}
	}
	return nil
}

// FuncDesc returns the descriptor for a GUID, nil if absent. Every GUID
// reachable through a decoded probe is expected to have one; absence
// means the binary's sections disagree with each other.
func (d *Decoder) FuncDesc(guid uint64) *FuncDesc {
	return d.descs[guid]
}

// NumFuncDescs returns the descriptor-table size.
func (d *Decoder) NumFuncDescs() int { return len(d.descs) }

// FuncDescsSorted returns every descriptor in GUID order.
func (d *Decoder) FuncDescsSorted() []*FuncDesc {
	out := make([]*FuncDesc, 0, len(d.descs))
	for _, fd := range d.descs {
		out = append(out, fd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GUID < out[j].GUID })
	return out
}

// FuncName resolves a GUID to its function name, falling back to the
// numeric GUID when no descriptor table was decoded.
func (d *Decoder) FuncName(guid uint64) string {
	if fd := d.descs[guid]; fd != nil {
		return fd.Name
	}
	return fmt.Sprintf("%d", guid)
}

// InlineContext reconstructs the inlining call chain of a probe in
// caller-to-callee order. Each frame names the inlining function and
// the call-site probe index the next frame was inlined at. With
// includeLeaf the probe's own function and index are appended as the
// innermost frame.
func (d *Decoder) InlineContext(p *Decoded, includeLeaf bool) []FrameLocation {
	var stack []FrameLocation
	for cur := p.Node; cur.HasInlineSite(); cur = cur.Parent {
		stack = append(stack, FrameLocation{
			FuncName: d.FuncName(cur.Parent.GUID),
			Index:    cur.Site.Index,
		})
	}
	// The walk yields callee-to-caller order; flip it.
	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}
	if includeLeaf {
		stack = append(stack, FrameLocation{FuncName: d.FuncName(p.GUID), Index: p.Index})
	}
	return stack
}

// InlineContextString renders the chain as "A:5 @ B:9", without the
// leaf frame.
func (d *Decoder) InlineContextString(p *Decoded) string {
	frames := d.InlineContext(p, false)
	parts := make([]string, len(frames))
	for i, f := range frames {
		parts[i] = fmt.Sprintf("%s:%d", f.FuncName, f.Index)
	}
	return strings.Join(parts, " @ ")
}

// InlinerDesc returns the descriptor of the function the probe's body
// was inlined into, or nil when the probe belongs to a top-level,
// non-inlined function.
func (d *Decoder) InlinerDesc(p *Decoded) *FuncDesc {
	if !p.Node.HasInlineSite() {
		return nil
	}
	return d.FuncDesc(p.Node.Parent.GUID)
}
