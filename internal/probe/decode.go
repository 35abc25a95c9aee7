package probe

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"probescope/internal/probefmt"
)

// FuncDesc describes one defined function from the .pseudo_probe_desc
// section: its GUID, the content hash of its body, and its name.
type FuncDesc struct {
	GUID uint64 `json:"guid"`
	Hash uint64 `json:"hash"`
	Name string `json:"name"`
}

// Decoder parses the pseudo-probe sections of one binary and serves
// queries over the result. Decode once, then read-only.
type Decoder struct {
	logger log.Logger

	descs       map[uint64]*FuncDesc
	root        *DecodedNode
	addr2probes map[uint64][]*Decoded
	diags       probefmt.Diags
}

// NewDecoder returns a decoder logging through the given logger; nil
// means no logging.
func NewDecoder(logger log.Logger) *Decoder {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Decoder{
		logger:      logger,
		descs:       make(map[uint64]*FuncDesc),
		root:        &DecodedNode{},
		addr2probes: make(map[uint64][]*Decoded),
	}
}

// Root returns the synthetic root of the decoded inline forest.
func (d *Decoder) Root() *DecodedNode { return d.root }

// Diags returns non-fatal findings accumulated across decodes.
func (d *Decoder) Diags() []probefmt.Diag { return d.diags.Items() }

// DecodeFuncDescs parses a .pseudo_probe_desc section: a flat run of
// GUID (u64 LE), content hash (u64 LE), name length (ULEB128), name
// bytes, repeated until end of input. A failed field aborts the decode
// without inserting the partial record. Duplicate GUIDs overwrite the
// earlier entry with a warning.
func (d *Decoder) DecodeFuncDescs(data []byte) error {
	s := probefmt.NewStream(data)
	for s.Remaining() > 0 {
		at := s.Position()
		guid, err := s.ReadUint64()
		if err != nil {
			return fmt.Errorf("desc at offset %d: guid: %w", at, err)
		}
		hash, err := s.ReadUint64()
		if err != nil {
			return fmt.Errorf("desc at offset %d: hash: %w", at, err)
		}
		nameLen, err := s.ReadULEB128(32)
		if err != nil {
			return fmt.Errorf("desc at offset %d: name length: %w", at, err)
		}
		name, err := s.ReadString(int(nameLen))
		if err != nil {
			return fmt.Errorf("desc at offset %d: name: %w", at, err)
		}
		if prev, ok := d.descs[guid]; ok {
			d.diags.Addf(uint64(at), probefmt.DiagDuplicate,
				"guid %d redefined: %q overwrites %q", guid, name, prev.Name)
			level.Warn(d.logger).Log("msg", "duplicate function descriptor guid",
				"guid", guid, "name", name, "prev", prev.Name)
		}
		d.descs[guid] = &FuncDesc{GUID: guid, Hash: hash, Name: name}
	}
	return nil
}

// decodeState is the mutable state threaded through the recursive
// probe-section decode: the shared cursor and the running last address
// the delta encoding chains against. One per section decode; the
// running address is not reset at node or subtree boundaries, and not
// filter-dependent.
type decodeState struct {
	s        *probefmt.Stream
	lastAddr uint64
}

// DecodeProbes parses a .pseudo_probe section into the inline forest
// and the address index. A non-empty guidFilter keeps only the named
// top-level GUIDs; excluded subtrees are still fully parsed (the cursor
// advances identically) but contribute no nodes, probes, or index
// entries. Any malformed field aborts the whole section decode.
func (d *Decoder) DecodeProbes(data []byte, guidFilter map[uint64]struct{}) error {
	st := &decodeState{s: probefmt.NewStream(data)}
	for st.s.Remaining() > 0 {
		if err := d.decodeBody(st, d.root, guidFilter, 0); err != nil {
			return err
		}
	}
	return nil
}

// decodeBody parses one function-body record under cur. A nil cur means
// the enclosing top-level subtree was filtered out: everything is still
// parsed, nothing is recorded.
func (d *Decoder) decodeBody(st *decodeState, cur *DecodedNode, guidFilter map[uint64]struct{}, depth int) error {
	at := st.s.Position()

	// Top-level records carry no inline-site index; siblings are told
	// apart by a synthesized sequential one.
	var index uint64
	topLevel := cur == d.root
	if topLevel {
		index = uint64(d.root.NumChildren())
	} else {
		v, err := st.s.ReadULEB128(32)
		if err != nil {
			return fmt.Errorf("body at offset %d: inline site: %w", at, err)
		}
		index = v
	}

	guid, err := st.s.ReadUint64()
	if err != nil {
		return fmt.Errorf("body at offset %d: guid: %w", at, err)
	}

	// The filtering decision is made once, at the top level, and
	// propagates to the whole subtree via cur == nil.
	if topLevel && len(guidFilter) > 0 {
		if _, ok := guidFilter[guid]; !ok {
			cur = nil
		}
	}
	if cur != nil {
		cur = cur.GetOrAddNode(InlineSite{GUID: guid, Index: index})
		cur.GUID = guid
	}

	probeCount, err := st.s.ReadULEB128(32)
	if err != nil {
		return fmt.Errorf("body at offset %d: probe count: %w", at, err)
	}
	childCount, err := st.s.ReadULEB128(32)
	if err != nil {
		return fmt.Errorf("body at offset %d: child count: %w", at, err)
	}
	level.Debug(d.logger).Log("msg", "function body", "offset", at, "guid", guid,
		"probes", probeCount, "children", childCount, "depth", depth)

	for i := uint64(0); i < probeCount; i++ {
		if err := d.decodeProbe(st, cur); err != nil {
			return fmt.Errorf("body at offset %d: probe %d: %w", at, i, err)
		}
	}
	for i := uint64(0); i < childCount; i++ {
		if err := d.decodeBody(st, cur, guidFilter, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// decodeProbe parses one probe record and, unless the subtree is
// filtered, files it in the address index and the current node. The
// running address advances regardless of filtering.
func (d *Decoder) decodeProbe(st *decodeState, cur *DecodedNode) error {
	index, err := st.s.ReadULEB128(32)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	flag, err := st.s.ReadByte()
	if err != nil {
		return fmt.Errorf("flag: %w", err)
	}
	typ, attrs, isDelta := unpackFlag(flag)

	var addr uint64
	if isDelta {
		delta, err := st.s.ReadSLEB128()
		if err != nil {
			return fmt.Errorf("address delta: %w", err)
		}
		addr = uint64(int64(st.lastAddr) + delta)
	} else {
		addr, err = st.s.ReadUint64()
		if err != nil {
			return fmt.Errorf("address: %w", err)
		}
	}

	if typ > DirectCall {
		d.diags.Addf(uint64(st.s.Position()), probefmt.DiagUnknownType,
			"probe %d at 0x%x has unknown type %d", index, addr, typ)
	}

	if cur != nil {
		p := &Decoded{
			Address:    addr,
			GUID:       cur.GUID,
			Index:      index,
			Type:       typ,
			Attributes: attrs,
			Node:       cur,
		}
		d.addr2probes[addr] = append(d.addr2probes[addr], p)
		cur.Probes = append(cur.Probes, p)
	}
	st.lastAddr = addr
	return nil
}
