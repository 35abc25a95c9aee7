package probe

import (
	"fmt"
	"io"
	"sort"
)

// PrintFuncDescs writes the descriptor table in GUID order.
func (d *Decoder) PrintFuncDescs(w io.Writer) {
	guids := make([]uint64, 0, len(d.descs))
	for guid := range d.descs {
		guids = append(guids, guid)
	}
	sort.Slice(guids, func(i, j int) bool { return guids[i] < guids[j] })

	fmt.Fprintf(w, "Pseudo Probe Desc:\n")
	for _, guid := range guids {
		fd := d.descs[guid]
		fmt.Fprintf(w, "GUID: %d Name: %s\n", fd.GUID, fd.Name)
		fmt.Fprintf(w, "Hash: %d\n", fd.Hash)
	}
}

// PrintProbe writes one decoded probe. With showName GUIDs are resolved
// through the descriptor table.
func (d *Decoder) PrintProbe(w io.Writer, p *Decoded, showName bool) {
	fmt.Fprintf(w, "FUNC: ")
	if showName {
		fmt.Fprintf(w, "%s ", d.FuncName(p.GUID))
	} else {
		fmt.Fprintf(w, "%d ", p.GUID)
	}
	fmt.Fprintf(w, "Index: %d  ", p.Index)
	fmt.Fprintf(w, "Type: %s  ", p.Type)
	if ctx := d.InlineContextString(p); ctx != "" {
		fmt.Fprintf(w, "Inlined: @ %s", ctx)
	}
	fmt.Fprintf(w, "\n")
}

// PrintProbesAt writes every probe decoded at the address.
func (d *Decoder) PrintProbesAt(w io.Writer, addr uint64) {
	for _, p := range d.addr2probes[addr] {
		fmt.Fprintf(w, " [Probe]:\t")
		d.PrintProbe(w, p, true)
	}
}

// PrintAllProbes writes the probes of every indexed address, addresses
// sorted for a reproducible report.
func (d *Decoder) PrintAllProbes(w io.Writer) {
	addrs := make([]uint64, 0, len(d.addr2probes))
	for addr := range d.addr2probes {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, addr := range addrs {
		fmt.Fprintf(w, "Address:\t%d\n", addr)
		d.PrintProbesAt(w, addr)
	}
}

// Addresses returns every indexed address in ascending order.
func (d *Decoder) Addresses() []uint64 {
	addrs := make([]uint64, 0, len(d.addr2probes))
	for addr := range d.addr2probes {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// NumProbes returns the total number of decoded probes.
func (d *Decoder) NumProbes() int {
	n := 0
	for _, ps := range d.addr2probes {
		n += len(ps)
	}
	return n
}
