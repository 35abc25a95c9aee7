package main

import (
	"flag"
	"fmt"
	"os"

	"probescope/internal/probe"
)

type bufResolver struct {
	sections map[string]*probe.SectionBuffer
}

func (r *bufResolver) Section(division string) (probe.Emitter, bool) {
	sb, ok := r.sections[division]
	return sb, ok
}

// cmdSelftest builds a small synthetic inline forest, encodes it, then
// decodes the bytes and prints the resulting report. A quick end-to-end
// check of the whole pipeline without needing a probed binary.
func cmdSelftest(args []string) error {
	fs := flag.NewFlagSet("selftest", flag.ExitOnError)
	debug := fs.Bool("debug", false, "verbose decode logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := newLogger(*debug)

	guidMain := probe.FuncGUID("main")
	guidUtil := probe.FuncGUID("util")
	guidLeaf := probe.FuncGUID("leaf")

	sym := func(addr uint64) *probe.Symbol {
		return &probe.Symbol{Addr: addr, Resolved: true}
	}

	// main has two probes; util is inlined into main at probe 2 and
	// inlines leaf in turn at its probe 1.
	table := probe.NewTable()
	root := table.Division("text.main")
	root.AddProbe(guidMain, &probe.Probe{Index: 1, Type: probe.Block, Label: sym(0x1000)}, nil)
	root.AddProbe(guidMain, &probe.Probe{Index: 2, Type: probe.DirectCall, Label: sym(0x1010)}, nil)
	root.AddProbe(guidUtil, &probe.Probe{Index: 1, Type: probe.Block, Label: sym(0x1020)},
		[]probe.InlineFrame{{GUID: guidMain, Index: 2}})
	root.AddProbe(guidLeaf, &probe.Probe{Index: 1, Type: probe.Block, Label: sym(0x1030)},
		[]probe.InlineFrame{{GUID: guidMain, Index: 2}, {GUID: guidUtil, Index: 1}})

	sb := probe.NewSectionBuffer()
	if err := table.Emit(&bufResolver{sections: map[string]*probe.SectionBuffer{"text.main": sb}}); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	encoded, err := sb.Bytes()
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}

	var descs []byte
	for _, fd := range []probe.FuncDesc{
		{GUID: guidMain, Hash: 0x1234, Name: "main"},
		{GUID: guidUtil, Hash: 0x5678, Name: "util"},
		{GUID: guidLeaf, Hash: 0x9abc, Name: "leaf"},
	} {
		descs = probe.AppendFuncDesc(descs, fd)
	}

	d := probe.NewDecoder(logger)
	if err := d.DecodeFuncDescs(descs); err != nil {
		return fmt.Errorf("decode descs: %w", err)
	}
	if err := d.DecodeProbes(encoded, nil); err != nil {
		return fmt.Errorf("decode probes: %w", err)
	}

	fmt.Printf("encoded %d probe bytes, %d desc bytes\n\n", len(encoded), len(descs))
	d.PrintFuncDescs(os.Stdout)
	fmt.Println()
	d.PrintAllProbes(os.Stdout)

	if got, want := d.NumProbes(), 4; got != want {
		return fmt.Errorf("selftest: decoded %d probes, want %d", got, want)
	}
	p := d.CallProbeAt(0x1010)
	if p == nil {
		return fmt.Errorf("selftest: no call probe at 0x1010")
	}
	fmt.Printf("\ncall probe at 0x1010: %s:%d\n", d.FuncName(p.GUID), p.Index)
	return nil
}
