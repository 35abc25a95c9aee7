package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

func cmdAddress(args []string) error {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	bin := fs.String("bin", "", "path to ELF binary")
	addrStr := fs.String("addr", "", "code address (decimal or 0x hex)")
	debug := fs.Bool("debug", false, "verbose decode logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *addrStr == "" {
		return fmt.Errorf("--addr is required")
	}
	addr, err := strconv.ParseUint(*addrStr, 0, 64)
	if err != nil {
		return fmt.Errorf("bad address %q: %w", *addrStr, err)
	}
	logger := newLogger(*debug)

	d, ef, err := loadDecoder(*bin, "", logger)
	if err != nil {
		return err
	}
	defer ef.Close()

	probes := d.ProbesAt(addr)
	if len(probes) == 0 {
		fmt.Printf("no probes at 0x%x\n", addr)
		return nil
	}

	fmt.Printf("Address:\t%d\n", addr)
	d.PrintProbesAt(os.Stdout, addr)

	for _, p := range probes {
		fmt.Printf("\nContext of %s:%d:\n", d.FuncName(p.GUID), p.Index)
		for _, f := range d.InlineContext(p, true) {
			fmt.Printf("  %s:%d\n", f.FuncName, f.Index)
		}
		if inliner := d.InlinerDesc(p); inliner != nil {
			fmt.Printf("  inlined into %s (hash %d)\n", inliner.Name, inliner.Hash)
		}
	}
	if cp := d.CallProbeAt(addr); cp != nil {
		fmt.Printf("\nCall probe: %s:%d (%s)\n", d.FuncName(cp.GUID), cp.Index, cp.Type)
	}
	return nil
}
