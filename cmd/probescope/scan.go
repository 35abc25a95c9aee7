package main

import (
	"flag"
	"fmt"

	"probescope/internal/elfx"
	"probescope/internal/probe"
)

func cmdScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	bin := fs.String("bin", "", "path to ELF binary")
	debug := fs.Bool("debug", false, "verbose decode logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *bin == "" {
		return fmt.Errorf("--bin is required")
	}
	logger := newLogger(*debug)

	ef, err := elfx.Open(*bin)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer ef.Close()

	fmt.Printf("ELF: %s, %d bytes\n", ef.Machine(), ef.FileSize())
	for _, name := range []string{elfx.SecPseudoProbeDesc, elfx.SecPseudoProbe} {
		if s := ef.Section(name); s != nil {
			fmt.Printf("  %-20s %d bytes\n", name, s.Size)
		} else {
			fmt.Printf("  %-20s missing\n", name)
		}
	}

	d := probe.NewDecoder(logger)
	if data, err := ef.SectionData(elfx.SecPseudoProbeDesc); err == nil {
		if err := d.DecodeFuncDescs(data); err != nil {
			return fmt.Errorf("decode %s: %w", elfx.SecPseudoProbeDesc, err)
		}
	}
	if data, err := ef.SectionData(elfx.SecPseudoProbe); err == nil {
		if err := d.DecodeProbes(data, nil); err != nil {
			return fmt.Errorf("decode %s: %w", elfx.SecPseudoProbe, err)
		}
	}

	fmt.Printf("Function descriptors: %d\n", d.NumFuncDescs())
	fmt.Printf("Top-level functions:  %d\n", d.Root().NumChildren())
	fmt.Printf("Decoded probes:       %d\n", d.NumProbes())
	fmt.Printf("Probe addresses:      %d\n", len(d.Addresses()))
	for _, diag := range d.Diags() {
		fmt.Printf("  diag: %s\n", diag)
	}
	return nil
}
