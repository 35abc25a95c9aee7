package main

import (
	"debug/elf"
	"flag"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// cmdAnnotate prints each probe together with the instruction at its
// address, showing what the probe marks (a call, a block entry).
func cmdAnnotate(args []string) error {
	fs := flag.NewFlagSet("annotate", flag.ExitOnError)
	bin := fs.String("bin", "", "path to ELF binary")
	guids := fs.String("guids", "", "keep only these top-level functions (names or GUIDs)")
	debug := fs.Bool("debug", false, "verbose decode logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := newLogger(*debug)

	d, ef, err := loadDecoder(*bin, *guids, logger)
	if err != nil {
		return err
	}
	defer ef.Close()

	if ef.Machine() != elf.EM_X86_64 {
		return fmt.Errorf("annotate supports x86-64 binaries, got %s", ef.Machine())
	}

	for _, addr := range d.Addresses() {
		text := "?"
		// 15 bytes is the x86 instruction length ceiling.
		if code, err := ef.ReadBytesAtVA(addr, 15); err == nil {
			if inst, err := x86asm.Decode(code, 64); err == nil {
				text = x86asm.GNUSyntax(inst, addr, nil)
			}
		}
		fmt.Printf("0x%-12x %-32s\n", addr, text)
		for _, p := range d.ProbesAt(addr) {
			mark := fmt.Sprintf("%s:%d %s", d.FuncName(p.GUID), p.Index, p.Type)
			if attrs := p.Attributes.String(); attrs != "" {
				mark += " [" + attrs + "]"
			}
			fmt.Printf("    %s\n", mark)
		}
	}
	return nil
}
