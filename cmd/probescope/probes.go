package main

import (
	"flag"
	"os"
)

func cmdProbes(args []string) error {
	fs := flag.NewFlagSet("probes", flag.ExitOnError)
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

	d.PrintAllProbes(os.Stdout)
	return nil
}
