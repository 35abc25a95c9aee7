package main

import (
	"encoding/json"
	"flag"
	"os"
)

func cmdDescs(args []string) error {
	fs := flag.NewFlagSet("descs", flag.ExitOnError)
	bin := fs.String("bin", "", "path to ELF binary")
	jsonOut := fs.Bool("json", false, "output as JSON")
	debug := fs.Bool("debug", false, "verbose decode logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := newLogger(*debug)

	d, ef, err := loadDecoder(*bin, "", logger)
	if err != nil {
		return err
	}
	defer ef.Close()

	if !*jsonOut {
		d.PrintFuncDescs(os.Stdout)
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(d.FuncDescsSorted())
}
