package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zboralski/lattice/render"

	"probescope/internal/callgraph"
)

func cmdGraph(args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	bin := fs.String("bin", "", "path to ELF binary")
	guids := fs.String("guids", "", "keep only these top-level functions (names or GUIDs)")
	out := fs.String("out", "", "DOT output file (default stdout)")
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

	g := callgraph.Build(d)
	dot := render.DOT(g, "inline graph")

	if *out == "" {
		fmt.Print(dot)
		return nil
	}
	if err := os.WriteFile(*out, []byte(dot), 0644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d nodes, %d edges)\n", *out, len(g.Nodes), len(g.Edges))
	return nil
}
