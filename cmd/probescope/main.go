package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "scan":
		err = cmdScan(os.Args[2:])
	case "descs":
		err = cmdDescs(os.Args[2:])
	case "probes":
		err = cmdProbes(os.Args[2:])
	case "address":
		err = cmdAddress(os.Args[2:])
	case "graph":
		err = cmdGraph(os.Args[2:])
	case "annotate":
		err = cmdAnnotate(os.Args[2:])
	case "selftest":
		err = cmdSelftest(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `probescope — pseudo-probe section inspector

Usage:
  probescope scan     --bin <path>                Report probe sections and decode stats
  probescope descs    --bin <path> [--json]       Dump the function descriptor table
  probescope probes   --bin <path> [--guids a,b]  Dump decoded probes for all addresses
  probescope address  --bin <path> --addr <addr>  Probes and inline context at one address
  probescope graph    --bin <path> [--out <file>] Inline call graph as DOT
  probescope annotate --bin <path> [--guids a,b]  Probes with the instruction at their address
  probescope selftest                             Encode/decode round trip over a synthetic forest

Flags:
  --bin <path>       Path to an ELF binary with .pseudo_probe sections
  --guids a,b        Keep only these top-level functions (names or GUIDs)
  --addr <addr>      Code address (decimal or 0x hex)
  --debug            Verbose decode logging
`)
}
