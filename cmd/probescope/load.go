package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"probescope/internal/elfx"
	"probescope/internal/probe"
)

func newLogger(debug bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	if debug {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowInfo())
}

// parseGUIDFilter turns a comma-separated list of function names or
// numeric GUIDs into a top-level allow-list.
func parseGUIDFilter(s string) map[uint64]struct{} {
	if s == "" {
		return nil
	}
	filter := make(map[uint64]struct{})
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if guid, err := strconv.ParseUint(part, 0, 64); err == nil {
			filter[guid] = struct{}{}
		} else {
			filter[probe.FuncGUID(part)] = struct{}{}
		}
	}
	return filter
}

// loadDecoder opens the binary and decodes both probe sections. The
// descriptor section is optional (probes print numeric GUIDs without
// it); the probe section is not.
func loadDecoder(path, guids string, logger log.Logger) (*probe.Decoder, *elfx.File, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("--bin is required")
	}
	ef, err := elfx.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}

	d := probe.NewDecoder(logger)

	if descData, err := ef.SectionData(elfx.SecPseudoProbeDesc); err == nil {
		if err := d.DecodeFuncDescs(descData); err != nil {
			ef.Close()
			return nil, nil, fmt.Errorf("decode %s: %w", elfx.SecPseudoProbeDesc, err)
		}
	} else {
		level.Warn(logger).Log("msg", "no descriptor section, printing numeric guids", "err", err)
	}

	probeData, err := ef.SectionData(elfx.SecPseudoProbe)
	if err != nil {
		ef.Close()
		return nil, nil, fmt.Errorf("read %s: %w", elfx.SecPseudoProbe, err)
	}
	if err := d.DecodeProbes(probeData, parseGUIDFilter(guids)); err != nil {
		ef.Close()
		return nil, nil, fmt.Errorf("decode %s: %w", elfx.SecPseudoProbe, err)
	}

	for _, diag := range d.Diags() {
		level.Warn(logger).Log("msg", "decode diagnostic", "diag", diag.String())
	}
	return d, ef, nil
}
