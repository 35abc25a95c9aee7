// Package probefmt provides the byte-stream reader and diagnostics for
// pseudo-probe section parsing.
package probefmt

import "fmt"

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagTruncated   DiagKind = "truncated"
	DiagInvalid     DiagKind = "invalid"
	DiagDuplicate   DiagKind = "duplicate"
	DiagUnknownType DiagKind = "unknown_type"
)

// Diag records a non-fatal issue encountered during parsing.
type Diag struct {
	Offset uint64   `json:"offset"`
	Kind   DiagKind `json:"kind"`
	Msg    string   `json:"msg"`
}

func (d Diag) String() string {
	return fmt.Sprintf("[%s] 0x%x: %s", d.Kind, d.Offset, d.Msg)
}

// Diags accumulates diagnostics.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(offset uint64, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(offset uint64, kind DiagKind, format string, args ...any) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }
