package probe

import (
	"crypto/md5"
	"encoding/binary"
)

// FuncGUID computes the 64-bit GUID of a function name: the low half of
// the MD5 digest, matching the GUIDs compilers write into
// .pseudo_probe_desc so that tables built here line up with real
// binaries.
func FuncGUID(name string) uint64 {
	sum := md5.Sum([]byte(name))
	return binary.LittleEndian.Uint64(sum[:8])
}
