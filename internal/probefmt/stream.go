// Pseudo-probe section stream reader.
// Implements the fixed-width and LEB128 encodings used by the
// .pseudo_probe and .pseudo_probe_desc sections.
package probefmt

import (
	"encoding/binary"
	"errors"
)

var (
	ErrStreamEOF     = errors.New("stream: unexpected end of data")
	ErrStreamOverrun = errors.New("stream: value too large for target width")
)

// Stream reads pseudo-probe section data. It carries the single cursor
// that all decoders in a section share; every read either consumes its
// full encoding or fails without advancing past the end.
type Stream struct {
	data []byte
	pos  int
	end  int
}

// NewStream creates a stream over the given data.
func NewStream(data []byte) *Stream {
	return &Stream{data: data, pos: 0, end: len(data)}
}

// Position returns the current read position.
func (s *Stream) Position() int { return s.pos }

// Remaining returns bytes left to read.
func (s *Stream) Remaining() int { return s.end - s.pos }

// ReadByte reads a single byte.
func (s *Stream) ReadByte() (byte, error) {
	if s.pos >= s.end {
		return 0, ErrStreamEOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// ReadUint64 reads a little-endian uint64.
func (s *Stream) ReadUint64() (uint64, error) {
	if s.pos+8 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint64(s.data[s.pos:])
	s.pos += 8
	return v, nil
}

// ReadString reads n bytes as a string (no terminator).
func (s *Stream) ReadString(n int) (string, error) {
	if n < 0 || s.pos+n > s.end {
		return "", ErrStreamEOF
	}
	str := string(s.data[s.pos : s.pos+n])
	s.pos += n
	return str, nil
}

// ReadULEB128 reads an unsigned LEB128 value that must fit in maxBits
// bits. A value that decodes fine but exceeds the target width is an
// ErrStreamOverrun, mirroring the per-field width contract of the
// section format (counts and indexes are 32-bit fields on the wire).
func (s *Stream) ReadULEB128(maxBits uint) (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift >= 64 || (shift == 63 && b&0x7f > 1) {
			return 0, ErrStreamOverrun
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	if maxBits < 64 && v > (uint64(1)<<maxBits)-1 {
		return 0, ErrStreamOverrun
	}
	return v, nil
}

// ReadSLEB128 reads a signed LEB128 value into an int64.
func (s *Stream) ReadSLEB128() (int64, error) {
	var v int64
	var shift uint
	for {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift >= 64 {
			return 0, ErrStreamOverrun
		}
		v |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			// Sign-extend from the final data byte.
			if shift < 64 && b&0x40 != 0 {
				v |= -1 << shift
			}
			break
		}
	}
	return v, nil
}
