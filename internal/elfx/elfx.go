// Package elfx provides ELF loading helpers for binaries carrying
// pseudo-probe sections.
package elfx

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Section names the pseudo-probe metadata lives in.
const (
	SecPseudoProbe     = ".pseudo_probe"
	SecPseudoProbeDesc = ".pseudo_probe_desc"
)

var (
	ErrNotELF    = errors.New("elfx: not an ELF file")
	ErrNot64Bit  = errors.New("elfx: not 64-bit ELF")
	ErrNoSection = errors.New("elfx: section not found")
	ErrNoSegment = errors.New("elfx: no PT_LOAD segment covers address")
)

// File wraps a debug/elf.File with convenience methods for pseudo-probe
// analysis.
type File struct {
	ELF  *elf.File
	raw  io.ReaderAt
	size int64
}

// Open opens an ELF file and validates it is 64-bit. Executables,
// shared objects, and relocatable objects all carry probe sections.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfx: open: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("elfx: stat: %w", err)
	}

	ef, err := elf.NewFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotELF, err)
	}

	if ef.Class != elf.ELFCLASS64 {
		ef.Close()
		f.Close()
		return nil, ErrNot64Bit
	}

	return &File{ELF: ef, raw: f, size: info.Size()}, nil
}

// Close releases resources. elf.NewFile does not own the reader, so the
// underlying file is closed here.
func (f *File) Close() error {
	f.ELF.Close()
	if c, ok := f.raw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// FileSize returns the size of the underlying file.
func (f *File) FileSize() int64 { return f.size }

// Machine returns the ELF machine type.
func (f *File) Machine() elf.Machine { return f.ELF.Machine }

// Section returns the named section, nil if absent.
func (f *File) Section(name string) *elf.Section {
	return f.ELF.Section(name)
}

// SectionData reads the full contents of the named section.
func (f *File) SectionData(name string) ([]byte, error) {
	s := f.ELF.Section(name)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSection, name)
	}
	data, err := s.Data()
	if err != nil {
		return nil, fmt.Errorf("elfx: read %s: %w", name, err)
	}
	return data, nil
}

// VAToFileOffset converts a virtual address to a file offset using
// PT_LOAD segments.
func (f *File) VAToFileOffset(va uint64) (uint64, error) {
	for _, p := range f.ELF.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if va >= p.Vaddr && va < p.Vaddr+p.Memsz {
			offset := va - p.Vaddr + p.Off
			if offset >= uint64(f.size) {
				return 0, fmt.Errorf("elfx: VA 0x%x maps to offset 0x%x beyond file size 0x%x", va, offset, f.size)
			}
			return offset, nil
		}
	}
	return 0, fmt.Errorf("%w: VA 0x%x", ErrNoSegment, va)
}

// ReadBytesAtVA reads up to n bytes starting at the given virtual
// address, clamped to the end of the file.
func (f *File) ReadBytesAtVA(va uint64, n int) ([]byte, error) {
	off, err := f.VAToFileOffset(va)
	if err != nil {
		return nil, err
	}
	avail := f.size - int64(off)
	if avail <= 0 {
		return nil, fmt.Errorf("elfx: offset 0x%x at or past end of file", off)
	}
	if int64(n) > avail {
		n = int(avail)
	}
	buf := make([]byte, n)
	_, err = f.raw.ReadAt(buf, int64(off))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("elfx: read at 0x%x: %w", off, err)
	}
	return buf, nil
}

// SegmentInfo describes a PT_LOAD segment.
type SegmentInfo struct {
	Vaddr  uint64
	Memsz  uint64
	Filesz uint64
	Offset uint64
	Flags  elf.ProgFlag
}

// LoadSegments returns all PT_LOAD segments.
func (f *File) LoadSegments() []SegmentInfo {
	var segs []SegmentInfo
	for _, p := range f.ELF.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		segs = append(segs, SegmentInfo{
			Vaddr:  p.Vaddr,
			Memsz:  p.Memsz,
			Filesz: p.Filesz,
			Offset: p.Off,
			Flags:  p.Flags,
		})
	}
	return segs
}

// ByteOrder returns the ELF byte order.
func (f *File) ByteOrder() binary.ByteOrder {
	return f.ELF.ByteOrder
}
