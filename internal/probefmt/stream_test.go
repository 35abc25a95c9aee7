package probefmt

import (
	"errors"
	"testing"
)

func TestReadULEB128(t *testing.T) {
	tests := []struct {
		in   []byte
		want uint64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},           // 0 | (1 << 7)
		{[]byte{0xe5, 0x8e, 0x26}, 624485},  // classic LEB128 example
		{[]byte{0x80, 0x80, 0x01}, 1 << 14}, // three bytes
	}
	for _, tt := range tests {
		s := NewStream(tt.in)
		got, err := s.ReadULEB128(64)
		if err != nil {
			t.Errorf("ReadULEB128(%v): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadULEB128(%v) = %d, want %d", tt.in, got, tt.want)
		}
		if s.Remaining() != 0 {
			t.Errorf("ReadULEB128(%v) left %d bytes", tt.in, s.Remaining())
		}
	}
}

func TestReadULEB128_WidthCap(t *testing.T) {
	// 2^32 encodes fine but exceeds a 32-bit field.
	in := []byte{0x80, 0x80, 0x80, 0x80, 0x10}
	s := NewStream(in)
	if _, err := s.ReadULEB128(32); !errors.Is(err, ErrStreamOverrun) {
		t.Fatalf("want ErrStreamOverrun, got %v", err)
	}

	// The same bytes fit a 64-bit field.
	s = NewStream(in)
	got, err := s.ReadULEB128(64)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1<<32 {
		t.Fatalf("got %d, want %d", got, uint64(1)<<32)
	}
}

func TestReadULEB128_EOF(t *testing.T) {
	for _, in := range [][]byte{{}, {0x80}, {0x80, 0x80}} {
		s := NewStream(in)
		if _, err := s.ReadULEB128(64); !errors.Is(err, ErrStreamEOF) {
			t.Errorf("ReadULEB128(%v): want ErrStreamEOF, got %v", in, err)
		}
	}
}

func TestReadSLEB128(t *testing.T) {
	tests := []struct {
		in   []byte
		want int64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, -1},
		{[]byte{0x3f}, 63},
		{[]byte{0x40}, -64},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0x80, 0x7f}, -128},
		{[]byte{0xc0, 0xbb, 0x78}, -123456},
	}
	for _, tt := range tests {
		s := NewStream(tt.in)
		got, err := s.ReadSLEB128()
		if err != nil {
			t.Errorf("ReadSLEB128(%v): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadSLEB128(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReadUint64(t *testing.T) {
	s := NewStream([]byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01})
	got, err := s.ReadUint64()
	if err != nil {
		t.Fatal(err)
	}
	if want := uint64(0x0102030405060708); got != want {
		t.Fatalf("got %#x, want %#x", got, want)
	}

	s = NewStream([]byte{1, 2, 3})
	if _, err := s.ReadUint64(); !errors.Is(err, ErrStreamEOF) {
		t.Fatalf("want ErrStreamEOF, got %v", err)
	}
}

func TestReadString(t *testing.T) {
	s := NewStream([]byte("main!"))
	got, err := s.ReadString(4)
	if err != nil {
		t.Fatal(err)
	}
	if got != "main" {
		t.Fatalf("got %q, want %q", got, "main")
	}
	if s.Remaining() != 1 {
		t.Fatalf("remaining = %d, want 1", s.Remaining())
	}
	if _, err := s.ReadString(2); !errors.Is(err, ErrStreamEOF) {
		t.Fatalf("want ErrStreamEOF, got %v", err)
	}
}

func TestCursorAdvancesExactly(t *testing.T) {
	// Mixed reads must land the cursor exactly at the end.
	in := []byte{
		0x2a,                                           // byte
		0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // uint64
		0xe5, 0x8e, 0x26, // uleb
		0x7f, // sleb
	}
	s := NewStream(in)
	if _, err := s.ReadByte(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReadUint64(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReadULEB128(32); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReadSLEB128(); err != nil {
		t.Fatal(err)
	}
	if s.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", s.Remaining())
	}
	if s.Position() != len(in) {
		t.Fatalf("position = %d, want %d", s.Position(), len(in))
	}
}
