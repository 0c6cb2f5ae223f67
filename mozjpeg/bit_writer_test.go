package mozjpeg

import (
	"bytes"
	"testing"
)

func TestBitWriterBasic(t *testing.T) {
	w := NewBitWriter(16)
	w.Write(0x5, 3) // 101
	w.Write(0x0, 2) // 00
	w.Write(0x7, 3) // 111  -> 10100111 = 0xA7
	w.Pad()

	if got := w.DetachBuffer(); !bytes.Equal(got, []byte{0xA7}) {
		t.Errorf("got % x, want a7", got)
	}
}

func TestBitWriterPadWithOnes(t *testing.T) {
	w := NewBitWriter(16)
	w.Write(0x0, 3) // 000 -> padded to 00011111
	w.Pad()

	if got := w.DetachBuffer(); !bytes.Equal(got, []byte{0x1F}) {
		t.Errorf("got % x, want 1f", got)
	}
}

func TestBitWriterFFEscaping(t *testing.T) {
	w := NewBitWriter(16)
	w.Write(0xFF, 8)
	w.Write(0x12, 8)
	w.Pad()

	want := []byte{0xFF, 0x00, 0x12}
	if got := w.DetachBuffer(); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestBitWriterLongValues(t *testing.T) {
	w := NewBitWriter(64)
	// Spill across the 64-bit fill register
	for i := 0; i < 10; i++ {
		w.Write(0xABCD, 16)
	}
	w.Pad()

	got := w.DetachBuffer()
	if len(got) != 20 {
		t.Fatalf("got %d bytes, want 20", len(got))
	}
	for i := 0; i < 20; i += 2 {
		if got[i] != 0xAB || got[i+1] != 0xCD {
			t.Fatalf("byte pair %d: %02x%02x, want abcd", i, got[i], got[i+1])
		}
	}
}

func TestBitWriterDetachResets(t *testing.T) {
	w := NewBitWriter(16)
	w.Write(0x1, 1)
	w.Pad()
	w.DetachBuffer()

	if !w.HasNoRemainder() {
		t.Error("writer holds bits after detach")
	}
	if w.Len() != 0 {
		t.Errorf("writer holds %d bytes after detach", w.Len())
	}
}
