package ioadapter

import (
	"io"
	"os"
	"testing"
)

func TestFileAdapterWriteRetriesShortWrites(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ioadapter-write-*")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()

	a := NewFileAdapter(f)
	payload := make([]byte, 1<<20) // large enough that most OSes will split it internally
	for i := range payload {
		payload[i] = byte(i)
	}

	n, err := a.Write(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("wrote %d, want %d", n, len(payload))
	}

	got, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("file has %d bytes, want %d", len(got), len(payload))
	}
}

func TestFileAdapterReadPropagatesEOFUnwrapped(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ioadapter-read-*")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()

	if _, err := f.WriteString("hi"); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}

	a := NewFileAdapter(f)
	buf := make([]byte, 16)
	n, err := a.Read(buf)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if string(buf[:n]) != "hi" {
		t.Fatalf("got %q", buf[:n])
	}

	_, err = a.Read(buf)
	if err != io.EOF {
		t.Fatalf("expected raw io.EOF, got %v", err)
	}
}

func TestFileAdapterWriteVecWritesAllBuffers(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ioadapter-writev-*")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()

	a := NewFileAdapter(f)
	bufs := [][]byte{[]byte("cba\n"), []byte(""), []byte("fed\n")}
	n, err := a.WriteVec(bufs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := 8; n != want {
		t.Fatalf("wrote %d, want %d", n, want)
	}

	got, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "cba\nfed\n" {
		t.Fatalf("got %q", got)
	}
}

func TestFileAdapterWriteVecEmptyIsNoop(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ioadapter-writev-empty-*")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()

	a := NewFileAdapter(f)
	n, err := a.WriteVec(nil)
	if err != nil || n != 0 {
		t.Fatalf("expected no-op, got n=%d err=%v", n, err)
	}
}

func TestDropFrontAcrossBuffers(t *testing.T) {
	bufs := [][]byte{[]byte("abc"), []byte("de"), []byte("f")}
	got := dropFront(bufs, 4)
	if len(got) != 2 || string(got[0]) != "e" || string(got[1]) != "f" {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestTotalLen(t *testing.T) {
	if got := totalLen([][]byte{[]byte("ab"), []byte("cde")}); got != 5 {
		t.Fatalf("got %d", got)
	}
}
