package datasource

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func expectToRead(t *testing.T, reader io.Reader, expected []byte) {
	t.Helper()
	var scratch [1024]byte
	n, err := reader.Read(scratch[:])
	if err != nil {
		t.Errorf("expected read to succeed, got: %v", err)
	} else if !bytes.Equal(scratch[:n], expected) {
		t.Errorf("expected read to yield %q, got: %q", expected, scratch[:n])
	}
}

func expectReadEOF(t *testing.T, reader io.Reader) {
	t.Helper()
	var scratch [1024]byte
	n, err := reader.Read(scratch[:])
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected read to give EOF, got: %v", err)
	} else if n != 0 {
		t.Errorf("expected read to read nothing, read %q", scratch[:n])
	}
}

func TestLineReader(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	buf.WriteString("0, 10, 1.5\n")
	buf.WriteString("10, 20, 2.5\n")
	l := newLineReader(buf)
	expectToRead(t, l, []byte("0, 10, 1.5\n"))
	expectToRead(t, l, []byte("10, 20, 2.5\n"))

	buf.WriteString("20, 30")
	expectReadEOF(t, l)
	buf.WriteString(", 3.5\n")
	expectToRead(t, l, []byte("20, 30, 3.5\n"))

	buf.WriteString("30")
	expectReadEOF(t, l)
	buf.WriteString(", 40")
	expectReadEOF(t, l)
	buf.WriteString(", 4.5\n40")
	expectToRead(t, l, []byte("30, 40, 4.5\n"))
}

func TestLineReaderLongLine(t *testing.T) {
	long := strings.Repeat("x", 2500) + "\n"
	buf := bytes.NewBufferString(long[:1800])
	l := newLineReader(buf)
	expectReadEOF(t, l)
	buf.WriteString(long[1800:])
	buf.WriteString("next\n")

	expectToRead(t, l, []byte(long[:1024]))
	expectToRead(t, l, []byte(long[1024:2048]))
	expectToRead(t, l, []byte(long[2048:]))
	expectToRead(t, l, []byte("next\n"))
	expectReadEOF(t, l)
}
