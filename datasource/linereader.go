package datasource

import (
	"bufio"
	"io"
)

// lineReader only hands out whole newline-terminated lines, so a CSV
// reader never parses the half-written last line of a growing file. An
// incomplete line is held back until the rest of it arrives.
type lineReader struct {
	r *bufio.Reader
	// partial is the start of a line whose newline has not arrived yet.
	partial []byte
	// ready is the rest of a complete line that did not fit the caller's
	// buffer.
	ready []byte
}

var _ io.Reader = (*lineReader)(nil)

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

func (l *lineReader) Read(b []byte) (int, error) {
	if len(l.ready) > 0 {
		n := copy(b, l.ready)
		l.ready = l.ready[n:]
		return n, nil
	}
	line, err := l.r.ReadBytes('\n')
	if err != nil {
		l.partial = append(l.partial, line...)
		return 0, io.EOF
	}
	if len(l.partial) > 0 {
		line = append(l.partial, line...)
		l.partial = nil
	}
	n := copy(b, line)
	l.ready = line[n:]
	return n, nil
}
