package flakechartlib

import (
	"io"
)

const defaultChunkSize = 64 * 1024

// LineReader splits a byte stream into lines as the bytes arrive. Lines are terminated by
// \n, \r or \r\n, empty lines are dropped and text after the last terminator is returned
// as the final line once the stream ends. A LineReader can be consumed only once.
type LineReader struct {
	r        io.Reader
	progress func(n int)
	chunk    []byte

	// text seen after the last terminator, completed by a later chunk
	pending []byte
	ready   []string
	done    bool
	err     error
}

// NewLineReader returns a LineReader over r. progress, when set, is called with the raw
// length of every chunk read from r before it is split.
func NewLineReader(r io.Reader, progress func(n int)) *LineReader {
	return &LineReader{
		r:        r,
		progress: progress,
		chunk:    make([]byte, defaultChunkSize),
	}
}

// Next returns the next line, or io.EOF once every line has been returned.
func (l *LineReader) Next() (string, error) {
	for len(l.ready) == 0 {
		if l.done {
			if l.err != nil {
				return "", l.err
			}
			return "", io.EOF
		}
		l.read()
	}
	line := l.ready[0]
	l.ready = l.ready[1:]
	return line, nil
}

func (l *LineReader) read() {
	n, err := l.r.Read(l.chunk)
	if n > 0 {
		if l.progress != nil {
			l.progress(n)
		}
		l.split(l.chunk[:n])
	}
	if err == nil {
		return
	}
	l.done = true
	if err != io.EOF {
		l.err = err
		return
	}
	if len(l.pending) > 0 {
		l.ready = append(l.ready, string(l.pending))
		l.pending = nil
	}
}

func (l *LineReader) split(chunk []byte) {
	start := 0
	for i, b := range chunk {
		if b != '\n' && b != '\r' {
			continue
		}
		// \r\n yields an empty line between the two terminators, which is dropped below
		line := append(l.pending, chunk[start:i]...)
		if len(line) > 0 {
			l.ready = append(l.ready, string(line))
		}
		l.pending = l.pending[:0]
		start = i + 1
	}
	l.pending = append(l.pending, chunk[start:]...)
}

// ProgressReader reports the number of bytes of every Read to Progress. It is placed
// under a decompressor so compressed byte counts are reported.
type ProgressReader struct {
	Reader   io.Reader
	Progress func(n int)
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.Reader.Read(b)
	if n > 0 && p.Progress != nil {
		p.Progress(n)
	}
	return n, err
}
