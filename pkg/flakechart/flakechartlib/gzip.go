package flakechartlib

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
)

var gzipMagic = []byte("\x1F\x8B")

// newMaybeGZIPLineReader returns a LineReader over r, decompressing it first if it starts with
// the gzip header: http://www.zlib.org/rfc-gzip.html
// progress always receives the number of bytes read from r.
func newMaybeGZIPLineReader(r io.Reader, progress func(n int)) (*LineReader, error) {
	buffered := bufio.NewReader(r)
	magic, err := buffered.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if !bytes.HasPrefix(magic, gzipMagic) {
		return NewLineReader(buffered, progress), nil
	}
	gzipReader, err := gzip.NewReader(&ProgressReader{Reader: buffered, Progress: progress})
	if err != nil {
		return nil, err
	}
	return NewLineReader(gzipReader, nil), nil
}
