package core

// streaming.go provides the readers used to pull a bounded prefix out of a
// source without loading the rest of it:
//
//   - PrefixReader: stops after a byte budget and records whether more data existed
//   - BOMSkippingReader: removes a UTF-8 BOM (0xEF 0xBB 0xBF) written by Windows tools
//   - contextReader: aborts a read once the caller's context is done
//
// readPrefix applies all three in the right order and returns the text.

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PrefixReader reads at most Limit bytes from the underlying reader.
// After EOF, Truncated reports whether the source had more bytes.
type PrefixReader struct {
	reader    io.Reader
	remaining int64
	Limit     int64
	Truncated bool
}

// NewPrefixReader creates a reader that yields only the first limit bytes of r.
func NewPrefixReader(r io.Reader, limit int64) *PrefixReader {
	return &PrefixReader{reader: r, remaining: limit, Limit: limit}
}

// Read implements io.Reader.
func (r *PrefixReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		r.peekPastLimit()
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.reader.Read(p)
	r.remaining -= int64(n)
	return n, err
}

// peekPastLimit checks for a byte past the limit, once.
func (r *PrefixReader) peekPastLimit() {
	if r.Truncated || r.reader == nil {
		return
	}
	var one [1]byte
	n, _ := io.ReadFull(r.reader, one[:])
	r.Truncated = n > 0
	r.reader = nil
}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader. The first call drops a leading BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		if head, err := r.br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = r.br.Discard(len(utf8BOM))
		}
	}
	return r.br.Read(p)
}

// contextReader fails reads once ctx is done.
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (r contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.reader.Read(p)
}

// prefixText is the decoded head of a source.
type prefixText struct {
	Text      string
	Bytes     int
	Truncated bool
}

// readPrefix opens src and returns at most limit bytes of it as text.
// Invalid UTF-8 (including a rune cut by the limit) becomes U+FFFD.
// Any failure is reported as a *ReadError.
func readPrefix(ctx context.Context, src Source, limit int64) (prefixText, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return prefixText{}, &ReadError{Source: src.Name(), Err: err}
	}
	defer rc.Close()

	pr := NewPrefixReader(contextReader{ctx: ctx, reader: rc}, limit)
	data, err := io.ReadAll(NewBOMSkippingReader(pr))
	if err != nil {
		return prefixText{}, &ReadError{Source: src.Name(), Err: err}
	}

	return prefixText{
		Text:      strings.ToValidUTF8(string(data), "\uFFFD"),
		Bytes:     len(data),
		Truncated: pr.Truncated,
	}, nil
}
