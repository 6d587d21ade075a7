package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source is the byte provider behind a preview: a user-selected file, an
// uploaded body, or any other stream. Open is called once per load.
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads a file from disk.
type FileSource struct {
	Path string
}

// Name returns the base name of the file.
func (f FileSource) Name() string { return filepath.Base(f.Path) }

// Open opens the file for reading.
func (f FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return file, nil
}

// BytesSource serves an in-memory buffer, typically the head of an upload.
type BytesSource struct {
	FileName string
	Data     []byte
}

// Name returns the file name the bytes came from.
func (b BytesSource) Name() string { return b.FileName }

// Open returns a reader over the buffer.
func (b BytesSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

// ReaderSource adapts a single-use reader. A second Open fails.
type ReaderSource struct {
	FileName string
	reader   io.Reader
	used     bool
}

// NewReaderSource wraps r as a Source that can be opened once.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{FileName: name, reader: r}
}

// Name returns the name given at construction.
func (r *ReaderSource) Name() string { return r.FileName }

// Open hands out the wrapped reader the first time it is called.
func (r *ReaderSource) Open(context.Context) (io.ReadCloser, error) {
	if r.used {
		return nil, errors.New("reader source already consumed")
	}
	r.used = true
	if rc, ok := r.reader.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(r.reader), nil
}
