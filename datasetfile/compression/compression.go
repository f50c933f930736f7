package compression

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const sniffLen = 3072

// Format ...
type Format string

const (
	Plain Format = "plain"
	Gzip  Format = "gzip"
	Zstd  Format = "zstd"
)

// Detect rewinds handle and reports the compression of its content.
func Detect(handle io.ReadSeeker) (Format, error) {
	if _, err := handle.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind input: %w", err)
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(handle, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return formatOf(head[:n]), nil
}

// Open rewinds handle and returns a reader over its decompressed content.
// Gzip and zstd inputs are detected by content; anything else is returned as is.
// Closing the returned reader does not close handle.
func Open(handle io.ReadSeeker) (io.ReadCloser, error) {
	if _, err := handle.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind input: %w", err)
	}

	br := bufio.NewReaderSize(handle, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read input: %w", err)
	}

	switch formatOf(head) {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return zr, nil
	case Zstd:
		decoder, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		return decoder.IOReadCloser(), nil
	default:
		return io.NopCloser(br), nil
	}
}

func formatOf(head []byte) Format {
	mtype := mimetype.Detect(head)
	switch {
	case mtype.Is("application/gzip"):
		return Gzip
	case mtype.Is("application/zstd"):
		return Zstd
	default:
		return Plain
	}
}
