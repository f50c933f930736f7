package partuploader

import (
	"errors"
)

// ErrStopped is returned by Chunker writes once the session has been stopped.
var ErrStopped = errors.New("upload stopped")

const initialBufferSize = 1024 * 1024

// Chunker is an io.Writer that cuts the bytes written to it into parts of exactly
// partSize bytes and hands them to the upload workers. Writes block while the
// parts channel is full, which bounds memory to the queue depth plus the parts in flight.
type Chunker struct {
	partSize int
	buf      []byte
	next     int
	parts    chan<- Part
	stop     <-chan struct{}
}

// NewChunker returns a Chunker sending to parts. A closed stop channel makes
// pending and later sends fail with ErrStopped.
func NewChunker(partSize int64, parts chan<- Part, stop <-chan struct{}) *Chunker {
	return &Chunker{
		partSize: int(partSize),
		buf:      newPartBuffer(partSize),
		parts:    parts,
		stop:     stop,
	}
}

// Write ...
func (c *Chunker) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := c.partSize - len(c.buf)
		if n > len(p) {
			n = len(p)
		}
		c.buf = append(c.buf, p[:n]...)
		p = p[n:]
		written += n

		if len(c.buf) == c.partSize {
			if err := c.emit(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// Close sends the trailing part, if any, and closes the parts channel.
// It must only be called once the whole stream has been written.
func (c *Chunker) Close() error {
	defer close(c.parts)
	if len(c.buf) == 0 {
		return nil
	}
	return c.emit()
}

// PartsSent returns the number of parts handed to the workers.
func (c *Chunker) PartsSent() int {
	return c.next
}

func (c *Chunker) emit() error {
	select {
	case <-c.stop:
		return ErrStopped
	default:
	}

	part := Part{Index: c.next, Data: c.buf}
	select {
	case c.parts <- part:
	case <-c.stop:
		return ErrStopped
	}

	c.next++
	c.buf = newPartBuffer(int64(c.partSize))
	return nil
}

func newPartBuffer(partSize int64) []byte {
	return make([]byte, 0, min(partSize, initialBufferSize))
}
