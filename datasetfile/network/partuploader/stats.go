package partuploader

import (
	"sync/atomic"
	"time"
)

// Stats counts the parts a session has acknowledged. Workers record into it
// concurrently.
type Stats struct {
	parts atomic.Int64
	bytes atomic.Int64
	busy  atomic.Int64 // summed handshake time in nanoseconds
}

// NewStats ...
func NewStats() *Stats {
	return &Stats{}
}

// Record adds one acknowledged part of size bytes whose handshake took took.
func (s *Stats) Record(took time.Duration, size int) {
	s.busy.Add(int64(took))
	s.bytes.Add(int64(size))
	s.parts.Add(1)
}

// AveragePartTime is the mean allocate, transfer and acknowledge time per part.
func (s *Stats) AveragePartTime() time.Duration {
	parts := s.parts.Load()
	if parts == 0 {
		return 0
	}
	return time.Duration(s.busy.Load() / parts)
}

// FinishedCount ...
func (s *Stats) FinishedCount() int64 {
	return s.parts.Load()
}

// UploadedBytes is the payload size of the acknowledged parts.
func (s *Stats) UploadedBytes() int64 {
	return s.bytes.Load()
}
