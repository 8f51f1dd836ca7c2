package chunkuploader

import (
	"sync"
	"time"
)

// Stats accumulates the chunks sent by one upload session.
type Stats struct {
	mu     sync.Mutex
	chunks int64
	bytes  int64
	total  time.Duration
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Chunks int64
	Bytes  int64
	Total  time.Duration
}

// NewStats ...
func NewStats() *Stats {
	return &Stats{}
}

// Record adds a chunk of size bytes that took d to send.
func (s *Stats) Record(d time.Duration, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks++
	s.bytes += size
	s.total += d
}

// Snapshot ...
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StatsSnapshot{Chunks: s.chunks, Bytes: s.bytes, Total: s.total}
}

// Average is the mean send duration of a chunk, 0 before the first one.
func (s StatsSnapshot) Average() time.Duration {
	if s.Chunks == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Chunks)
}

// Throughput is the send rate in bytes per second, 0 before the first chunk.
func (s StatsSnapshot) Throughput() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Total.Seconds()
}
