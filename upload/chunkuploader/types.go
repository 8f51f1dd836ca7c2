// Package chunkuploader sends the chunks of an upload session to the file intake endpoint.
// It supports in-memory and streamed sources and retries every chunk a bounded number of times.
package chunkuploader

import (
	"context"
	"fmt"
	"time"
)

// IntegrityHeader carries the SHA-256 hex digest of a chunk's bytes.
const IntegrityHeader = "Content-Sha256"

// Chunk is one contiguous byte range of an upload body.
type Chunk struct {
	Index  int
	Data   []byte
	Digest string
}

// ChunkProvider yields the chunks of a body in index order.
// Next returns io.EOF once the body is exhausted.
type ChunkProvider interface {
	Next(ctx context.Context) (Chunk, error)
}

// Observer receives the outcome of every chunk attempt.
type Observer interface {
	ChunkAttempted(index, attempt int, size int64, took time.Duration, err error)
}

// ChunkUploadError is returned once a chunk failed on every allowed attempt.
type ChunkUploadError struct {
	Index    int
	Attempts int
	Err      error
}

func (e *ChunkUploadError) Error() string {
	return fmt.Sprintf("chunk %d failed after %d attempts: %s", e.Index, e.Attempts, e.Err)
}

func (e *ChunkUploadError) Unwrap() error {
	return e.Err
}

// StreamError is returned when the source of a streamed body fails mid-read.
type StreamError struct {
	Index int
	Err   error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("read chunk %d from stream: %s", e.Index, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
