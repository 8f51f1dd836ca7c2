package chunkuploader

import (
	"context"
	"errors"
	"io"

	"github.com/damkit/go-damclient/upload/checksum"
)

// BufferProvider slices an in-memory body into chunks.
// Chunks share memory with the body, which must not be modified during the upload.
type BufferProvider struct {
	data      []byte
	chunkSize int64
	numChunks int
	next      int
}

// NewBufferProvider creates a ChunkProvider over data.
func NewBufferProvider(data []byte, chunkSize int64) *BufferProvider {
	return &BufferProvider{
		data:      data,
		chunkSize: chunkSize,
		numChunks: ChunkCount(int64(len(data)), chunkSize),
	}
}

// NumChunks returns the total number of chunks.
func (p *BufferProvider) NumChunks() int {
	return p.numChunks
}

// Range returns the [start, end) byte offsets of the chunk at the given index.
func (p *BufferProvider) Range(index int) (int64, int64) {
	start := int64(index) * p.chunkSize
	end := start + p.chunkSize
	if size := int64(len(p.data)); end > size {
		end = size
	}
	return start, end
}

// Next returns the next chunk, or io.EOF after the last one.
func (p *BufferProvider) Next(ctx context.Context) (Chunk, error) {
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}
	if p.next >= p.numChunks {
		return Chunk{}, io.EOF
	}

	index := p.next
	start, end := p.Range(index)
	data := p.data[start:end]
	p.next++

	return Chunk{
		Index:  index,
		Data:   data,
		Digest: checksum.SHA256Hex(data),
	}, nil
}

// StreamProvider pulls chunks from a reader, one at a time.
// The reader is only read when Next is called, so a caller that sends each chunk before asking
// for the next one never holds more than one chunk in memory.
// The Data of a returned chunk is only valid until the next call to Next.
type StreamProvider struct {
	reader    io.Reader
	buf       []byte
	next      int
	bytesRead int64
	done      bool
}

// NewStreamProvider creates a ChunkProvider reading chunkSize bytes at a time from reader.
func NewStreamProvider(reader io.Reader, chunkSize int64) *StreamProvider {
	return &StreamProvider{
		reader: reader,
		buf:    make([]byte, chunkSize),
	}
}

// Next returns the next chunk, or io.EOF when the reader is exhausted.
// Read failures are returned as *StreamError.
func (p *StreamProvider) Next(ctx context.Context) (Chunk, error) {
	if p.done {
		return Chunk{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}

	n, err := io.ReadFull(p.reader, p.buf)
	switch {
	case errors.Is(err, io.EOF):
		p.done = true
		return Chunk{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		p.done = true
	case err != nil:
		p.done = true
		return Chunk{}, &StreamError{Index: p.next, Err: err}
	}

	index := p.next
	data := p.buf[:n]
	p.next++
	p.bytesRead += int64(n)

	return Chunk{
		Index:  index,
		Data:   data,
		Digest: checksum.SHA256Hex(data),
	}, nil
}

// BytesRead returns the number of bytes consumed from the reader so far.
func (p *StreamProvider) BytesRead() int64 {
	return p.bytesRead
}
