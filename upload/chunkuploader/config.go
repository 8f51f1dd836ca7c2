package chunkuploader

import (
	"time"
)

// ChunkSize is the default size of every chunk but the last one: 5 MiB.
const ChunkSize int64 = 5 * 1024 * 1024

// Config holds configuration for the chunk uploader.
type Config struct {
	// ChunkSize is the size of every chunk except the last one.
	// Default: 5 MiB
	ChunkSize int64

	// MaxRetryPerChunk is the number of retries after the first failed attempt of a chunk.
	// Default: 4 (5 attempts in total)
	MaxRetryPerChunk uint

	// RetryWait is the pause between two attempts of the same chunk.
	// Default: 0, failed chunks are re-sent immediately
	RetryWait time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize:        ChunkSize,
		MaxRetryPerChunk: 4,
		RetryWait:        0,
	}
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = ChunkSize
	}
	return c
}

// ChunkCount returns ceil(totalSize / chunkSize).
func ChunkCount(totalSize, chunkSize int64) int {
	if totalSize <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((totalSize + chunkSize - 1) / chunkSize)
}
