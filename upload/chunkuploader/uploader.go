package chunkuploader

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/damkit/go-damclient/transport"
)

// FileCommandsPath is the path prefix of the file intake endpoints.
const FileCommandsPath = "v7/file_cmds/upload/"

// Uploader sends single chunks with bounded retry.
// It holds no per-upload state, so one Uploader can serve concurrent uploads.
type Uploader struct {
	config   Config
	doer     transport.Doer
	logger   log.Logger
	observer Observer
}

// New creates a new Uploader with the given configuration. observer may be nil.
func New(config Config, doer transport.Doer, logger log.Logger, observer Observer) *Uploader {
	return &Uploader{
		config:   config.withDefaults(),
		doer:     doer,
		logger:   logger,
		observer: observer,
	}
}

// Config returns the effective configuration.
func (u *Uploader) Config() Config {
	return u.config
}

// UploadChunk sends the chunk, retrying immediately (or after RetryWait) on any failure.
// After MaxRetryPerChunk retries the last failure is returned as *ChunkUploadError.
func (u *Uploader) UploadChunk(ctx context.Context, fileID string, chunk Chunk) error {
	maxAttempts := int(u.config.MaxRetryPerChunk) + 1
	attempts := 0

	err := retry.Times(u.config.MaxRetryPerChunk).Wait(u.config.RetryWait).TryWithAbort(func(attempt uint) (error, bool) {
		if err := ctx.Err(); err != nil {
			return err, true
		}
		attempts++

		u.logger.Debugf("Uploading chunk %d (attempt %d/%d, %d bytes)", chunk.Index, attempts, maxAttempts, len(chunk.Data))

		start := time.Now()
		err := u.uploadChunk(ctx, fileID, chunk)
		took := time.Since(start)
		if u.observer != nil {
			u.observer.ChunkAttempted(chunk.Index, attempts, int64(len(chunk.Data)), took, err)
		}

		if err != nil {
			u.logger.Warnf("Chunk %d attempt %d failed: %s", chunk.Index, attempts, err)
			return err, false
		}
		return nil, false
	})
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("chunk %d upload cancelled: %w", chunk.Index, ctxErr)
	}

	return &ChunkUploadError{Index: chunk.Index, Attempts: attempts, Err: err}
}

func (u *Uploader) uploadChunk(ctx context.Context, fileID string, chunk Chunk) error {
	_, err := u.doer.Do(ctx, &transport.Request{
		Method:  http.MethodPost,
		Path:    ChunkPath(fileID, chunk.Index),
		Body:    chunk.Data,
		Header:  http.Header{IntegrityHeader: {chunk.Digest}},
		NoRetry: true,
	})
	return err
}

// ChunkPath returns the intake path of the chunk at index within the session fileID.
func ChunkPath(fileID string, index int) string {
	return fmt.Sprintf("%s%s/chunk/%d", FileCommandsPath, url.PathEscape(fileID), index)
}
