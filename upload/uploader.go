package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/damkit/go-damclient/transport"
	"github.com/damkit/go-damclient/upload/checksum"
	"github.com/damkit/go-damclient/upload/chunkuploader"
)

// Uploader runs chunked uploads. It is safe for concurrent use: every UploadFile call keeps
// its own session state.
type Uploader struct {
	doer     transport.Doer
	chunks   *chunkuploader.Uploader
	logger   log.Logger
	observer Observer
}

// NewUploader creates an Uploader sending its requests through doer. observer may be nil.
func NewUploader(doer transport.Doer, config chunkuploader.Config, logger log.Logger, observer Observer) *Uploader {
	var chunkObserver chunkuploader.Observer
	if o, ok := observer.(chunkuploader.Observer); ok {
		chunkObserver = o
	}

	return &Uploader{
		doer:     doer,
		chunks:   chunkuploader.New(config, doer, logger, chunkObserver),
		logger:   logger,
		observer: observer,
	}
}

// UploadFile uploads the body of req and saves it as a new asset, or as a new version of
// Data["mediaId"] when set.
//
// Every failure is returned as *UploadError wrapping the cause: *ValidationError (status 0,
// nothing sent), *transport.Error, *chunkuploader.ChunkUploadError, *chunkuploader.StreamError
// or ErrCanceled.
func (u *Uploader) UploadFile(ctx context.Context, req Request) (*Result, error) {
	s := newSession(req, u.logger)

	if err := validate(req); err != nil {
		s.transition(StateFailed)
		return nil, &UploadError{Message: err.Error(), Err: err}
	}

	start := time.Now()
	result, err := u.run(ctx, s, req)
	if u.observer != nil {
		u.observer.UploadFinished(time.Since(start), s.stats.Snapshot().Bytes, s.completed, err)
	}
	if err != nil {
		failedIn := s.state
		s.transition(StateFailed)
		u.logger.Errorf("Upload of %s failed while %s: %s", req.Filename, failedIn, err)
		return nil, normalizeError(req.Filename, err)
	}

	u.logger.Donef("Uploaded %s (%s) as %s in %v", req.Filename, formatSize(result.Size),
		result.FileID, time.Since(start).Round(time.Millisecond))

	return result, nil
}

func (u *Uploader) run(ctx context.Context, s *session, req Request) (*Result, error) {
	kind := Classify(req.Body)
	chunkSize := u.chunks.Config().ChunkSize
	s.size = Length(req)
	s.totalChunks = chunkuploader.ChunkCount(s.size, chunkSize)

	var provider chunkuploader.ChunkProvider
	var hasher *checksum.Hasher
	switch kind {
	case BodyBuffer:
		data := req.Body.([]byte)
		s.digest = checksum.SHA256Hex(data)
		s.contentType = DetectContentType(data)
		provider = chunkuploader.NewBufferProvider(data, chunkSize)
	default:
		hasher = checksum.NewHasher()
		provider = chunkuploader.NewStreamProvider(req.Body.(io.Reader), chunkSize)
	}

	u.logger.Infof("Uploading %s (%s, %s body) in ~%d chunks", req.Filename,
		formatSize(s.size), kind, s.totalChunks)

	s.transition(StatePreparing)
	fileID, err := prepareUpload(ctx, u.doer)
	if err != nil {
		return nil, fmt.Errorf("prepare upload: %w", err)
	}
	s.fileID = fileID
	u.logger.Debugf("Upload %s: file ID %s", s.id, fileID)

	s.transition(StateUploading)
	if err := u.uploadChunks(ctx, s, provider, hasher); err != nil {
		return nil, err
	}

	if kind == BodyStream {
		s.digest = hasher.Sum()
		if read := provider.(*chunkuploader.StreamProvider).BytesRead(); read != s.size {
			u.logger.Warnf("Stream of %s declared %d bytes but %d were read", req.Filename, s.size, read)
			s.size = read
		}
		s.totalChunks = s.completed
	}

	s.transition(StateFinalizing)
	correlationID, err := finaliseUpload(ctx, u.doer, finaliseParams{
		fileID:      s.fileID,
		filename:    req.Filename,
		chunksCount: s.completed,
		fileSize:    s.size,
		sha256:      s.digest,
	})
	if err != nil {
		return nil, fmt.Errorf("finalise upload: %w", err)
	}
	u.logger.Debugf("Upload %s finalised, correlation ID: %s", s.id, correlationID)

	s.transition(StateSaving)
	asset, err := saveAsset(ctx, u.doer, s.fileID, req.Data)
	if err != nil {
		return nil, fmt.Errorf("save asset: %w", err)
	}
	asset["fileId"] = s.fileID
	asset["correlationId"] = correlationID

	s.transition(StateDone)
	s.reportProgress()

	return &Result{
		FileID:        s.fileID,
		CorrelationID: correlationID,
		MediaID:       mediaIDOf(asset),
		ContentType:   s.contentType,
		Digest:        s.digest,
		Chunks:        s.completed,
		Size:          s.size,
		Asset:         asset,
	}, nil
}

// uploadChunks sends the chunks in index order. The next chunk is only taken from the provider
// once the previous one settled, which for streams means the reader is not read ahead.
func (u *Uploader) uploadChunks(ctx context.Context, s *session, provider chunkuploader.ChunkProvider, hasher *checksum.Hasher) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w before chunk %d: %w", ErrCanceled, s.cursor, err)
		}

		chunk, err := provider.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%w before chunk %d: %w", ErrCanceled, s.cursor, ctxErr)
			}
			return err
		}

		if hasher != nil {
			_, _ = hasher.Write(chunk.Data)
			if chunk.Index == 0 {
				s.contentType = DetectContentType(chunk.Data)
			}
		}

		start := time.Now()
		if err := u.chunks.UploadChunk(ctx, s.fileID, chunk); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%w at chunk %d: %w", ErrCanceled, chunk.Index, ctxErr)
			}
			return err
		}
		s.chunkSent(chunk, time.Since(start))
	}

	if s.completed == 0 {
		return &chunkuploader.StreamError{Index: 0, Err: io.ErrUnexpectedEOF}
	}

	return nil
}
