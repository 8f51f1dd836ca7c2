package upload

import (
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/damkit/go-damclient/upload/chunkuploader"
	"github.com/docker/go-units"
	"github.com/google/uuid"
)

// State of an upload session.
type State int

const (
	StateValidating State = iota
	StatePreparing
	StateUploading
	StateFinalizing
	StateSaving
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StatePreparing:
		return "preparing"
	case StateUploading:
		return "uploading"
	case StateFinalizing:
		return "finalizing"
	case StateSaving:
		return "saving"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// session is the state of one UploadFile call. It is never shared between calls.
type session struct {
	id          string
	filename    string
	state       State
	fileID      string
	totalChunks int
	cursor      int
	completed   int
	size        int64
	digest      string
	contentType string
	stats       *chunkuploader.Stats
	onProgress  ProgressFunc
	logger      log.Logger
}

func newSession(req Request, logger log.Logger) *session {
	return &session{
		id:         uuid.NewString(),
		filename:   req.Filename,
		state:      StateValidating,
		stats:      chunkuploader.NewStats(),
		onProgress: req.OnProgress,
		logger:     logger,
	}
}

func (s *session) transition(to State) {
	s.logger.Debugf("Upload %s (%s): %s -> %s", s.id, s.filename, s.state, to)
	s.state = to
}

func (s *session) chunkSent(chunk chunkuploader.Chunk, took time.Duration) {
	s.completed++
	s.cursor = chunk.Index + 1
	s.stats.Record(took, int64(len(chunk.Data)))
	snapshot := s.stats.Snapshot()

	if s.completed > s.totalChunks {
		s.totalChunks = s.completed
	}

	s.logger.Debugf("Chunk %d uploaded in %v [finished=%d/%d] [avg=%v] [%s/s]",
		chunk.Index, took.Round(time.Millisecond), s.completed, s.totalChunks, snapshot.Average().Round(time.Millisecond),
		units.BytesSize(snapshot.Throughput()))

	s.reportProgress()
}

func (s *session) reportProgress() {
	if s.onProgress == nil {
		return
	}
	s.onProgress(Progress{
		FileID:          s.fileID,
		State:           s.state,
		CompletedChunks: s.completed,
		TotalChunks:     s.totalChunks,
		BytesSent:       s.stats.Snapshot().Bytes,
	})
}

// formatSize prints n in binary units, matching how chunk sizes are configured.
func formatSize(n int64) string {
	return units.BytesSize(float64(n))
}
