// Package upload implements the chunked upload of a file into the DAM:
// prepare a session, send the chunks, finalise the session and save the asset.
package upload

import (
	"time"
)

// MediaIDKey in Request.Data makes the upload a new version of that media item.
const MediaIDKey = "mediaId"

// Request describes one file to upload. The uploader never modifies it.
type Request struct {
	Filename string
	// Body is either a []byte or an io.Reader.
	Body interface{}
	// Length is the declared size of a streamed body. Ignored for []byte bodies.
	Length int64
	// Data is sent along with the save request, e.g. brandId, name, description.
	Data map[string]string
	// OnProgress is called after every uploaded chunk. May be nil.
	OnProgress ProgressFunc
}

// Result is returned once the asset was saved.
type Result struct {
	FileID        string `json:"fileId"`
	CorrelationID string `json:"correlationId"`
	MediaID       string `json:"mediaId,omitempty"`
	ContentType   string `json:"contentType,omitempty"`
	Digest        string `json:"sha256"`
	Chunks        int    `json:"chunks"`
	Size          int64  `json:"size"`
	// Asset is the server's response to the save request, with fileId and correlationId merged in.
	Asset map[string]interface{} `json:"asset"`
}

// Progress is a snapshot of a running upload.
type Progress struct {
	FileID          string
	State           State
	CompletedChunks int
	// TotalChunks is an estimate for streamed bodies until the stream ends.
	TotalChunks int
	BytesSent   int64
}

// ProgressFunc ...
type ProgressFunc func(Progress)

// Observer receives the outcome of every upload.
// If it also implements chunkuploader.Observer it receives every chunk attempt too.
type Observer interface {
	UploadFinished(took time.Duration, size int64, chunks int, err error)
}
