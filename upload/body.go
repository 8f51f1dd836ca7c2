package upload

import (
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// BodyKind tells how an upload body is consumed.
type BodyKind int

const (
	// BodyUnknown is any body the uploader can't consume.
	BodyUnknown BodyKind = iota
	// BodyBuffer is a fully buffered []byte body.
	BodyBuffer
	// BodyStream is an io.Reader body read chunk by chunk.
	BodyStream
)

func (k BodyKind) String() string {
	switch k {
	case BodyBuffer:
		return "buffer"
	case BodyStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Classify reports the kind of body. It has no side effects; a stream is not read.
func Classify(body interface{}) BodyKind {
	switch body.(type) {
	case []byte:
		return BodyBuffer
	case io.Reader:
		return BodyStream
	default:
		return BodyUnknown
	}
}

// Length returns the byte length of a buffered body, or the declared Length for any other body.
func Length(req Request) int64 {
	if data, ok := req.Body.([]byte); ok {
		return int64(len(data))
	}
	return req.Length
}

// DetectContentType sniffs the MIME type from the leading bytes of a body.
func DetectContentType(data []byte) string {
	return mimetype.Detect(data).String()
}
