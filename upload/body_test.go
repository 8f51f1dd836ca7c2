package upload

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	reader := strings.NewReader("streamed")

	tests := []struct {
		name string
		body interface{}
		want BodyKind
	}{
		{name: "byte slice", body: []byte("buffered"), want: BodyBuffer},
		{name: "empty byte slice", body: []byte{}, want: BodyBuffer},
		{name: "reader", body: reader, want: BodyStream},
		{name: "buffer", body: bytes.NewBufferString("x"), want: BodyStream},
		{name: "nil", body: nil, want: BodyUnknown},
		{name: "string", body: "not bytes", want: BodyUnknown},
		{name: "map", body: map[string]string{}, want: BodyUnknown},
		{name: "struct", body: struct{}{}, want: BodyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.body))
			assert.Equal(t, tt.want, Classify(tt.body))
		})
	}

	assert.Equal(t, 8, reader.Len(), "classifying a stream must not read it")
}

func TestLength(t *testing.T) {
	assert.Equal(t, int64(3), Length(Request{Body: []byte("abc"), Length: 99}))
	assert.Equal(t, int64(99), Length(Request{Body: strings.NewReader("abc"), Length: 99}))
	assert.Equal(t, int64(7), Length(Request{Body: struct{}{}, Length: 7}))
}

func TestDetectContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	assert.Equal(t, "image/png", DetectContentType(png))
	assert.Equal(t, "text/plain; charset=utf-8", DetectContentType([]byte("hello")))
}

func TestBodyKind_String(t *testing.T) {
	assert.Equal(t, "buffer", BodyBuffer.String())
	assert.Equal(t, "stream", BodyStream.String())
	assert.Equal(t, "unknown", BodyUnknown.String())
	assert.Equal(t, "saving", StateSaving.String())
}
