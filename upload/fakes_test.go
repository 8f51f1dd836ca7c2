package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/damkit/go-damclient/transport"
)

// fakeAPI answers the upload endpoints in memory and records every request.
type fakeAPI struct {
	mu       sync.Mutex
	requests []*transport.Request
	nextID   int32

	chunksInFlight int32
	maxInFlight    int32

	// failChunk returns the error for a chunk request, or nil to accept it.
	failChunk func(index, attempt int) error
	// failStep returns the error for "prepare", "finalise" or "save", or nil.
	failStep func(step string) error
	// onChunk runs while a chunk request is in flight.
	onChunk func(index int)

	chunkAttempts map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{chunkAttempts: map[string]int{}}
}

func (f *fakeAPI) Do(_ context.Context, r *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	copied := *r
	copied.Body = append([]byte(nil), r.Body...)
	f.requests = append(f.requests, &copied)
	f.mu.Unlock()

	switch {
	case r.Path == "v7/file_cmds/upload/prepare":
		if err := f.stepError("prepare"); err != nil {
			return nil, err
		}
		id := atomic.AddInt32(&f.nextID, 1)
		return jsonResponse(map[string]string{"file_id": fmt.Sprintf("file-%d", id)}), nil

	case strings.Contains(r.Path, "/chunk/"):
		return f.chunk(r)

	case strings.HasSuffix(r.Path, "/finalise_api"):
		if err := f.stepError("finalise"); err != nil {
			return nil, err
		}
		header := http.Header{}
		header.Set(CorrelationIDHeader, "corr-"+r.Form.Get("fileName"))
		return &transport.Response{StatusCode: http.StatusCreated, Header: header}, nil

	case strings.Contains(r.Path, "/save/"):
		if err := f.stepError("save"); err != nil {
			return nil, err
		}
		return jsonResponse(map[string]interface{}{"mediaid": "media-1", "success": true}), nil
	}

	return nil, &transport.Error{StatusCode: http.StatusNotFound, Message: "unknown path " + r.Path}
}

func (f *fakeAPI) chunk(r *transport.Request) (*transport.Response, error) {
	inFlight := atomic.AddInt32(&f.chunksInFlight, 1)
	defer atomic.AddInt32(&f.chunksInFlight, -1)

	f.mu.Lock()
	if inFlight > f.maxInFlight {
		f.maxInFlight = inFlight
	}
	f.chunkAttempts[r.Path]++
	attempt := f.chunkAttempts[r.Path]
	f.mu.Unlock()

	var index int
	_, _ = fmt.Sscanf(r.Path[strings.LastIndex(r.Path, "/")+1:], "%d", &index)

	if f.onChunk != nil {
		f.onChunk(index)
	}
	if f.failChunk != nil {
		if err := f.failChunk(index, attempt); err != nil {
			return nil, err
		}
	}
	return &transport.Response{StatusCode: http.StatusOK, Header: http.Header{}}, nil
}

func (f *fakeAPI) stepError(step string) error {
	if f.failStep == nil {
		return nil
	}
	return f.failStep(step)
}

func (f *fakeAPI) requestsMatching(match func(*transport.Request) bool) []*transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []*transport.Request
	for _, r := range f.requests {
		if match(r) {
			matched = append(matched, r)
		}
	}
	return matched
}

func (f *fakeAPI) chunkRequests() []*transport.Request {
	return f.requestsMatching(func(r *transport.Request) bool { return strings.Contains(r.Path, "/chunk/") })
}

func (f *fakeAPI) finaliseRequests() []*transport.Request {
	return f.requestsMatching(func(r *transport.Request) bool { return strings.HasSuffix(r.Path, "/finalise_api") })
}

func (f *fakeAPI) saveRequests() []*transport.Request {
	return f.requestsMatching(func(r *transport.Request) bool { return strings.Contains(r.Path, "/save/") })
}

func (f *fakeAPI) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	paths := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		paths = append(paths, r.Path)
	}
	return paths
}

func jsonResponse(v interface{}) *transport.Response {
	body, _ := json.Marshal(v)
	return &transport.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: body}
}

func formOf(r *transport.Request) url.Values {
	if r.Form == nil {
		return url.Values{}
	}
	return r.Form
}

// blockReader returns one block per Read call and checks that it is never read while a chunk is in flight.
type blockReader struct {
	blocks   [][]byte
	api      *fakeAPI
	readBusy int32
	err      error
}

func (r *blockReader) Read(p []byte) (int, error) {
	if atomic.LoadInt32(&r.api.chunksInFlight) != 0 {
		atomic.StoreInt32(&r.readBusy, 1)
	}
	if len(r.blocks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.blocks[0])
	if n == len(r.blocks[0]) {
		r.blocks = r.blocks[1:]
	} else {
		r.blocks[0] = r.blocks[0][n:]
	}
	return n, nil
}
