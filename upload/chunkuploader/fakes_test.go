package chunkuploader

import (
	"context"
	"sync"

	"github.com/damkit/go-damclient/transport"
)

type fakeDoer struct {
	mu       sync.Mutex
	requests []*transport.Request
	respond  func(call int, r *transport.Request) (*transport.Response, error)
}

func (d *fakeDoer) Do(_ context.Context, r *transport.Request) (*transport.Response, error) {
	d.mu.Lock()
	copied := *r
	copied.Body = append([]byte(nil), r.Body...)
	d.requests = append(d.requests, &copied)
	call := len(d.requests)
	d.mu.Unlock()

	if d.respond == nil {
		return &transport.Response{StatusCode: 200}, nil
	}
	return d.respond(call, r)
}

func (d *fakeDoer) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

type errReader struct {
	data []byte
	err  error
}

func (r *errReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}
