package client

import (
	"context"

	"github.com/damkit/go-damclient/upload"
)

// UploadFile uploads a file in chunks and saves it as an asset. See upload.Uploader.UploadFile.
func (c *Client) UploadFile(ctx context.Context, req upload.Request) (*upload.Result, error) {
	return c.uploader.UploadFile(ctx, req)
}
