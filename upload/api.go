package upload

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/damkit/go-damclient/transport"
	"github.com/damkit/go-damclient/upload/chunkuploader"
)

// CorrelationIDHeader carries the tracing token returned by the finalise request.
const CorrelationIDHeader = "X-API-Correlation-ID"

type prepareUploadResponse struct {
	FileID string `json:"file_id"`
}

type finaliseParams struct {
	fileID      string
	filename    string
	chunksCount int
	fileSize    int64
	sha256      string
}

func prepareUpload(ctx context.Context, doer transport.Doer) (string, error) {
	resp, err := doer.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   chunkuploader.FileCommandsPath + "prepare",
	})
	if err != nil {
		return "", err
	}

	var response prepareUploadResponse
	if err := resp.DecodeJSON(&response); err != nil {
		return "", err
	}
	if response.FileID == "" {
		return "", fmt.Errorf("prepare response has no file_id")
	}

	return response.FileID, nil
}

func finaliseUpload(ctx context.Context, doer transport.Doer, p finaliseParams) (string, error) {
	form := url.Values{
		"chunksCount": {strconv.Itoa(p.chunksCount)},
		"fileName":    {p.filename},
		"fileSize":    {strconv.FormatInt(p.fileSize, 10)},
	}
	if p.sha256 != "" {
		form.Set("sha256", p.sha256)
	}

	resp, err := doer.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("%s%s/finalise_api", chunkuploader.FileCommandsPath, url.PathEscape(p.fileID)),
		Form:   form,
	})
	if err != nil {
		return "", err
	}

	return resp.Header.Get(CorrelationIDHeader), nil
}

// SavePath returns the path registering fileID as a new asset, or as a new version of mediaID if set.
func SavePath(fileID, mediaID string) string {
	path := "v4/media/save/"
	if mediaID != "" {
		path = fmt.Sprintf("v4/media/%s/save/", url.PathEscape(mediaID))
	}
	if fileID != "" {
		path += url.PathEscape(fileID) + "/"
	}
	return path
}

func saveAsset(ctx context.Context, doer transport.Doer, fileID string, data map[string]string) (map[string]interface{}, error) {
	form := url.Values{}
	for k, v := range data {
		form.Set(k, v)
	}

	resp, err := doer.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   SavePath(fileID, data[MediaIDKey]),
		Form:   form,
	})
	if err != nil {
		return nil, err
	}

	asset := map[string]interface{}{}
	if err := resp.DecodeJSON(&asset); err != nil {
		return nil, err
	}

	return asset, nil
}

func mediaIDOf(asset map[string]interface{}) string {
	for _, key := range []string{"mediaid", "mediaId", "id"} {
		if id, ok := asset[key].(string); ok && id != "" {
			return id
		}
	}
	return ""
}
