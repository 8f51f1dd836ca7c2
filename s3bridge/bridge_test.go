package s3bridge

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/damkit/go-damclient/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	objects   map[string][]byte
	checksums map[string]string
	headErr   error
}

func (f *fakeObjects) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	data, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	out := &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}
	if checksum, ok := f.checksums[aws.ToString(params.Key)]; ok {
		out.ChecksumSHA256 = aws.String(checksum)
	}
	return out, nil
}

func (f *fakeObjects) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("image/png"),
	}, nil
}

type fakeUploader struct {
	calls    int32
	failures int32
	uploaded []byte
	input    *s3.PutObjectInput
}

func (f *fakeUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	call := atomic.AddInt32(&f.calls, 1)
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	if call <= f.failures {
		return nil, errors.New("slow down")
	}
	f.uploaded = data
	f.input = input
	return &manager.UploadOutput{Key: input.Key}, nil
}

type recordingUploader struct {
	req  upload.Request
	body []byte
}

func (r *recordingUploader) UploadFile(_ context.Context, req upload.Request) (*upload.Result, error) {
	r.req = req
	data, err := io.ReadAll(req.Body.(io.Reader))
	if err != nil {
		return nil, err
	}
	r.body = data
	return &upload.Result{FileID: "file-1", Size: int64(len(data))}, nil
}

func newTestBridge(objects *fakeObjects, uploader *fakeUploader) *Bridge {
	bridge := newBridge(objects, uploader, http.DefaultClient, log.NewLogger())
	bridge.retryWait = 0
	return bridge
}

func TestOpenObject(t *testing.T) {
	bridge := newTestBridge(&fakeObjects{objects: map[string][]byte{"assets/logos/logo.png": []byte("png")}}, &fakeUploader{})

	object, err := bridge.OpenObject(context.Background(), Location{Bucket: "assets", Key: "logos/logo.png"})
	require.NoError(t, err)
	defer object.Body.Close() //nolint:errcheck

	assert.Equal(t, int64(3), object.Length)
	assert.Equal(t, "image/png", object.ContentType)

	_, err = bridge.OpenObject(context.Background(), Location{Bucket: "assets", Key: "missing.png"})
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = bridge.OpenObject(context.Background(), Location{Bucket: "assets"})
	assert.Error(t, err)
}

func TestUploadObject(t *testing.T) {
	content := bytes.Repeat([]byte("x"), 1000)
	bridge := newTestBridge(&fakeObjects{objects: map[string][]byte{"assets/2026/campaign/hero.png": content}}, &fakeUploader{})
	uploader := &recordingUploader{}

	result, err := bridge.UploadObject(context.Background(), uploader, Location{Bucket: "assets", Key: "2026/campaign/hero.png"},
		map[string]string{"brandId": "b1"})
	require.NoError(t, err)

	assert.Equal(t, "file-1", result.FileID)
	assert.Equal(t, "hero.png", uploader.req.Filename)
	assert.Equal(t, int64(1000), uploader.req.Length)
	assert.Equal(t, upload.BodyStream, upload.Classify(uploader.req.Body))
	assert.Equal(t, "b1", uploader.req.Data["brandId"])
	assert.Equal(t, content, uploader.body)
}

func TestExportMedia(t *testing.T) {
	content := []byte("original media bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write(content)
	}))
	defer server.Close()

	uploader := &fakeUploader{failures: 1}
	bridge := newTestBridge(&fakeObjects{}, uploader)

	uploaded, err := bridge.ExportMedia(context.Background(), server.URL, Location{Bucket: "exports", Key: "media/m1.mp4"}, "")
	require.NoError(t, err)

	assert.True(t, uploaded)
	assert.Equal(t, int32(2), uploader.calls)
	assert.Equal(t, content, uploader.uploaded)
	assert.Equal(t, "exports", aws.ToString(uploader.input.Bucket))
	assert.Equal(t, "media/m1.mp4", aws.ToString(uploader.input.Key))
	assert.Equal(t, "video/mp4", aws.ToString(uploader.input.ContentType))
	assert.Equal(t, types.ChecksumAlgorithmSha256, uploader.input.ChecksumAlgorithm)
}

func TestExportMedia_SkipsSameChecksum(t *testing.T) {
	content := []byte("original media bytes")
	sum := sha256.Sum256(content)

	objects := &fakeObjects{
		objects:   map[string][]byte{"exports/media/m1.mp4": content},
		checksums: map[string]string{"media/m1.mp4": base64.StdEncoding.EncodeToString(sum[:])},
	}
	uploader := &fakeUploader{}
	bridge := newTestBridge(objects, uploader)

	uploaded, err := bridge.ExportMedia(context.Background(), "http://unused.invalid/", Location{Bucket: "exports", Key: "media/m1.mp4"}, hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	assert.False(t, uploaded)
	assert.Equal(t, int32(0), uploader.calls)
}

func TestExportMedia_CompositeChecksumReuploads(t *testing.T) {
	content := []byte("original media bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(content)
	}))
	defer server.Close()

	sum := sha256.Sum256(content)
	objects := &fakeObjects{
		objects:   map[string][]byte{"exports/media/m1.mp4": content},
		checksums: map[string]string{"media/m1.mp4": base64.StdEncoding.EncodeToString(sum[:]) + "-3"},
	}
	uploader := &fakeUploader{}
	bridge := newTestBridge(objects, uploader)

	uploaded, err := bridge.ExportMedia(context.Background(), server.URL, Location{Bucket: "exports", Key: "media/m1.mp4"}, hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	assert.True(t, uploaded)
	assert.Equal(t, int32(1), uploader.calls)
	assert.Equal(t, content, uploader.uploaded)
}

func TestExportMedia_DownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	uploader := &fakeUploader{}
	bridge := newTestBridge(&fakeObjects{}, uploader)

	_, err := bridge.ExportMedia(context.Background(), server.URL, Location{Bucket: "exports", Key: "m1"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
	assert.Equal(t, int32(0), uploader.calls)
}

func TestLoadAWSCredentials(t *testing.T) {
	_, err := loadAWSCredentials(context.Background(), Params{}, log.NewLogger())
	require.Error(t, err)

	cfg, err := loadAWSCredentials(context.Background(), Params{Region: "eu-west-1", AccessKeyID: "id", SecretAccessKey: "secret"}, log.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id", creds.AccessKeyID)
}
