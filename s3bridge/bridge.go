// Package s3bridge moves files between S3 buckets and the DAM: objects are streamed into the chunked
// uploader, and media downloads are streamed into a bucket.
package s3bridge

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/damkit/go-damclient/upload"
)

const (
	numExportRetries = 3
	exportPartSize   = 10 * 1024 * 1024
)

// ErrObjectNotFound is returned when the source object does not exist.
var ErrObjectNotFound = errors.New("object not found in bucket")

// Params ...
type Params struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Endpoint overrides the S3 endpoint, e.g. for S3 compatible storage.
	Endpoint     string
	UsePathStyle bool
}

// Location addresses an object.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
}

// Object is an open S3 object. The caller must close Body.
type Object struct {
	Body        io.ReadCloser
	Length      int64
	ContentType string
}

// FileUploader is implemented by *upload.Uploader and *client.Client.
type FileUploader interface {
	UploadFile(ctx context.Context, req upload.Request) (*upload.Result, error)
}

type objectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type uploaderAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Bridge ...
type Bridge struct {
	objects    objectAPI
	uploader   uploaderAPI
	httpClient *http.Client
	retryWait  time.Duration
	logger     log.Logger
}

// New creates a Bridge using the given credentials, or the default AWS credential chain when none are set.
func New(ctx context.Context, params Params, logger log.Logger) (*Bridge, error) {
	cfg, err := loadAWSCredentials(ctx, params, logger)
	if err != nil {
		return nil, fmt.Errorf("load aws credentials: %w", err)
	}

	client := s3.NewFromConfig(*cfg, func(o *s3.Options) {
		if params.Endpoint != "" {
			o.BaseEndpoint = aws.String(params.Endpoint)
		}
		o.UsePathStyle = params.UsePathStyle
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = exportPartSize
	})

	return newBridge(client, uploader, retryhttp.NewClient(logger).StandardClient(), logger), nil
}

func newBridge(objects objectAPI, uploader uploaderAPI, httpClient *http.Client, logger log.Logger) *Bridge {
	return &Bridge{
		objects:    objects,
		uploader:   uploader,
		httpClient: httpClient,
		retryWait:  5 * time.Second,
		logger:     logger,
	}
}

// OpenObject opens the object for reading. A missing object results in ErrObjectNotFound.
func (b *Bridge) OpenObject(ctx context.Context, src Location) (*Object, error) {
	if src.Bucket == "" || src.Key == "" {
		return nil, fmt.Errorf("bucket and key must not be empty")
	}

	result, err := b.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(src.Bucket),
		Key:    aws.String(src.Key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", src, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("get object %s: %w", src, err)
	}

	return &Object{
		Body:        result.Body,
		Length:      aws.ToInt64(result.ContentLength),
		ContentType: aws.ToString(result.ContentType),
	}, nil
}

// UploadObject streams an S3 object into the DAM through uploader. The asset is named after the last
// segment of the key; data is passed as the asset metadata.
func (b *Bridge) UploadObject(ctx context.Context, uploader FileUploader, src Location, data map[string]string) (*upload.Result, error) {
	object, err := b.OpenObject(ctx, src)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := object.Body.Close(); err != nil {
			b.logger.Warnf("Failed to close %s: %s", src, err)
		}
	}()

	b.logger.Infof("Uploading %s (%d bytes)", src, object.Length)

	return uploader.UploadFile(ctx, upload.Request{
		Filename: path.Base(src.Key),
		Body:     object.Body,
		Length:   object.Length,
		Data:     data,
	})
}

// ExportMedia streams the file at downloadURL into dst. When sha256Hex is set and dst already holds an
// object with that checksum, the upload is skipped and false is returned.
func (b *Bridge) ExportMedia(ctx context.Context, downloadURL string, dst Location, sha256Hex string) (bool, error) {
	if dst.Bucket == "" || dst.Key == "" {
		return false, fmt.Errorf("bucket and key must not be empty")
	}

	if sha256Hex != "" {
		existing, err := b.checksum(ctx, dst)
		if err != nil {
			return false, fmt.Errorf("validate object: %w", err)
		}
		if existing == sha256Hex {
			b.logger.Debugf("%s already has checksum %s, skipping upload", dst, sha256Hex)
			return false, nil
		}
	}

	err := retry.Times(numExportRetries).Wait(b.retryWait).TryWithAbort(func(attempt uint) (error, bool) {
		if err := ctx.Err(); err != nil {
			return err, true
		}
		if err := b.export(ctx, downloadURL, dst); err != nil {
			b.logger.Warnf("Export attempt %d to %s failed: %s", attempt+1, dst, err)
			return err, false
		}
		return nil, true
	})
	if err != nil {
		return false, fmt.Errorf("export to %s: %w", dst, err)
	}

	return true, nil
}

func (b *Bridge) export(ctx context.Context, downloadURL string, dst Location) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	input := &s3.PutObjectInput{
		Body:              resp.Body,
		Bucket:            aws.String(dst.Bucket),
		Key:               aws.String(dst.Key),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	}
	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	return nil
}

// checksum returns the hex SHA-256 checksum of the object, or an empty string if it doesn't exist
// or has no checksum.
func (b *Bridge) checksum(ctx context.Context, loc Location) (string, error) {
	head, err := b.objects.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket:       aws.String(loc.Bucket),
		Key:          aws.String(loc.Key),
		ChecksumMode: types.ChecksumModeEnabled,
	})
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("head object: %w", err)
	}
	if head.ChecksumSHA256 == nil {
		return "", nil
	}
	// Multipart objects carry a checksum of the part checksums, e.g. "<base64>-3".
	if strings.Contains(*head.ChecksumSHA256, "-") {
		b.logger.Debugf("Composite checksum of %s, comparing is not possible", loc)
		return "", nil
	}

	decoded, err := base64.StdEncoding.DecodeString(*head.ChecksumSHA256)
	if err != nil {
		return "", fmt.Errorf("base64 decode checksum: %w", err)
	}
	return hex.EncodeToString(decoded), nil
}

func isNotFound(err error) bool {
	var apiError smithy.APIError
	if !errors.As(err, &apiError) {
		return false
	}
	switch apiError.(type) {
	case *types.NotFound, *types.NoSuchKey:
		return true
	default:
		return false
	}
}

func loadAWSCredentials(ctx context.Context, params Params, logger log.Logger) (*aws.Config, error) {
	if params.Region == "" {
		return nil, fmt.Errorf("region must not be empty")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(params.Region),
	}

	if params.AccessKeyID != "" && params.SecretAccessKey != "" {
		logger.Debugf("aws credentials provided, using them...")
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(params.AccessKeyID, params.SecretAccessKey, params.SessionToken)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config, %v", err)
	}

	return &cfg, nil
}
