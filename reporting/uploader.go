package reporting

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

// DefaultBucket receives reports unless configured otherwise.
const DefaultBucket = "weathertop2"

// S3API is the minimal interface for the S3 client required by the
// S3Uploader. It is already implemented by the AWS SDK client; we define our
// own type to allow mocking the client in tests.
type S3API interface {
	// https://pkg.go.dev/github.com/aws/aws-sdk-go-v2/service/s3#Client.PutObject
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader copies a local file to remote storage under key.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) error
}

// S3Uploader uploads reports to a single bucket.
type S3Uploader struct {
	log    log.Logger
	fs     afero.Fs
	client S3API
	bucket string
}

// NewS3Uploader builds an uploader using the default AWS credential chain.
func NewS3Uploader(ctx context.Context, lgr log.Logger, fs afero.Fs, bucket string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3UploaderWithClient(lgr, fs, s3.NewFromConfig(cfg), bucket), nil
}

func NewS3UploaderWithClient(lgr log.Logger, fs afero.Fs, client S3API, bucket string) *S3Uploader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &S3Uploader{log: lgr, fs: fs, client: client, bucket: bucket}
}

// Upload returns a SinkError with Upload set on failure.
func (u *S3Uploader) Upload(ctx context.Context, localPath, key string) error {
	target := fmt.Sprintf("s3://%s/%s", u.bucket, key)
	data, err := afero.ReadFile(u.fs, localPath)
	if err != nil {
		return types.NewSinkError(true, target, fmt.Errorf("reading %s: %w", localPath, err))
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			u.log.Error("S3 rejected report upload", "target", target, "code", apiErr.ErrorCode(), "message", apiErr.ErrorMessage())
		}
		return types.NewSinkError(true, target, err)
	}
	u.log.Info("Report uploaded", "target", target, "bytes", len(data))
	return nil
}
