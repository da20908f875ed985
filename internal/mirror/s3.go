package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"pv-go/internal/pv"
)

// maxObjectSize bounds documents read from object stores.
const maxObjectSize = 10 << 20

// S3API is the subset of *s3.Client used by S3Blob.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures the S3 client built by NewS3Blob.
type S3Options struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string // for S3-compatible stores such as MinIO
	UsePathStyle    bool
	AccessKeyID     string // empty uses the default credential chain
	SecretAccessKey string
}

// S3Blob stores the document as one S3 object. The ETag is the revision and
// writes are conditional (If-Match / If-None-Match), so a concurrent writer
// is detected by the store itself.
type S3Blob struct {
	client S3API
	bucket string
	key    string
}

var _ Blob = (*S3Blob)(nil)

// NewS3Blob builds an S3 client from opts and the ambient AWS configuration.
func NewS3Blob(ctx context.Context, opts S3Options) (*S3Blob, error) {
	if opts.Bucket == "" || opts.Key == "" {
		return nil, fmt.Errorf("s3 remote requires s3_bucket and s3_key")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})
	return NewS3BlobWithClient(client, opts.Bucket, opts.Key), nil
}

// NewS3BlobWithClient creates an S3Blob over an existing client.
func NewS3BlobWithClient(client S3API, bucket, key string) *S3Blob {
	return &S3Blob{client: client, bucket: bucket, key: key}
}

// Get downloads the object.
func (b *S3Blob) Get(ctx context.Context) ([]byte, string, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, "", ErrNoDocument
		}
		return nil, "", fmt.Errorf("%w: get %s: %w", pv.ErrRemoteUnavailable, b.Describe(), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxObjectSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read %s: %w", pv.ErrRemoteUnavailable, b.Describe(), err)
	}
	if len(data) > maxObjectSize {
		return nil, "", fmt.Errorf("%w: %s exceeds %d bytes", pv.ErrCorruptRemote, b.Describe(), maxObjectSize)
	}
	return data, aws.ToString(out.ETag), nil
}

// Put uploads the object if it is still at ifRevision.
func (b *S3Blob) Put(ctx context.Context, data []byte, ifRevision string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/toml"),
	}
	if ifRevision == "" {
		in.IfNoneMatch = aws.String("*")
	} else {
		in.IfMatch = aws.String(ifRevision)
	}

	out, err := b.client.PutObject(ctx, in)
	if err != nil {
		if isS3PreconditionFailed(err) {
			return "", fmt.Errorf("%w: %s changed since it was read", pv.ErrRemoteConflict, b.Describe())
		}
		return "", fmt.Errorf("%w: put %s: %w", pv.ErrRemoteUnavailable, b.Describe(), err)
	}
	return aws.ToString(out.ETag), nil
}

// Describe names the remote.
func (b *S3Blob) Describe() string { return "s3://" + b.bucket + "/" + b.key }

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func isS3PreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
