package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"

	"pv-go/internal/pv"
)

// fakeS3 is one object with S3's conditional write semantics.
type fakeS3 struct {
	data    []byte
	etag    string
	writes  int
	lastPut *s3.PutObjectInput
	getErr  error
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.data == nil {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(f.data)),
		ETag: aws.String(f.etag),
	}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.lastPut = in
	if aws.ToString(in.IfNoneMatch) == "*" && f.data != nil {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	}
	if in.IfMatch != nil && aws.ToString(in.IfMatch) != f.etag {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.data = data
	f.writes++
	f.etag = fmt.Sprintf("%q", fmt.Sprintf("etag-%d", f.writes))
	return &s3.PutObjectOutput{ETag: aws.String(f.etag)}, nil
}

func TestS3Blob_GetPut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := &fakeS3{}
	b := NewS3BlobWithClient(fake, "bucket", "pv/prompts.toml")
	require.Equal(t, "s3://bucket/pv/prompts.toml", b.Describe())

	_, _, err := b.Get(ctx)
	require.ErrorIs(t, err, ErrNoDocument)

	rev, err := b.Put(ctx, []byte("one"), "")
	require.NoError(t, err)
	require.Equal(t, "*", aws.ToString(fake.lastPut.IfNoneMatch))
	require.Nil(t, fake.lastPut.IfMatch)

	data, got, err := b.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "one", string(data))
	require.Equal(t, rev, got)

	rev2, err := b.Put(ctx, []byte("two"), rev)
	require.NoError(t, err)
	require.Equal(t, rev, aws.ToString(fake.lastPut.IfMatch))
	require.NotEqual(t, rev, rev2)
}

func TestS3Blob_Conflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := &fakeS3{data: []byte("theirs"), etag: `"etag-9"`}
	b := NewS3BlobWithClient(fake, "bucket", "key")

	_, err := b.Put(ctx, []byte("mine"), "")
	require.ErrorIs(t, err, pv.ErrRemoteConflict)

	_, err = b.Put(ctx, []byte("mine"), `"etag-1"`)
	require.ErrorIs(t, err, pv.ErrRemoteConflict)
	require.Equal(t, "theirs", string(fake.data))
}

func TestS3Blob_Unavailable(t *testing.T) {
	t.Parallel()
	fake := &fakeS3{getErr: &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}}
	b := NewS3BlobWithClient(fake, "bucket", "key")

	_, _, err := b.Get(context.Background())
	require.ErrorIs(t, err, pv.ErrRemoteUnavailable)
}

func TestS3ErrorClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		err          error
		notFound     bool
		precondition bool
	}{
		{name: "no such key", err: &types.NoSuchKey{}, notFound: true},
		{name: "head not found", err: &smithy.GenericAPIError{Code: "NotFound"}, notFound: true},
		{name: "precondition", err: &smithy.GenericAPIError{Code: "PreconditionFailed"}, precondition: true},
		{name: "conditional conflict", err: &smithy.GenericAPIError{Code: "ConditionalRequestConflict"}, precondition: true},
		{name: "wrapped precondition", err: fmt.Errorf("put: %w", &smithy.GenericAPIError{Code: "PreconditionFailed"}), precondition: true},
		{name: "other", err: errors.New("connection reset")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.notFound, isS3NotFound(tt.err))
			require.Equal(t, tt.precondition, isS3PreconditionFailed(tt.err))
		})
	}
}

func TestNewS3Blob_RequiresBucketAndKey(t *testing.T) {
	t.Parallel()
	_, err := NewS3Blob(context.Background(), S3Options{Bucket: "b"})
	require.Error(t, err)
}
