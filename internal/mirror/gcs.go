package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"pv-go/internal/pv"
)

// GCSOptions configures the client built by NewGCSBlob.
type GCSOptions struct {
	Bucket          string
	Object          string
	CredentialsFile string // empty uses application default credentials
	Endpoint        string // for emulators such as fake-gcs-server
}

// GCSBlob stores the document as one Cloud Storage object. The object
// generation is the revision and writes carry a generation precondition.
type GCSBlob struct {
	client *storage.Client
	bucket string
	object string
}

var _ Blob = (*GCSBlob)(nil)

// NewGCSBlob creates a Cloud Storage client for opts.
func NewGCSBlob(ctx context.Context, opts GCSOptions) (*GCSBlob, error) {
	if opts.Bucket == "" || opts.Object == "" {
		return nil, fmt.Errorf("gcs remote requires gcs_bucket and gcs_object")
	}
	clientOpts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
		if opts.CredentialsFile == "" {
			clientOpts = append(clientOpts, option.WithoutAuthentication())
		}
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return NewGCSBlobWithClient(client, opts.Bucket, opts.Object), nil
}

// NewGCSBlobWithClient creates a GCSBlob over an existing client.
func NewGCSBlobWithClient(client *storage.Client, bucket, object string) *GCSBlob {
	return &GCSBlob{client: client, bucket: bucket, object: object}
}

// Get downloads the object.
func (b *GCSBlob) Get(ctx context.Context) ([]byte, string, error) {
	r, err := b.client.Bucket(b.bucket).Object(b.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", ErrNoDocument
		}
		return nil, "", fmt.Errorf("%w: get %s: %w", pv.ErrRemoteUnavailable, b.Describe(), err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxObjectSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read %s: %w", pv.ErrRemoteUnavailable, b.Describe(), err)
	}
	if len(data) > maxObjectSize {
		return nil, "", fmt.Errorf("%w: %s exceeds %d bytes", pv.ErrCorruptRemote, b.Describe(), maxObjectSize)
	}
	return data, strconv.FormatInt(r.Attrs.Generation, 10), nil
}

// Put uploads the object if its generation still matches ifRevision.
func (b *GCSBlob) Put(ctx context.Context, data []byte, ifRevision string) (string, error) {
	cond, err := generationCondition(ifRevision)
	if err != nil {
		return "", err
	}

	w := b.client.Bucket(b.bucket).Object(b.object).If(cond).NewWriter(ctx)
	w.ContentType = "application/toml"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", b.classifyWriteError(err)
	}
	if err := w.Close(); err != nil {
		return "", b.classifyWriteError(err)
	}
	return strconv.FormatInt(w.Attrs().Generation, 10), nil
}

// Describe names the remote.
func (b *GCSBlob) Describe() string { return "gs://" + b.bucket + "/" + b.object }

// Close closes the storage client.
func (b *GCSBlob) Close() error { return b.client.Close() }

func (b *GCSBlob) classifyWriteError(err error) error {
	if isPreconditionFailed(err) {
		return fmt.Errorf("%w: %s changed since it was read", pv.ErrRemoteConflict, b.Describe())
	}
	return fmt.Errorf("%w: put %s: %w", pv.ErrRemoteUnavailable, b.Describe(), err)
}

// generationCondition maps a revision to a write precondition. An empty
// revision requires that the object does not exist yet.
func generationCondition(ifRevision string) (storage.Conditions, error) {
	if ifRevision == "" {
		return storage.Conditions{DoesNotExist: true}, nil
	}
	gen, err := strconv.ParseInt(ifRevision, 10, 64)
	if err != nil {
		return storage.Conditions{}, fmt.Errorf("invalid gcs revision %q: %w", ifRevision, err)
	}
	return storage.Conditions{GenerationMatch: gen}, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
