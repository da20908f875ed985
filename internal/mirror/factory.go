package mirror

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"pv-go/internal/config"
	"pv-go/internal/pv"
)

// tokenEnvVars are consulted in order when no token is configured.
var tokenEnvVars = []string{"PV_GITHUB_TOKEN", "GITHUB_TOKEN"}

// GitHubToken returns configured if set, otherwise the first non-empty
// token environment variable.
func GitHubToken(configured string) string {
	if configured != "" {
		return configured
	}
	for _, name := range tokenEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// NewBlobFromConfig creates the backend selected by cfg.Type.
// An empty type means no remote and returns nil, nil.
func NewBlobFromConfig(ctx context.Context, cfg config.RemoteConfig, clock pv.Clock) (Blob, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryBlob("remote"), nil
	case "filesystem":
		return NewFileSystemBlob(cfg.FSPath)
	case "gist":
		return NewGistBlob(cfg.GistID, GitHubToken(cfg.GistToken),
			WithGistHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
			WithGistAPIURL(cfg.GistAPIURL),
			WithGistFileName(cfg.GistFileName),
			WithGistPublic(cfg.GistPublic),
		)
	case "git":
		token := cfg.GitToken
		if strings.HasPrefix(cfg.GitURL, "https://") {
			token = GitHubToken(token)
		}
		return NewGitBlob(GitOptions{
			URL:      cfg.GitURL,
			Branch:   cfg.GitBranch,
			Path:     cfg.GitPath,
			Username: cfg.GitUsername,
			Token:    token,
			Clock:    clock,
		})
	case "s3":
		return NewS3Blob(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Key:             cfg.S3Key,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case "gcs":
		return NewGCSBlob(ctx, GCSOptions{
			Bucket:          cfg.GCSBucket,
			Object:          cfg.GCSObject,
			CredentialsFile: cfg.GCSCredentialsFile,
			Endpoint:        cfg.GCSEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown remote type: %q", cfg.Type)
	}
}
