package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pv-go/internal/pv"
)

const (
	defaultGistAPIURL   = "https://api.github.com"
	defaultGistFileName = "prompts.toml"
	gistUserAgent       = "pv-gist-sync/1.0"
	// maxGistBodySize bounds API and raw responses (10 MB, the gist file limit).
	maxGistBodySize = 10 << 20
)

// GistBlob stores the document as one file of a GitHub gist.
//
// The gist API has no conditional update, so the revision check in Put is a
// read-then-write: a writer racing between the two is not detected.
// With no gist id configured, the first Put creates the gist; GistID reports it.
type GistBlob struct {
	apiURL      string
	gistID      string
	fileName    string
	token       string
	public      bool
	description string
	httpClient  *http.Client
}

var _ Blob = (*GistBlob)(nil)

// GistOption configures GistBlob.
type GistOption func(*GistBlob)

// WithGistHTTPClient sets the HTTP client. Default has a 30s timeout. A nil client is ignored.
func WithGistHTTPClient(c *http.Client) GistOption {
	return func(g *GistBlob) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithGistAPIURL overrides the API base URL, for GitHub Enterprise or tests.
func WithGistAPIURL(u string) GistOption {
	return func(g *GistBlob) {
		if u != "" {
			g.apiURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithGistFileName sets the file inside the gist. Default is prompts.toml.
func WithGistFileName(name string) GistOption {
	return func(g *GistBlob) {
		if name != "" {
			g.fileName = name
		}
	}
}

// WithGistPublic makes a gist created by Put public. Default is secret.
func WithGistPublic(public bool) GistOption {
	return func(g *GistBlob) {
		g.public = public
	}
}

// NewGistBlob creates a gist backend. gistID may be empty; token is required.
func NewGistBlob(gistID, token string, opts ...GistOption) (*GistBlob, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("gist remote requires a GitHub token")
	}
	g := &GistBlob{
		apiURL:      defaultGistAPIURL,
		gistID:      gistID,
		fileName:    defaultGistFileName,
		token:       token,
		description: "pv prompt library",
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	if _, err := url.Parse(g.apiURL); err != nil {
		return nil, fmt.Errorf("invalid gist API URL %q: %w", g.apiURL, err)
	}
	return g, nil
}

// GistID returns the gist id, which is set by Put when the gist was created.
func (g *GistBlob) GistID() string { return g.gistID }

type gistFile struct {
	Filename  string `json:"filename,omitempty"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	RawURL    string `json:"raw_url,omitempty"`
}

type gistHistory struct {
	Version string `json:"version"`
}

type gistResponse struct {
	ID        string              `json:"id"`
	UpdatedAt string              `json:"updated_at"`
	Files     map[string]gistFile `json:"files"`
	History   []gistHistory       `json:"history"`
}

// revision prefers the history version (a commit sha); updated_at is the fallback.
func (r *gistResponse) revision() string {
	if len(r.History) > 0 && r.History[0].Version != "" {
		return r.History[0].Version
	}
	return r.UpdatedAt
}

type gistWriteRequest struct {
	Description string              `json:"description,omitempty"`
	Public      *bool               `json:"public,omitempty"`
	Files       map[string]gistFile `json:"files"`
}

// Get fetches the gist and returns the configured file.
func (g *GistBlob) Get(ctx context.Context) ([]byte, string, error) {
	if g.gistID == "" {
		return nil, "", ErrNoDocument
	}
	gist, err := g.fetch(ctx)
	if err != nil {
		return nil, "", err
	}
	file, ok := gist.Files[g.fileName]
	if !ok {
		return nil, "", ErrNoDocument
	}
	if !file.Truncated {
		return []byte(file.Content), gist.revision(), nil
	}
	data, err := g.fetchRaw(ctx, file.RawURL)
	if err != nil {
		return nil, "", err
	}
	return data, gist.revision(), nil
}

// Put writes the file, creating the gist when no id is configured.
func (g *GistBlob) Put(ctx context.Context, data []byte, ifRevision string) (string, error) {
	body := gistWriteRequest{
		Files: map[string]gistFile{g.fileName: {Content: string(data)}},
	}

	if g.gistID == "" {
		if ifRevision != "" {
			return "", fmt.Errorf("%w: no gist configured but revision %q expected", pv.ErrRemoteConflict, ifRevision)
		}
		body.Description = g.description
		body.Public = &g.public
		var created gistResponse
		if err := g.do(ctx, http.MethodPost, g.apiURL+"/gists", body, &created); err != nil {
			return "", err
		}
		g.gistID = created.ID
		return created.revision(), nil
	}

	current, err := g.fetch(ctx)
	if err != nil {
		return "", err
	}
	currentRev := ""
	if _, ok := current.Files[g.fileName]; ok {
		currentRev = current.revision()
	}
	if currentRev != ifRevision {
		return "", fmt.Errorf("%w: gist %s is at %q, expected %q", pv.ErrRemoteConflict, g.gistID, currentRev, ifRevision)
	}

	var updated gistResponse
	if err := g.do(ctx, http.MethodPatch, g.gistURL(), body, &updated); err != nil {
		return "", err
	}
	return updated.revision(), nil
}

// Describe names the remote.
func (g *GistBlob) Describe() string {
	if g.gistID == "" {
		return "gist:(new)/" + g.fileName
	}
	return "gist:" + g.gistID + "/" + g.fileName
}

func (g *GistBlob) gistURL() string {
	return g.apiURL + "/gists/" + url.PathEscape(g.gistID)
}

func (g *GistBlob) fetch(ctx context.Context) (*gistResponse, error) {
	var gist gistResponse
	if err := g.do(ctx, http.MethodGet, g.gistURL(), nil, &gist); err != nil {
		return nil, err
	}
	return &gist, nil
}

// do sends a JSON request and decodes the JSON response into out.
func (g *GistBlob) do(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding gist request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("%w: %w", pv.ErrRemoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	data, err := g.send(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding gist response: %w", pv.ErrRemoteUnavailable, err)
	}
	return nil
}

func (g *GistBlob) fetchRaw(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("%w: truncated gist file has no raw_url", pv.ErrRemoteUnavailable)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pv.ErrRemoteUnavailable, err)
	}
	return g.send(req)
}

// send adds auth headers, performs the request and maps the status.
func (g *GistBlob) send(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", gistUserAgent)
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pv.ErrRemoteUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGistBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", pv.ErrRemoteUnavailable, err)
	}
	if len(data) > maxGistBodySize {
		return nil, fmt.Errorf("%w: response body exceeds %d bytes", pv.ErrRemoteUnavailable, maxGistBodySize)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusPreconditionFailed:
		return nil, fmt.Errorf("%w: %s %s: %s", pv.ErrRemoteConflict, req.Method, req.URL.Path, resp.Status)
	default:
		return nil, fmt.Errorf("%w: %s %s: %s%s", pv.ErrRemoteUnavailable, req.Method, req.URL.Path, resp.Status, apiMessage(data))
	}
}

// apiMessage extracts GitHub's error message, if the body carries one.
func apiMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Message == "" {
		return ""
	}
	return " (" + e.Message + ")"
}
