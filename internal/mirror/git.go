package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"pv-go/internal/pv"
)

// GitOptions configures GitBlob.
type GitOptions struct {
	URL      string
	Branch   string // default "main"
	Path     string // file inside the repository, default "prompts.toml"
	Username string // default "x-access-token"
	Token    string // empty for unauthenticated or file:// remotes
	Clock    pv.Clock
}

// GitBlob stores the document as a file in a git repository. A gist is a git
// repository too, so this also serves gists over git. Every call clones into
// memory; nothing is written to disk. The revision is the branch head.
type GitBlob struct {
	url    string
	branch string
	path   string
	auth   transport.AuthMethod
	clock  pv.Clock
}

var _ Blob = (*GitBlob)(nil)

var errEmptyRemote = errors.New("remote branch does not exist")

// NewGitBlob creates a git backend.
func NewGitBlob(opts GitOptions) (*GitBlob, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("git remote requires git_url")
	}
	b := &GitBlob{
		url:    opts.URL,
		branch: opts.Branch,
		path:   opts.Path,
		clock:  opts.Clock,
	}
	if b.branch == "" {
		b.branch = "main"
	}
	if b.path == "" {
		b.path = "prompts.toml"
	}
	if b.clock == nil {
		b.clock = pv.RealClock{}
	}
	if opts.Token != "" {
		username := opts.Username
		if username == "" {
			username = "x-access-token"
		}
		b.auth = &http.BasicAuth{Username: username, Password: opts.Token}
	}
	return b, nil
}

// Get clones the branch and reads the file.
func (b *GitBlob) Get(ctx context.Context) ([]byte, string, error) {
	repo, wt, err := b.clone(ctx)
	if errors.Is(err, errEmptyRemote) {
		return nil, "", ErrNoDocument
	}
	if err != nil {
		return nil, "", err
	}

	f, err := wt.Open(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNoDocument
		}
		return nil, "", fmt.Errorf("%w: open %s: %w", pv.ErrRemoteUnavailable, b.path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read %s: %w", pv.ErrRemoteUnavailable, b.path, err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, "", fmt.Errorf("%w: head: %w", pv.ErrRemoteUnavailable, err)
	}
	return data, head.Hash().String(), nil
}

// Put commits data on top of the branch head and pushes it. The push is
// rejected as non-fast-forward if another writer got there first.
func (b *GitBlob) Put(ctx context.Context, data []byte, ifRevision string) (string, error) {
	repo, wt, err := b.clone(ctx)
	switch {
	case errors.Is(err, errEmptyRemote):
		if ifRevision != "" {
			return "", fmt.Errorf("%w: branch %s is gone", pv.ErrRemoteConflict, b.branch)
		}
		repo, wt, err = b.initRepo()
		if err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	default:
		current := ""
		if _, statErr := wt.Stat(b.path); statErr == nil {
			head, err := repo.Head()
			if err != nil {
				return "", fmt.Errorf("%w: head: %w", pv.ErrRemoteUnavailable, err)
			}
			current = head.Hash().String()
		}
		if current != ifRevision {
			return "", fmt.Errorf("%w: %s is at %q, expected %q", pv.ErrRemoteConflict, b.Describe(), current, ifRevision)
		}
	}

	if err := util.WriteFile(wt, b.path, data, 0o644); err != nil {
		return "", gitStepError("writing "+b.path, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", gitStepError("worktree", err)
	}
	if _, err := worktree.Add(b.path); err != nil {
		return "", gitStepError("staging "+b.path, err)
	}
	hash, err := worktree.Commit("Update prompt library", &git.CommitOptions{
		Author: &object.Signature{Name: "pv", Email: "pv@localhost", When: b.clock.Now()},
	})
	if err != nil {
		return "", gitStepError("committing "+b.path, err)
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", b.branch, b.branch))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       b.auth,
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return hash.String(), nil
	case errors.Is(err, git.ErrNonFastForwardUpdate):
		return "", fmt.Errorf("%w: push to %s rejected", pv.ErrRemoteConflict, b.Describe())
	default:
		return "", fmt.Errorf("%w: push %s: %w", pv.ErrRemoteUnavailable, b.Describe(), err)
	}
}

// Describe names the remote.
func (b *GitBlob) Describe() string {
	return b.url + "#" + b.branch + ":" + b.path
}

func (b *GitBlob) clone(ctx context.Context) (*git.Repository, billy.Filesystem, error) {
	wt := memfs.New()
	repo, err := git.CloneContext(ctx, memory.NewStorage(), wt, &git.CloneOptions{
		URL:           b.url,
		Auth:          b.auth,
		ReferenceName: plumbing.NewBranchReferenceName(b.branch),
		SingleBranch:  true,
	})
	if err != nil {
		if isMissingBranch(err) {
			return nil, nil, errEmptyRemote
		}
		return nil, nil, fmt.Errorf("%w: clone %s: %w", pv.ErrRemoteUnavailable, b.url, err)
	}
	return repo, wt, nil
}

// initRepo starts a fresh history for a remote that has no branch yet.
func (b *GitBlob) initRepo() (*git.Repository, billy.Filesystem, error) {
	wt := memfs.New()
	repo, err := git.Init(memory.NewStorage(), wt)
	if err != nil {
		return nil, nil, gitStepError("init repository", err)
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(b.branch))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, nil, gitStepError("init repository", err)
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{b.url}}); err != nil {
		return nil, nil, gitStepError("init repository", err)
	}
	return repo, wt, nil
}

// gitStepError wraps a failure in the local clone. The remote is left as it
// was, so the cycle can be retried.
func gitStepError(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", pv.ErrRemoteUnavailable, step, err)
}

func isMissingBranch(err error) bool {
	if errors.Is(err, transport.ErrEmptyRemoteRepository) || errors.Is(err, plumbing.ErrReferenceNotFound) {
		return true
	}
	var noMatch git.NoMatchingRefSpecError
	return errors.As(err, &noMatch)
}
