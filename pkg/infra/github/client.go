package github

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"

	"github.com/slipway-dev/slipway/pkg/domain/interfaces"
)

type client struct {
	gh *github.Client
}

// Option configures the client.
type Option func(*github.Client) (*github.Client, error)

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(base string) Option {
	return func(c *github.Client) (*github.Client, error) {
		return c.WithEnterpriseURLs(base, base)
	}
}

// NewClient creates a GitHub client authenticated with a token.
func NewClient(token string, opts ...Option) (interfaces.GitHubClient, error) {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}

	var err error
	for _, opt := range opts {
		if gh, err = opt(gh); err != nil {
			return nil, goerr.Wrap(err, "failed to configure GitHub client")
		}
	}

	return &client{gh: gh}, nil
}

// NewAppClient creates a GitHub client with App installation auth,
// used by the webhook serve mode.
func NewAppClient(appID, installationID int64, privateKey []byte, opts ...Option) (interfaces.GitHubClient, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport")
	}

	gh := github.NewClient(&http.Client{Transport: itr})
	for _, opt := range opts {
		if gh, err = opt(gh); err != nil {
			return nil, goerr.Wrap(err, "failed to configure GitHub client")
		}
	}

	return &client{gh: gh}, nil
}

// EnsureRelease returns the release ID for the tag, creating the
// release when it does not exist yet.
func (c *client) EnsureRelease(ctx context.Context, owner, repo, tag string) (int64, error) {
	release, resp, err := c.gh.Repositories.GetReleaseByTag(ctx, owner, repo, tag)
	if err == nil {
		return release.GetID(), nil
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return 0, goerr.Wrap(err, "failed to look up release", goerr.V("tag", tag))
	}

	created, _, err := c.gh.Repositories.CreateRelease(ctx, owner, repo, &github.RepositoryRelease{
		TagName: github.String(tag),
		Name:    github.String(tag),
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create release", goerr.V("tag", tag))
	}
	return created.GetID(), nil
}

// UploadReleaseAsset attaches a local file to a release and returns
// its download URL.
func (c *client) UploadReleaseAsset(ctx context.Context, owner, repo string, releaseID int64, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to open asset file", goerr.V("path", path))
	}
	defer f.Close()

	asset, _, err := c.gh.Repositories.UploadReleaseAsset(ctx, owner, repo, releaseID, &github.UploadOptions{
		Name: filepath.Base(path),
	}, f)
	if err != nil {
		return "", goerr.Wrap(err, "failed to upload release asset", goerr.V("path", path))
	}

	return asset.GetBrowserDownloadURL(), nil
}

// ResolveRef returns the commit SHA a tag or branch points at.
func (c *client) ResolveRef(ctx context.Context, owner, repo, ref string) (string, error) {
	sha, _, err := c.gh.Repositories.GetCommitSHA1(ctx, owner, repo, ref, "")
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve ref", goerr.V("ref", ref))
	}
	return sha, nil
}

// DefaultBranch returns the repository default branch name.
func (c *client) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	r, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", goerr.Wrap(err, "failed to get repository", goerr.V("repo", owner+"/"+repo))
	}
	return r.GetDefaultBranch(), nil
}

// CreateBranch creates a branch at the given SHA.
func (c *client) CreateBranch(ctx context.Context, owner, repo, branch, sha string) error {
	_, _, err := c.gh.Git.CreateRef(ctx, owner, repo, github.CreateRef{
		Ref: "refs/heads/" + branch,
		SHA: sha,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to create branch", goerr.V("branch", branch))
	}
	return nil
}

// PutFile creates or updates a file on a branch.
func (c *client) PutFile(ctx context.Context, owner, repo, branch, path, message string, content []byte) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Branch:  github.String(branch),
	}

	existing, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{
		Ref: branch,
	})
	switch {
	case err == nil && existing != nil:
		opts.SHA = github.String(existing.GetSHA())
		_, _, err = c.gh.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		_, _, err = c.gh.Repositories.CreateFile(ctx, owner, repo, path, opts)
	default:
		return goerr.Wrap(err, "failed to look up file", goerr.V("path", path))
	}

	if err != nil {
		return goerr.Wrap(err, "failed to put file", goerr.V("path", path))
	}
	return nil
}

// HasOpenPR reports whether an open PR exists with the given head branch.
func (c *client) HasOpenPR(ctx context.Context, owner, repo, headBranch string) (bool, error) {
	prs, _, err := c.gh.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		State: "open",
		Head:  owner + ":" + headBranch,
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to list pull requests", goerr.V("head", headBranch))
	}
	return len(prs) > 0, nil
}

// CreatePR opens a pull request from head into base and returns its URL.
func (c *client) CreatePR(ctx context.Context, owner, repo, title, head, base, body string) (string, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to create pull request", goerr.V("head", head))
	}
	return pr.GetHTMLURL(), nil
}
