package interfaces

import "context"

// GitHubClient is the GitHub API surface the pipeline needs.
type GitHubClient interface {
	// EnsureRelease returns the release ID for the tag, creating the
	// release when it does not exist yet.
	EnsureRelease(ctx context.Context, owner, repo, tag string) (int64, error)

	// UploadReleaseAsset attaches a local file to a release.
	UploadReleaseAsset(ctx context.Context, owner, repo string, releaseID int64, path string) (string, error)

	// ResolveRef returns the commit SHA a tag or branch points at.
	ResolveRef(ctx context.Context, owner, repo, ref string) (string, error)

	// DefaultBranch returns the repository default branch name.
	DefaultBranch(ctx context.Context, owner, repo string) (string, error)

	// CreateBranch creates a branch at the given SHA.
	CreateBranch(ctx context.Context, owner, repo, branch, sha string) error

	// PutFile creates or updates a file on a branch.
	PutFile(ctx context.Context, owner, repo, branch, path, message string, content []byte) error

	// HasOpenPR reports whether an open PR exists with the given head branch.
	HasOpenPR(ctx context.Context, owner, repo, headBranch string) (bool, error)

	// CreatePR opens a pull request from head into base and returns its URL.
	CreatePR(ctx context.Context, owner, repo, title, head, base, body string) (string, error)
}
