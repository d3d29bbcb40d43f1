package github_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"

	githubinfra "github.com/slipway-dev/slipway/pkg/infra/github"
)

func TestNewClient(t *testing.T) {
	client, err := githubinfra.NewClient("dummy-token")
	gt.NoError(t, err)
	gt.Value(t, client).NotNil()
}

func TestNewClient_WithBaseURL(t *testing.T) {
	client, err := githubinfra.NewClient("dummy-token",
		githubinfra.WithBaseURL("https://ghe.example.com/api/v3/"))
	gt.NoError(t, err)
	gt.Value(t, client).NotNil()
}

func TestClient_ResolveRef_WithRealAPI(t *testing.T) {
	// Integration test against the real GitHub API.
	token := os.Getenv("TEST_GITHUB_TOKEN")
	owner := os.Getenv("TEST_GITHUB_OWNER")
	repo := os.Getenv("TEST_GITHUB_REPO")
	if token == "" || owner == "" || repo == "" {
		t.Skip("TEST_GITHUB_TOKEN / TEST_GITHUB_OWNER / TEST_GITHUB_REPO not provided")
	}

	client, err := githubinfra.NewClient(token)
	gt.NoError(t, err)

	branch, err := client.DefaultBranch(context.Background(), owner, repo)
	gt.NoError(t, err)

	sha, err := client.ResolveRef(context.Background(), owner, repo, branch)
	gt.NoError(t, err)
	gt.Value(t, sha).NotEqual("")
}
