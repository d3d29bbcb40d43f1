package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/slipway-dev/slipway/pkg/domain/interfaces"
	github "github.com/slipway-dev/slipway/pkg/infra/github"
)

// GitHub holds GitHub configuration
type GitHub struct {
	Token          string
	BaseURL        string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	WebhookSecret  string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub API token",
			Destination: &c.Token,
			Sources:     cli.EnvVars("SLIPWAY_GITHUB_TOKEN", "GITHUB_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "github-base-url",
			Usage:       "GitHub API base URL (for GHE)",
			Destination: &c.BaseURL,
			Sources:     cli.EnvVars("SLIPWAY_GITHUB_BASE_URL"),
		},
	}
}

// AppFlags returns the additional flags for App-authenticated serve mode.
func (c *GitHub) AppFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("SLIPWAY_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-installation-id",
			Usage:       "GitHub App installation ID",
			Destination: &c.InstallationID,
			Sources:     cli.EnvVars("SLIPWAY_GITHUB_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "Path to the GitHub App private key",
			Destination: &c.PrivateKeyPath,
			Sources:     cli.EnvVars("SLIPWAY_GITHUB_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret",
			Required:    true,
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("SLIPWAY_GITHUB_WEBHOOK_SECRET"),
		},
	}
}

func (c *GitHub) options() []github.Option {
	var opts []github.Option
	if c.BaseURL != "" {
		opts = append(opts, github.WithBaseURL(c.BaseURL))
	}
	return opts
}

// TokenClient builds a token-authenticated client for CLI runs.
func (c *GitHub) TokenClient() (interfaces.GitHubClient, error) {
	if c.Token == "" {
		return nil, goerr.New("github token is required (--github-token or GITHUB_TOKEN)")
	}
	return github.NewClient(c.Token, c.options()...)
}

// AppClient builds an App-authenticated client for serve mode.
func (c *GitHub) AppClient() (interfaces.GitHubClient, error) {
	if c.AppID == 0 || c.InstallationID == 0 || c.PrivateKeyPath == "" {
		return nil, goerr.New("github app id, installation id and private key are required")
	}
	key, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read GitHub App private key",
			goerr.V("path", c.PrivateKeyPath))
	}
	return github.NewAppClient(c.AppID, c.InstallationID, key, c.options()...)
}
