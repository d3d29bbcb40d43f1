package config

import "github.com/urfave/cli/v3"

// Slack holds notification configuration. The target channel lives in
// the workflow file; the token is process config.
type Slack struct {
	Token string
}

// Flags returns CLI flags for Slack configuration
func (c *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-token",
			Usage:       "Slack API token (empty disables notification)",
			Destination: &c.Token,
			Sources:     cli.EnvVars("SLIPWAY_SLACK_TOKEN"),
		},
	}
}
