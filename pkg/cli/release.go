package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/slipway-dev/slipway/pkg/cli/config"
	"github.com/slipway-dev/slipway/pkg/domain/model"
	"github.com/slipway-dev/slipway/pkg/domain/types"
	"github.com/slipway-dev/slipway/pkg/infra/blob"
	"github.com/slipway-dev/slipway/pkg/infra/build"
	"github.com/slipway-dev/slipway/pkg/infra/notify"
	"github.com/slipway-dev/slipway/pkg/usecase"
)

func cmdRelease() *cli.Command {
	var (
		githubCfg config.GitHub
		slackCfg  config.Slack

		configPath  string
		repo        string
		tag         string
		revision    string
		dist        string
		parallelism int64
		skipPublish bool
		skipBrew    bool
	)

	flags := append(githubCfg.Flags(), slackCfg.Flags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Workflow file",
			Value:       types.DefaultWorkflowFile,
			Destination: &configPath,
			Sources:     cli.EnvVars("SLIPWAY_CONFIG"),
		},
		&cli.StringFlag{
			Name:        "repo",
			Usage:       "Repository to publish to (owner/name)",
			Required:    true,
			Destination: &repo,
			Sources:     cli.EnvVars("SLIPWAY_REPO", "GITHUB_REPOSITORY"),
		},
		&cli.StringFlag{
			Name:        "tag",
			Usage:       "Release tag to build and publish",
			Required:    true,
			Destination: &tag,
		},
		&cli.StringFlag{
			Name:        "revision",
			Usage:       "Commit SHA of the release (resolved from the tag when omitted)",
			Destination: &revision,
		},
		&cli.StringFlag{
			Name:        "dist",
			Usage:       "Artifact output directory",
			Value:       "dist",
			Destination: &dist,
		},
		&cli.Int64Flag{
			Name:        "parallelism",
			Usage:       "Max concurrent matrix legs (0 = one per leg)",
			Destination: &parallelism,
		},
		&cli.BoolFlag{
			Name:        "skip-publish",
			Usage:       "Build and package only, do not upload or bump",
			Destination: &skipPublish,
		},
		&cli.BoolFlag{
			Name:        "skip-brew",
			Usage:       "Skip the Homebrew bump stage",
			Destination: &skipBrew,
		},
	)

	return &cli.Command{
		Name:    "release",
		Aliases: []string{"r"},
		Usage:   "Run the full release pipeline for a tag",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			wf, err := model.LoadWorkflow(configPath)
			if err != nil {
				return err
			}

			owner, name, ok := strings.Cut(repo, "/")
			if !ok || owner == "" || name == "" {
				return goerr.New("repo must be in owner/name form", goerr.V("repo", repo))
			}

			ghClient, err := githubCfg.TokenClient()
			if err != nil {
				return err
			}

			opts := []usecase.PipelineOption{
				usecase.WithGitHub(ghClient),
				usecase.WithDistDir(dist),
				usecase.WithParallelism(int(parallelism)),
			}
			if skipPublish {
				opts = append(opts, usecase.WithSkipPublish())
			}
			if skipBrew {
				opts = append(opts, usecase.WithSkipBrew())
			}
			if len(wf.Blobs) > 0 {
				store, err := blob.NewGCS(ctx)
				if err != nil {
					return err
				}
				opts = append(opts, usecase.WithBlobStore(store))
			}
			if slackCfg.Token != "" && wf.Notify.SlackChannel != "" {
				opts = append(opts, usecase.WithNotifier(notify.NewSlack(slackCfg.Token)))
			}

			pipeline := usecase.NewPipeline(wf, build.NewRunner(), opts...)

			result, runErr := pipeline.Run(ctx, model.ReleaseInfo{
				Owner:     owner,
				Repo:      name,
				TagName:   tag,
				CommitSHA: revision,
			})
			if result != nil {
				printRunSummary(result)
			}
			return runErr
		},
	}
}

// printRunSummary renders the per-leg outcome table to the terminal.
func printRunSummary(result *model.PipelineResult) {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Println()
	for _, leg := range result.Legs {
		mark := ok("✔")
		if leg.Status != model.LegSucceeded {
			mark = bad("✘")
		}
		fmt.Printf("  %s %-32s %-10s %s\n",
			mark, leg.Target.Triple, leg.Status, dim(leg.Duration.Round(1e6).String()))
	}
	if len(result.Published) > 0 {
		fmt.Printf("\n  published %d assets for %s\n", len(result.Published), result.Release.TagName)
	}
	switch result.Brew.Status {
	case model.BrewBumped:
		fmt.Printf("  homebrew bump PR: %s\n", result.Brew.PRURL)
	case model.BrewDuplicate:
		fmt.Println("  homebrew bump skipped: PR already open")
	}
	fmt.Println()
}
