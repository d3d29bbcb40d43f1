package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/slipway-dev/slipway/pkg/domain/model"
	"github.com/slipway-dev/slipway/pkg/domain/types"
	"github.com/slipway-dev/slipway/pkg/infra/build"
	"github.com/slipway-dev/slipway/pkg/usecase"
)

func cmdBuild() *cli.Command {
	var (
		configPath  string
		version     string
		dist        string
		parallelism int64
	)

	return &cli.Command{
		Name:  "build",
		Usage: "Run the build matrix locally without publishing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Workflow file",
				Value:       types.DefaultWorkflowFile,
				Destination: &configPath,
				Sources:     cli.EnvVars("SLIPWAY_CONFIG"),
			},
			&cli.StringFlag{
				Name:        "version",
				Usage:       "Version string used in archive names",
				Value:       "dev",
				Destination: &version,
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
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			wf, err := model.LoadWorkflow(configPath)
			if err != nil {
				return err
			}

			pipeline := usecase.NewPipeline(wf, build.NewRunner(),
				usecase.WithDistDir(dist),
				usecase.WithParallelism(int(parallelism)),
				usecase.WithSkipPublish(),
			)

			result, runErr := pipeline.Run(ctx, model.ReleaseInfo{TagName: version})
			if result != nil {
				printRunSummary(result)
			}
			return runErr
		},
	}
}
