package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/slipway-dev/slipway/pkg/domain/model"
	"github.com/slipway-dev/slipway/pkg/domain/types"
)

func cmdCheck() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:  "check",
		Usage: "Validate the workflow file and show the expanded matrix",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Workflow file",
				Value:       types.DefaultWorkflowFile,
				Destination: &configPath,
				Sources:     cli.EnvVars("SLIPWAY_CONFIG"),
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			wf, err := model.LoadWorkflow(configPath)
			if err != nil {
				return err
			}

			bold := color.New(color.Bold).SprintFunc()
			dim := color.New(color.Faint).SprintFunc()

			fmt.Printf("%s %s\n", bold("project:"), wf.Project.Name)
			fmt.Printf("%s release [%s]\n", bold("trigger:"),
				strings.Join(wf.Trigger.Release.Types, ", "))
			fmt.Printf("%s fail-fast=%v\n", bold("matrix: "), wf.Matrix.FailFast)

			for _, tgt := range wf.Matrix.Targets {
				platform, err := model.ParseTriple(tgt.Triple)
				if err != nil {
					return err
				}
				kinds := make([]string, 0, len(tgt.Archives))
				for _, k := range tgt.Archives {
					kinds = append(kinds, string(k))
				}
				fmt.Printf("  %-32s %s %s\n",
					tgt.Triple,
					dim(platform.OS+"/"+platform.Arch),
					strings.Join(kinds, " "))
			}

			if wf.Brew != nil {
				fmt.Printf("%s tap=%s formula=%s skip-duplicate=%v\n",
					bold("brew:   "), wf.Brew.Tap, wf.Brew.Formula, wf.Brew.SkipDuplicateEnabled())
			}

			color.Green("workflow OK")
			return nil
		},
	}
}
