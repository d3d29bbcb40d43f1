package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/slipway-dev/slipway/pkg/cli/config"
	ghcontroller "github.com/slipway-dev/slipway/pkg/controller/github"
	controller "github.com/slipway-dev/slipway/pkg/controller/http"
	"github.com/slipway-dev/slipway/pkg/domain/model"
	"github.com/slipway-dev/slipway/pkg/domain/types"
	"github.com/slipway-dev/slipway/pkg/infra/blob"
	"github.com/slipway-dev/slipway/pkg/infra/build"
	"github.com/slipway-dev/slipway/pkg/infra/notify"
	"github.com/slipway-dev/slipway/pkg/usecase"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		githubCfg config.GitHub
		sentryCfg config.Sentry
		slackCfg  config.Slack

		configPath string
		dist       string
	)

	flags := append(serverCfg.Flags(), githubCfg.Flags()...)
	flags = append(flags, githubCfg.AppFlags()...)
	flags = append(flags, sentryCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
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
			Name:        "dist",
			Usage:       "Artifact output directory",
			Value:       "dist",
			Destination: &dist,
		},
	)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the webhook-driven pipeline server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			wf, err := model.LoadWorkflow(configPath)
			if err != nil {
				return err
			}

			sentryEnabled, err := sentryCfg.Configure()
			if err != nil {
				return err
			}
			if sentryEnabled {
				defer sentry.Flush(2 * time.Second)
			}

			ghClient, err := githubCfg.AppClient()
			if err != nil {
				return err
			}

			opts := []usecase.PipelineOption{
				usecase.WithGitHub(ghClient),
				usecase.WithDistDir(dist),
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

			pipelineUC := usecase.NewPipeline(wf, build.NewRunner(), opts...)
			processor := ghcontroller.NewEventProcessor(wf, pipelineUC)
			webhookUC := usecase.NewWebhook()

			logger.Info("Starting slipway server",
				slog.String("addr", serverCfg.Addr),
				slog.String("project", wf.Project.Name),
			)

			server, err := controller.NewServer(
				ctx,
				webhookUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(githubCfg.WebhookSecret),
				controller.WithEventHandler(processor),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
